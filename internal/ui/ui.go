package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"texpatch/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PromptColor  = color.New(color.FgMagenta)
)

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(os.Stderr, format+"\n", a...)
}

// Confirm prints a (y/N) prompt and reads one line from stdin.
func Confirm(format string, a ...interface{}) bool {
	fmt.Fprint(os.Stderr, PromptColor.Sprintf(format+" (y/N): ", a...))
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	return strings.TrimSpace(strings.ToLower(response)) == "y"
}

// PrintSummary reports the outcome of a headless run.
func PrintSummary(s model.Summary) {
	Header("\n--- Summary ---")
	switch {
	case s.Applied:
		Success("Suggestion applied (%s mode).", s.Mode)
	case s.Rejected:
		Warning("Suggestion rejected. Document unchanged.")
	default:
		Error("Suggestion could not be applied. Document unchanged.")
	}
	if s.Message != "" {
		Info("%s", s.Message)
	}
}
