package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"texpatch/internal/app"
	"texpatch/internal/cli"
	"texpatch/internal/tui"
	"texpatch/internal/ui"
)

func main() {
	cfg, err := cli.ParseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	// Modes that print to stdout or stderr and should not run the TUI.
	if cfg.Fix || cfg.Headless {
		summary, err := a.Execute()
		if err != nil {
			if e, ok := err.(*app.DetailedError); ok {
				fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if cfg.Headless {
			ui.PrintSummary(summary)
		}
		return
	}

	p := tea.NewProgram(tui.New(a))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
