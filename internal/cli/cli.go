package cli

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Config holds all the command-line flag values.
type Config struct {
	Document string
	Model    string
	LogFile  string
	Headless bool
	Yes      bool
	Fix      bool
	Write    bool
}

// ParseFlags defines and parses command-line flags using pflag.
func ParseFlags() (*Config, error) {
	cfg := &Config{}

	pflag.StringVarP(&cfg.Model, "model", "m", "", "Model to use for the search/replace fallback request.")
	pflag.StringVar(&cfg.LogFile, "log-file", "", "Write a debug log to this file.")
	pflag.BoolVar(&cfg.Headless, "headless", false, "Skip the TUI; report to stderr and prompt on the terminal.")
	pflag.BoolVarP(&cfg.Yes, "yes", "y", false, "Apply without confirmation (headless only, required for piped input).")
	pflag.BoolVarP(&cfg.Fix, "fix", "f", false, "Print the proposal's hunks with corrected start lines and counts, then exit.")
	pflag.BoolVarP(&cfg.Write, "write", "w", false, "Save a file-backed document to disk after a successful apply.")

	pflag.Usage = func() {
		fmt.Println("Usage: texpatch [flags] [document.tex]")
		fmt.Println("\nParse an AI edit proposal from stdin (pipe) or clipboard and apply it")
		fmt.Println("to a Neovim buffer ($NVIM) or to the given document file.")
		fmt.Println("\nExample: pbpaste | texpatch --headless -y notes.tex")
		fmt.Println("\nFlags:")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if pflag.NArg() > 1 {
		return nil, fmt.Errorf("error: at most one document file may be given")
	}
	if pflag.NArg() == 1 {
		cfg.Document = pflag.Arg(0)
	}

	if cfg.Yes && !cfg.Headless {
		return nil, fmt.Errorf("error: --yes requires --headless")
	}
	if cfg.Write && cfg.Document == "" {
		return nil, fmt.Errorf("error: --write requires a document file argument")
	}

	return cfg, nil
}
