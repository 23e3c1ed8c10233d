package source

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
)

// Origin names where the proposal text came from.
type Origin string

const (
	OriginStdin     Origin = "stdin"
	OriginClipboard Origin = "clipboard"
)

// Provider retrieves the collaborator's raw reply text.
type Provider struct{}

// New creates a new Provider.
func New() *Provider {
	return &Provider{}
}

// GetContent reads the proposal from stdin (if piped) or the clipboard.
func (p *Provider) GetContent() (string, Origin, error) {
	stat, _ := os.Stdin.Stat()
	isPiped := (stat.Mode() & os.ModeCharDevice) == 0

	if isPiped {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", OriginStdin, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), OriginStdin, nil
	}

	content, err := clipboard.ReadAll()
	if err != nil {
		return "", OriginClipboard, fmt.Errorf("failed to read from clipboard: %w", err)
	}
	return content, OriginClipboard, nil
}
