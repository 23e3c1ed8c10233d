package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Load reads the document file.
func Load(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve document path '%s': %w", path, err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read document '%s': %w", path, err)
	}
	return string(content), nil
}

// Save writes the document back atomically via tmp + rename, so a crash
// mid-write never leaves a truncated file behind.
func Save(path, content string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve document path '%s': %w", path, err)
	}

	tmpPath := abs + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write '%s': %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, abs); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace '%s': %w", path, err)
	}
	return nil
}
