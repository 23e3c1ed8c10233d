package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"texpatch/internal/suggestion"
	"texpatch/model"
)

func TestReviewHeader_ShowsDiagnosticWhenPreviewEmpty(t *testing.T) {
	// A fallback rewrite whose blocks fail simulation reaches the review
	// screen with no preview; the diagnostic must be visible before the
	// user decides.
	s := &suggestion.Suggestion{
		Mode:        model.ModeSearchReplace,
		Explanation: "rename beta",
		Diagnostic:  "block 1: search text not found",
	}

	header := reviewHeader(s, "")
	assert.Contains(t, header, "search text not found")
	assert.Contains(t, header, "rename beta")
}

func TestReviewHeader_NoDiagnosticWithPreview(t *testing.T) {
	s := &suggestion.Suggestion{
		Mode:       model.ModeDiff,
		Preview:    "A\nB2\nC\n",
		Diagnostic: "stale note from an earlier attempt",
	}

	header := reviewHeader(s, "")
	assert.NotContains(t, header, "stale note")
}

func TestReviewHeader_ShowsFallbackError(t *testing.T) {
	s := &suggestion.Suggestion{Mode: model.ModeDiff, Preview: "x\n"}

	header := reviewHeader(s, "network down")
	assert.Contains(t, header, "network down")
}
