// Package editor abstracts the live document buffer the patch engine
// writes to. The engine computes content transformations as pure values;
// a Buffer is the single explicit side-effecting surface, and every
// mutating call is one atomic transaction.
package editor

import (
	"errors"
	"fmt"

	"texpatch/model"
)

// ErrUnavailable signals that the document buffer cannot be reached; the
// current suggestion attempt must be discarded.
var ErrUnavailable = errors.New("editor: document buffer unavailable")

// Buffer is the document buffer contract consumed by the suggestion
// engine. Implementations must make ApplyEdits atomic: either every edit
// lands or none do.
type Buffer interface {
	// Text returns the current document content.
	Text() (string, error)
	// ReplaceAll replaces the entire document content in one transaction.
	ReplaceAll(text string) error
	// ReplaceRange replaces the bytes at [from, to) with insert.
	ReplaceRange(from, to int, insert string) error
	// ApplyEdits applies a batch of non-overlapping edits, expressed in
	// the current document's byte offsets, as one transaction.
	ApplyEdits(edits []model.Edit) error
}

// validateEdits checks that edits are in bounds, sorted and disjoint
// relative to a document of the given length.
func validateEdits(edits []model.Edit, docLen int) error {
	prevEnd := 0
	for i, e := range edits {
		if e.From < 0 || e.To < e.From || e.To > docLen {
			return fmt.Errorf("editor: edit %d out of bounds [%d,%d) for document length %d", i, e.From, e.To, docLen)
		}
		if e.From < prevEnd {
			return fmt.Errorf("editor: edit %d overlaps its predecessor", i)
		}
		prevEnd = e.To
	}
	return nil
}
