package editor

import (
	"sort"

	"texpatch/model"
)

// MemoryBuffer is an in-memory Buffer backed by a plain string. It is the
// document surface when texpatch operates on a file rather than a running
// editor, and the test double everywhere else.
type MemoryBuffer struct {
	content string
	writes  int
}

// NewMemoryBuffer creates a buffer holding the given content.
func NewMemoryBuffer(content string) *MemoryBuffer {
	return &MemoryBuffer{content: content}
}

func (b *MemoryBuffer) Text() (string, error) {
	return b.content, nil
}

func (b *MemoryBuffer) ReplaceAll(text string) error {
	b.content = text
	b.writes++
	return nil
}

func (b *MemoryBuffer) ReplaceRange(from, to int, insert string) error {
	if err := validateEdits([]model.Edit{{From: from, To: to, Insert: insert}}, len(b.content)); err != nil {
		return err
	}
	b.content = b.content[:from] + insert + b.content[to:]
	b.writes++
	return nil
}

func (b *MemoryBuffer) ApplyEdits(edits []model.Edit) error {
	sorted := make([]model.Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })

	if err := validateEdits(sorted, len(b.content)); err != nil {
		return err
	}

	// Back to front so earlier offsets stay valid.
	text := b.content
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		text = text[:e.From] + e.Insert + text[e.To:]
	}
	b.content = text
	b.writes++
	return nil
}

// Writes reports how many mutating transactions the buffer has seen.
// Tests use it to assert the at-most-one-write-per-resolution invariant.
func (b *MemoryBuffer) Writes() int {
	return b.writes
}
