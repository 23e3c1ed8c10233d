package patcher

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// PatchResult is the outcome of one diff application attempt.
type PatchResult struct {
	Success      bool
	FinalContent string
	Error        string
	FailedIndex  int // 0-based index of the failing hunk, -1 on success
}

// dmp settings for the fuzzy retry. MatchDistance bounds how far from the
// declared position a patch part may land; MatchThreshold bounds how many
// context characters may disagree before the part is considered lost.
func newMatcher() *diffmatchpatch.DiffMatchPatch {
	dmp := diffmatchpatch.New()
	dmp.MatchThreshold = 0.4
	dmp.MatchDistance = 1000
	return dmp
}

// ApplyDiff applies hunks sequentially to a running in-memory copy of
// originalText. Each hunk is first applied strictly; on a strict miss it is
// decomposed into diffmatchpatch patch parts and re-applied with bounded
// fuzzy matching. The first hunk that fails both ways aborts the whole
// attempt, discarding earlier in-memory successes. Validity per Validate is
// not a precondition: malformed input is reported as this function's own
// failure.
func ApplyDiff(originalText string, hunks []string) PatchResult {
	running := originalText

	for i, raw := range hunks {
		h, skip, err := parseHunk(raw)
		if skip {
			continue
		}
		if err == nil {
			err = h.verifyCounts()
		}
		if err != nil {
			return PatchResult{
				Error:       fmt.Sprintf("hunk %d: %v", i+1, err),
				FailedIndex: i,
			}
		}

		next, ok := applyStrict(running, h)
		if !ok {
			next, ok = applyFuzzy(running, h)
		}
		if !ok {
			return PatchResult{
				Error:       fmt.Sprintf("hunk %d could not be applied (clean and fuzzy both failed)", i+1),
				FailedIndex: i,
			}
		}
		running = next
	}

	return PatchResult{Success: true, FinalContent: running, FailedIndex: -1}
}

// splitKeepEOL splits text into lines, reporting whether the text ended
// with a newline so the caller can restore the exact shape after joining.
func splitKeepEOL(text string) (lines []string, trailingNL bool) {
	lines = strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		return lines[:n-1], true
	}
	return lines, false
}

func joinEOL(lines []string, trailingNL bool) string {
	s := strings.Join(lines, "\n")
	if trailingNL {
		s += "\n"
	}
	return s
}

// applyStrict splices the hunk's new block over its old block. The old
// block must match byte-exactly, first at the declared position and
// failing that at its first exact occurrence anywhere in the text.
func applyStrict(text string, h *hunk) (string, bool) {
	oldBlock := h.oldBlock()
	newBlock := h.newBlock()
	lines, trailingNL := splitKeepEOL(text)

	if len(oldBlock) == 0 {
		// Pure insertion: the header's old position names the line the
		// new block is inserted after.
		at := h.oldStart
		if at < 0 || at > len(lines) {
			return "", false
		}
		out := make([]string, 0, len(lines)+len(newBlock))
		out = append(out, lines[:at]...)
		out = append(out, newBlock...)
		out = append(out, lines[at:]...)
		return joinEOL(out, trailingNL), true
	}

	pos := -1
	if declared := h.oldStart - 1; blockAt(lines, oldBlock, declared) {
		pos = declared
	} else {
		for j := 0; j+len(oldBlock) <= len(lines); j++ {
			if blockAt(lines, oldBlock, j) {
				pos = j
				break
			}
		}
	}
	if pos == -1 {
		return "", false
	}

	out := make([]string, 0, len(lines)-len(oldBlock)+len(newBlock))
	out = append(out, lines[:pos]...)
	out = append(out, newBlock...)
	out = append(out, lines[pos+len(oldBlock):]...)
	return joinEOL(out, trailingNL), true
}

func blockAt(lines, block []string, pos int) bool {
	if pos < 0 || pos+len(block) > len(lines) {
		return false
	}
	for j, b := range block {
		if lines[pos+j] != b {
			return false
		}
	}
	return true
}

// applyFuzzy decomposes the hunk into its constituent patch parts and
// re-applies each part near the declared position, tolerating a bounded
// amount of context mismatch. All parts must land for the hunk to succeed.
func applyFuzzy(text string, h *hunk) (string, bool) {
	oldText := strings.Join(h.oldBlock(), "\n")
	newText := strings.Join(h.newBlock(), "\n")
	if oldText == "" {
		return "", false
	}

	dmp := newMatcher()
	parts := dmp.PatchMake(oldText, newText)
	if len(parts) == 0 {
		return text, true
	}

	// Re-anchor the parts from old-block coordinates to the position the
	// header claims the block occupies in the full text.
	anchor := lineOffset(text, h.oldStart-1)
	for i := range parts {
		parts[i].Start1 += anchor
		parts[i].Start2 += anchor
	}

	patched, applied := dmp.PatchApply(parts, text)
	for _, ok := range applied {
		if !ok {
			return "", false
		}
	}
	return patched, true
}

// lineOffset returns the byte offset of the start of the given 0-based
// line, clamped to the text bounds.
func lineOffset(text string, line int) int {
	if line <= 0 {
		return 0
	}
	off := 0
	for i := 0; i < line; i++ {
		nl := strings.IndexByte(text[off:], '\n')
		if nl == -1 {
			return len(text)
		}
		off += nl + 1
	}
	return off
}
