// Package patcher turns untrusted textual edit proposals into verified
// content transformations. It never touches the live document: every
// function here is pure over a snapshot, and the caller decides whether
// the computed content reaches the buffer.
package patcher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// headerRegex matches a unified-diff hunk header:
// @@ -oldStart[,oldCount] +newStart[,newCount] @@
var headerRegex = regexp.MustCompile(`@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// hunk is a parsed unified-diff fragment.
type hunk struct {
	oldStart int
	oldCount int
	newStart int
	newCount int
	// lines are the body lines after the header, each still carrying its
	// ' ', '-', '+' or '\' prefix. A single trailing empty line produced
	// by splitting is already dropped.
	lines []string
}

// isArtifact reports whether a headerless block is a benign non-content
// artifact (git metadata the collaborator sometimes echoes back).
func isArtifact(raw string) bool {
	return strings.Contains(raw, "diff --git") || strings.Contains(raw, "index ")
}

// parseHunk locates the header and splits the body. skip is true for
// benign artifacts that should be ignored rather than rejected.
func parseHunk(raw string) (h *hunk, skip bool, err error) {
	lines := strings.Split(raw, "\n")

	headerIdx := -1
	var m []string
	for i, line := range lines {
		if mm := headerRegex.FindStringSubmatch(line); mm != nil {
			headerIdx = i
			m = mm
			break
		}
	}
	if headerIdx == -1 {
		if isArtifact(raw) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("missing or malformed @@ header")
	}

	h = &hunk{
		oldStart: atoiDefault(m[1], 0),
		oldCount: atoiDefault(m[2], 1),
		newStart: atoiDefault(m[3], 0),
		newCount: atoiDefault(m[4], 1),
	}

	body := lines[headerIdx+1:]
	if n := len(body); n > 0 && body[n-1] == "" {
		body = body[:n-1]
	}
	h.lines = body
	return h, false, nil
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, _ := strconv.Atoi(s)
	return n
}

// countLines tallies the body against the old/new side. An unrecognized
// line prefix is an error; '\' (no-newline marker) counts for neither.
func (h *hunk) countLines() (oldN, newN int, err error) {
	for _, line := range h.lines {
		if line == "" {
			return 0, 0, fmt.Errorf("unrecognized line prefix (empty line)")
		}
		switch line[0] {
		case ' ':
			oldN++
			newN++
		case '-':
			oldN++
		case '+':
			newN++
		case '\\':
			// no-newline marker, ignored
		default:
			return 0, 0, fmt.Errorf("unrecognized line prefix %q", string(line[0]))
		}
	}
	return oldN, newN, nil
}

// verifyCounts checks the counted body totals against the header's
// declared counts.
func (h *hunk) verifyCounts() error {
	oldN, newN, err := h.countLines()
	if err != nil {
		return err
	}
	if oldN != h.oldCount || newN != h.newCount {
		return fmt.Errorf("line count mismatch: header declares -%d/+%d, body has -%d/+%d",
			h.oldCount, h.newCount, oldN, newN)
	}
	return nil
}

// oldBlock returns the lines the hunk expects to find in the snapshot
// (context and deletions, prefixes stripped).
func (h *hunk) oldBlock() []string {
	var block []string
	for _, line := range h.lines {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '-' {
			block = append(block, line[1:])
		}
	}
	return block
}

// newBlock returns the lines the hunk produces (context and additions,
// prefixes stripped).
func (h *hunk) newBlock() []string {
	var block []string
	for _, line := range h.lines {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '+' {
			block = append(block, line[1:])
		}
	}
	return block
}

// ValidationResult reports structural well-formedness of a hunk sequence.
type ValidationResult struct {
	Valid        bool
	Error        string
	InvalidIndex int // 0-based index of the offending hunk, -1 when valid
}

// Validate checks every hunk for structural well-formedness: a parseable
// header, recognized line prefixes, and body totals matching the declared
// counts. It fails fast on the first defect. Benign non-content artifacts
// (git metadata blocks without a header) are skipped.
func Validate(hunks []string) ValidationResult {
	for i, raw := range hunks {
		h, skip, err := parseHunk(raw)
		if skip {
			continue
		}
		if err == nil {
			err = h.verifyCounts()
		}
		if err != nil {
			return ValidationResult{
				Valid:        false,
				Error:        fmt.Sprintf("hunk %d: %v", i+1, err),
				InvalidIndex: i,
			}
		}
	}
	return ValidationResult{Valid: true, InvalidIndex: -1}
}
