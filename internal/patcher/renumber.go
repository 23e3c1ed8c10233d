package patcher

import (
	"fmt"
	"strings"
)

// Renumber rewrites each hunk's header so its positions and counts match
// where the hunk's target block actually sits in the snapshot. Useful when
// a collaborator's line numbers have drifted and a corrected diff needs to
// be handed back. Matching tolerates whitespace and blank-line noise.
func Renumber(snapshot string, hunks []string) (string, error) {
	sourceLines := strings.Split(snapshot, "\n")

	var out []string
	offset := 0
	for i, raw := range hunks {
		h, skip, err := parseHunk(raw)
		if skip {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("hunk %d: %w", i+1, err)
		}

		target := targetBlock(h.lines)
		oldStart := matchBlock(sourceLines, target)
		if oldStart == -1 {
			return "", fmt.Errorf("hunk %d: could not locate target block in document", i+1)
		}

		oldN, newN, err := h.countLines()
		if err != nil {
			return "", fmt.Errorf("hunk %d: %w", i+1, err)
		}

		out = append(out, fmt.Sprintf("@@ -%d,%d +%d,%d @@", oldStart, oldN, oldStart+offset, newN))
		out = append(out, h.lines...)
		offset += newN - oldN
	}

	if len(out) == 0 {
		return "", nil
	}
	return strings.Join(out, "\n") + "\n", nil
}

// targetBlock builds a search pattern from the hunk body using only lines
// guaranteed to exist in the snapshot (context and deletions), skipping
// blank lines so matching survives whitespace-only drift.
func targetBlock(body []string) []string {
	var block []string
	for _, line := range body {
		if line == "" {
			continue
		}
		if line[0] != ' ' && line[0] != '-' {
			continue
		}
		if content := line[1:]; strings.TrimSpace(content) != "" {
			block = append(block, content)
		}
	}
	return block
}

// normalizeLine collapses internal whitespace runs to a single space.
func normalizeLine(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// matchBlock finds the 1-based line where block begins within source,
// comparing whitespace-normalized lines and ignoring blank source lines.
// Returns -1 when the block does not occur.
func matchBlock(source, block []string) int {
	if len(block) == 0 {
		return -1
	}

	normalized := make([]string, len(block))
	for i, line := range block {
		normalized[i] = normalizeLine(line)
	}

	var filtered []string
	var lineNums []int
	for i, line := range source {
		if n := normalizeLine(line); n != "" {
			filtered = append(filtered, n)
			lineNums = append(lineNums, i+1)
		}
	}

	for i := 0; i+len(normalized) <= len(filtered); i++ {
		match := true
		for j := range normalized {
			if filtered[i+j] != normalized[j] {
				match = false
				break
			}
		}
		if match {
			return lineNums[i]
		}
	}
	return -1
}
