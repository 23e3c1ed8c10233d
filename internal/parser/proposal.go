// Package parser decodes the collaborator's free-form reply into a
// structured edit proposal. It accepts a bare JSON object, a markdown
// reply with a fenced ```json payload, or a markdown reply carrying raw
// ```diff fences.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"texpatch/model"
)

// ParseProposal decodes raw reply text into a Proposal.
func ParseProposal(raw string) (*model.Proposal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("parser: empty reply")
	}

	payload := ExtractJSON(raw)
	var p model.Proposal
	if err := json.Unmarshal([]byte(payload), &p); err == nil {
		if p.FullLatex != "" || len(p.Hunks) > 0 || len(p.Blocks) > 0 {
			return &p, nil
		}
	}

	// No JSON payload: fall back to bare ```diff fences.
	hunks, explanation, err := diffFences(raw)
	if err != nil {
		return nil, err
	}
	if len(hunks) == 0 {
		return nil, fmt.Errorf("parser: reply contains neither a JSON proposal nor diff blocks")
	}
	return &model.Proposal{Explanation: explanation, Hunks: hunks}, nil
}

// diffFences collects ```diff fences and splits each into individual
// hunks at @@ header boundaries. Prose outside the fences becomes the
// explanation.
func diffFences(raw string) (hunks []string, explanation string, err error) {
	blocks, err := extractCodeBlocks([]byte(raw))
	if err != nil {
		return nil, "", fmt.Errorf("parser: walk reply: %w", err)
	}

	for _, b := range blocks {
		if b.Lang != "diff" {
			continue
		}
		hunks = append(hunks, SplitHunks(b.Content)...)
	}

	prose := raw
	for _, b := range blocks {
		prose = strings.Replace(prose, b.Content, "", 1)
	}
	prose = strings.NewReplacer("```diff", "", "```json", "", "```", "").Replace(prose)
	explanation = strings.TrimSpace(prose)

	return hunks, explanation, nil
}

// SplitHunks cuts a multi-hunk diff body into one string per hunk,
// starting each at its @@ header. File header lines (---/+++) are dropped;
// other preamble (git metadata) is kept with the first hunk boundary so
// the validator can classify it.
func SplitHunks(body string) []string {
	var hunks []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			hunks = append(hunks, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ "):
			continue
		case strings.HasPrefix(line, "@@"):
			flush()
			current = append(current, line)
		default:
			current = append(current, line)
		}
	}
	flush()
	return hunks
}
