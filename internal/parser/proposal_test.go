package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texpatch/model"
)

func TestParseProposal_BareJSON(t *testing.T) {
	raw := `{"explanation": "fix the title", "hunks": ["@@ -1,1 +1,1 @@\n-a\n+b"]}`

	p, err := ParseProposal(raw)
	require.NoError(t, err)
	assert.Equal(t, "fix the title", p.Explanation)
	require.Len(t, p.Hunks, 1)
	assert.Equal(t, model.ModeDiff, p.Mode())
}

func TestParseProposal_FencedJSON(t *testing.T) {
	raw := "Here is the edit you asked for:\n\n```json\n" +
		`{"explanation": "rename", "search_replace_blocks": [{"search": "old", "replace": "new"}]}` +
		"\n```\nLet me know if it helps."

	p, err := ParseProposal(raw)
	require.NoError(t, err)
	require.Len(t, p.Blocks, 1)
	assert.Equal(t, "old", p.Blocks[0].Search)
	assert.Equal(t, model.ModeSearchReplace, p.Mode())
}

func TestParseProposal_FullLatex(t *testing.T) {
	raw := `{"explanation": "rewrite", "fullLatex": "\\documentclass{article}"}`

	p, err := ParseProposal(raw)
	require.NoError(t, err)
	assert.Equal(t, model.ModeFull, p.Mode())
	assert.Contains(t, p.FullLatex, "documentclass")
}

func TestParseProposal_DiffFences(t *testing.T) {
	raw := "I adjusted the abstract.\n\n```diff\n" +
		"--- a/main.tex\n+++ b/main.tex\n" +
		"@@ -1,2 +1,2 @@\n context\n-old\n+new\n" +
		"@@ -8,1 +8,1 @@\n-x\n+y\n" +
		"```\n"

	p, err := ParseProposal(raw)
	require.NoError(t, err)
	require.Len(t, p.Hunks, 2)
	assert.Contains(t, p.Hunks[0], "@@ -1,2 +1,2 @@")
	assert.Contains(t, p.Hunks[1], "@@ -8,1 +8,1 @@")
	assert.Contains(t, p.Explanation, "adjusted the abstract")
}

func TestParseProposal_Empty(t *testing.T) {
	_, err := ParseProposal("   \n")
	assert.Error(t, err)
}

func TestParseProposal_NoPayload(t *testing.T) {
	_, err := ParseProposal("I could not produce an edit, sorry.")
	assert.Error(t, err)
}

func TestSplitHunks_KeepsArtifactsSeparate(t *testing.T) {
	body := "diff --git a/main.tex b/main.tex\nindex 1234567..89abcde 100644\n" +
		"@@ -1,1 +1,1 @@\n-a\n+b\n"

	hunks := SplitHunks(body)
	require.Len(t, hunks, 2)
	assert.Contains(t, hunks[0], "diff --git")
	assert.Contains(t, hunks[1], "@@ -1,1 +1,1 @@")
}

func TestExtractJSON_PassthroughAndFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSON(` {"a":1} `))
	assert.Equal(t, `{"b":2}`, ExtractJSON("prose\n```json\n{\"b\":2}\n```\n"))
}
