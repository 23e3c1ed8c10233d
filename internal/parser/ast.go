package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced code block lifted out of a markdown reply.
type CodeBlock struct {
	// Lang is the fence's language identifier (e.g. "json", "diff").
	Lang string
	// Content is the raw text inside the fence.
	Content string
}

// extractCodeBlocks walks the markdown AST and collects every fenced code
// block. Collaborator replies routinely wrap their payload in fences even
// when asked for bare JSON.
func extractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block CodeBlock
		if fenced.Info != nil {
			block.Lang = strings.TrimSpace(string(fenced.Info.Text(source)))
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		block.Content = content.String()

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return blocks, nil
}

// ExtractJSON returns the JSON payload of a reply: the raw string when it
// already is JSON, otherwise the content of the first ```json (or untagged)
// fence that parses as a JSON object.
func ExtractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if looksLikeJSON(trimmed) {
		return trimmed
	}

	blocks, err := extractCodeBlocks([]byte(raw))
	if err != nil {
		return trimmed
	}
	for _, b := range blocks {
		if b.Lang == "json" {
			return strings.TrimSpace(b.Content)
		}
	}
	for _, b := range blocks {
		if b.Lang == "" && looksLikeJSON(strings.TrimSpace(b.Content)) {
			return strings.TrimSpace(b.Content)
		}
	}
	return trimmed
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}
