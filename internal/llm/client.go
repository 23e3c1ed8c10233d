// Package llm talks to the external collaborator. The only request the
// suggestion engine ever issues itself is the fallback: asking for a
// search/replace rewrite of an edit whose diff representation failed to
// apply.
package llm

import (
	"context"

	"texpatch/model"
)

// FallbackResponse is the collaborator's answer to a fallback request.
type FallbackResponse struct {
	Explanation string                     `json:"explanation"`
	Blocks      []model.SearchReplaceBlock `json:"search_replace_blocks"`
}

// Client requests alternate representations of a proposed edit.
type Client interface {
	// RequestSearchReplace sends the stored conversation context and asks
	// for the same intended edit expressed as exact search/replace blocks.
	// modelID selects the collaborator model; empty means the client's
	// default.
	RequestSearchReplace(ctx context.Context, conversation []model.Message, modelID string) (*FallbackResponse, error)
}

// Unavailable is a Client that fails every request with a fixed error.
// It stands in when no collaborator is configured, so the lifecycle can
// still run and report why the fallback cannot happen.
func Unavailable(err error) Client {
	return unavailableClient{err: err}
}

type unavailableClient struct{ err error }

func (c unavailableClient) RequestSearchReplace(ctx context.Context, conversation []model.Message, modelID string) (*FallbackResponse, error) {
	return nil, c.err
}

// fallbackInstruction frames the rewrite request. The conversation context
// already carries the document snapshot and the failed diff.
const fallbackInstruction = `The unified diff you proposed could not be applied to the document. ` +
	`Re-express the SAME intended edit as exact search/replace blocks. ` +
	`Respond with JSON only: {"explanation": string, "search_replace_blocks": ` +
	`[{"search": string, "replace": string, "explanation": string}]}. ` +
	`Each "search" must be copied verbatim from the document and must occur exactly once.`
