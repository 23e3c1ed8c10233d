package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"texpatch/internal/parser"
	"texpatch/model"
)

const defaultModel = "gemini-2.5-flash"

// GeminiConfig holds configuration for the Gemini fallback client.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiClient implements Client against the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed fallback client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: Gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create Gemini client: %w", err)
	}
	m := cfg.Model
	if m == "" {
		m = defaultModel
	}
	return &GeminiClient{client: client, model: m}, nil
}

func (c *GeminiClient) RequestSearchReplace(ctx context.Context, conversation []model.Message, modelID string) (*FallbackResponse, error) {
	contents := make([]*genai.Content, 0, len(conversation)+1)
	for _, msg := range conversation {
		role := genai.Role(genai.RoleUser)
		if msg.Role == "assistant" || msg.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(fallbackInstruction, genai.RoleUser))

	m := modelID
	if m == "" {
		m = c.model
	}

	resp, err := c.client.Models.GenerateContent(ctx, m, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("llm: fallback request: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("llm: empty fallback response")
	}

	var fr FallbackResponse
	if err := json.Unmarshal([]byte(parser.ExtractJSON(text)), &fr); err != nil {
		return nil, fmt.Errorf("llm: decode fallback response: %w", err)
	}
	if len(fr.Blocks) == 0 {
		return nil, fmt.Errorf("llm: fallback response contains no search/replace blocks")
	}
	return &fr, nil
}
