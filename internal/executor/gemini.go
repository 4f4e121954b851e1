package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// GeminiBackend implements Backend on the Gemini API. Schema conformance
// is requested through the prompt plus JSON response MIME type; the
// contract layer re-validates everything regardless, so a weaker model is
// a run failure, never a silent degradation.
type GeminiBackend struct {
	client *genai.Client
}

// NewGeminiBackend creates the backend. The key comes from config or the
// GEMINI_API_KEY environment override.
func NewGeminiBackend(ctx context.Context, apiKey string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiBackend{client: client}, nil
}

// Generate sends one structured-generation request. The caller's context
// carries the timeout; there is no retry, so the persisted stage input
// always matches exactly what produced the artifact.
func (b *GeminiBackend) Generate(ctx context.Context, model, prompt string, input json.RawMessage, schema string) (string, error) {
	user := fmt.Sprintf(
		"%s\n\nStage input (JSON):\n%s\n\nReply with a single JSON object conforming to this JSON schema, nothing else:\n%s",
		prompt, input, schema)

	resp, err := b.client.Models.GenerateContent(ctx, model, genai.Text(user), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}
