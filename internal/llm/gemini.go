package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// geminiClient implements Client with the Google GenAI SDK. The underlying
// client needs a context to construct, so it is created on first use.
type geminiClient struct {
	api    *genai.Client
	apiKey string
	model  string
}

func newGeminiClient(apiKey, model string) *geminiClient {
	return &geminiClient{apiKey: apiKey, model: model}
}

func (c *geminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.api == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return "", fmt.Errorf("create gemini client: %w", err)
		}
		c.api = client
	}

	system, rest := splitMessages(req.Messages)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if budget := thinkingBudget("gemini", req.ReasoningEffort); budget > 0 {
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(budget)),
		}
	}

	var parts []string
	for _, m := range rest {
		parts = append(parts, m.Content)
	}
	contents := genai.Text(strings.Join(parts, "\n\n"))

	result, err := c.api.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini API call: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return text, nil
}
