package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openaiClient implements Client with the OpenAI Chat Completions API.
type openaiClient struct {
	api   openai.Client
	model string
}

func newOpenAIClient(apiKey, model string) *openaiClient {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &openaiClient{
		api:   openai.NewClient(opts...),
		model: model,
	}
}

func (c *openaiClient) Complete(ctx context.Context, req Request) (string, error) {
	system, rest := splitMessages(req.Messages)

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
	}
	if system != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(system))
	}
	for _, m := range rest {
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		} else {
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.ReasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(req.ReasoningEffort)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai API call: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return resp.Choices[0].Message.Content, nil
}
