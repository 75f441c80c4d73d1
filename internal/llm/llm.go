// Package llm provides a provider-agnostic completion client. Model
// identifiers carry a provider prefix ("anthropic/claude-sonnet-4-5");
// provider capabilities are looked up in a table rather than branched on
// inline, so callers stay provider-agnostic.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prompt message.
type Message struct {
	Role    string
	Content string
}

// Request is a completion request. ReasoningEffort is an optional hint
// ("low", "medium", "high") ignored by providers that do not support it.
type Request struct {
	Messages        []Message
	MaxTokens       int
	ReasoningEffort string
}

// Client completes prompts against one configured model.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Capability describes what a provider supports. ThinkingBudgets maps
// reasoning effort to a token budget for providers that express reasoning
// as a budget rather than an effort level.
type Capability struct {
	SupportsReasoning bool
	ThinkingBudgets   map[string]int
}

var providerCapabilities = map[string]Capability{
	"anthropic": {
		SupportsReasoning: true,
		ThinkingBudgets:   map[string]int{"low": 2048, "medium": 8192, "high": 16384},
	},
	"openai": {
		SupportsReasoning: true,
	},
	"gemini": {
		SupportsReasoning: true,
		ThinkingBudgets:   map[string]int{"low": 2048, "medium": 8192, "high": 24576},
	},
}

// ParseModel splits a provider-prefixed model identifier. An unknown
// provider or malformed identifier is an error; this is the fatal
// configuration check, so it happens before any pipeline work.
func ParseModel(id string) (provider, name string, err error) {
	provider, name, ok := strings.Cut(id, "/")
	if !ok || provider == "" || name == "" {
		return "", "", fmt.Errorf("model %q must have the form provider/name", id)
	}
	if _, known := providerCapabilities[provider]; !known {
		return "", "", fmt.Errorf("unknown model provider %q (supported: anthropic, openai, gemini)", provider)
	}
	return provider, name, nil
}

// CapabilityFor returns the capability descriptor for a provider.
func CapabilityFor(provider string) (Capability, bool) {
	c, ok := providerCapabilities[provider]
	return c, ok
}

// New creates a client for a provider-prefixed model identifier. An empty
// apiKey defers to each SDK's environment-variable lookup.
func New(modelID, apiKey string) (Client, error) {
	provider, name, err := ParseModel(modelID)
	if err != nil {
		return nil, err
	}
	switch provider {
	case "anthropic":
		return newAnthropicClient(apiKey, name), nil
	case "openai":
		return newOpenAIClient(apiKey, name), nil
	case "gemini":
		return newGeminiClient(apiKey, name), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", provider)
	}
}

// thinkingBudget maps a reasoning effort to a provider's token budget,
// returning 0 when the hint should be ignored.
func thinkingBudget(provider, effort string) int {
	c, ok := providerCapabilities[provider]
	if !ok || !c.SupportsReasoning || effort == "" {
		return 0
	}
	return c.ThinkingBudgets[effort]
}

// splitMessages separates system messages from the conversation, since
// every provider wants the system prompt out of band.
func splitMessages(messages []Message) (system string, rest []Message) {
	var sys []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			sys = append(sys, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(sys, "\n\n"), rest
}
