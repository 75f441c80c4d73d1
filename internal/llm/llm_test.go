package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModel(t *testing.T) {
	t.Run("valid identifiers", func(t *testing.T) {
		for id, want := range map[string][2]string{
			"anthropic/claude-sonnet-4-5": {"anthropic", "claude-sonnet-4-5"},
			"openai/gpt-5":                {"openai", "gpt-5"},
			"gemini/gemini-2.5-pro":       {"gemini", "gemini-2.5-pro"},
		} {
			provider, name, err := ParseModel(id)
			require.NoError(t, err, id)
			assert.Equal(t, want[0], provider)
			assert.Equal(t, want[1], name)
		}
	})

	t.Run("missing prefix", func(t *testing.T) {
		_, _, err := ParseModel("claude-sonnet-4-5")
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, _, err := ParseModel("mistral/large")
		assert.Error(t, err)
	})

	t.Run("empty name", func(t *testing.T) {
		_, _, err := ParseModel("anthropic/")
		assert.Error(t, err)
	})
}

func TestCapabilityFor(t *testing.T) {
	c, ok := CapabilityFor("anthropic")
	require.True(t, ok)
	assert.True(t, c.SupportsReasoning)

	_, ok = CapabilityFor("nope")
	assert.False(t, ok)
}

func TestThinkingBudget(t *testing.T) {
	assert.Equal(t, 8192, thinkingBudget("anthropic", "medium"))
	assert.Equal(t, 0, thinkingBudget("anthropic", ""))
	assert.Equal(t, 0, thinkingBudget("openai", "high"), "openai expresses effort directly, not as a budget")
	assert.Equal(t, 0, thinkingBudget("unknown", "high"))
}

func TestSplitMessages(t *testing.T) {
	system, rest := splitMessages([]Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleSystem, Content: "use go"},
		{Role: RoleAssistant, Content: "hi"},
	})

	assert.Equal(t, "be terse\n\nuse go", system)
	require.Len(t, rest, 2)
	assert.Equal(t, RoleUser, rest[0].Role)
	assert.Equal(t, RoleAssistant, rest[1].Role)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New("badprovider/model", "")
	assert.Error(t, err)

	client, err := New("anthropic/claude-sonnet-4-5", "test-key")
	require.NoError(t, err)
	assert.NotNil(t, client)
}
