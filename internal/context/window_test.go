package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/model"
)

func TestSelectMessagesDropsNonUserAssistant(t *testing.T) {
	msgs := []model.Message{
		{Role: "system", Content: "ignore me"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	}
	selected, stats := SelectMessagesWithinBudget(msgs, DefaultConfig())
	require.Len(t, selected, 2)
	assert.Equal(t, "user", selected[0].Role)
	assert.Equal(t, "assistant", selected[1].Role)
	assert.Equal(t, 3, stats.TotalMessages)
	assert.Equal(t, 2, stats.FilteredMessages)
}

func TestSelectMessagesPreservesChronologicalOrder(t *testing.T) {
	msgs := []model.Message{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}
	selected, _ := SelectMessagesWithinBudget(msgs, DefaultConfig())
	require.Len(t, selected, 3)
	assert.Equal(t, "one", selected[0].Content)
	assert.Equal(t, "two", selected[1].Content)
	assert.Equal(t, "three", selected[2].Content)
}

func TestSelectMessagesRespectsBudget(t *testing.T) {
	var msgs []model.Message
	for i := 0; i < 100; i++ {
		msgs = append(msgs, model.Message{Role: "user", Content: "this is a fairly long message to consume token budget quickly"})
	}
	cfg := Config{MaxConversationTokens: 200, AbsoluteMaxMessages: 200, TokenEstimateDivisor: 4}
	selected, stats := SelectMessagesWithinBudget(msgs, cfg)
	assert.Less(t, len(selected), 100)
	assert.LessOrEqual(t, stats.EstimatedTokens, 200+50) // only a lone newest message may exceed the budget; later ones must fit
}

func TestExtractMessageTextString(t *testing.T) {
	assert.Equal(t, "hello", ExtractMessageText("hello"))
}

func TestExtractMessageTextBlocks(t *testing.T) {
	blocks := []model.ContentBlock{
		{Type: "text", Text: "part one"},
		{Type: "tool_use", Name: "search"},
		{Type: "tool_result"},
		{Type: "image"},
	}
	text := ExtractMessageText(blocks)
	assert.Contains(t, text, "part one")
	assert.Contains(t, text, "[Tool: search]")
	assert.Contains(t, text, "[Tool Result]")
	assert.Contains(t, text, "[Image]")
}

func TestExtractMessageTextNeverObjectObject(t *testing.T) {
	inputs := []any{
		map[string]any{"foo": "bar"},
		map[string]any{"content": map[string]any{"text": "nested"}},
		[]any{map[string]any{"type": "text", "text": "inner"}},
		struct{ X int }{X: 5},
		42,
		nil,
	}
	for _, in := range inputs {
		text := ExtractMessageText(in)
		assert.NotContains(t, text, "[object Object]")
	}
}
