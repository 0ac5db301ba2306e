package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFiltersLowConfidenceUpdatesAndMemories(t *testing.T) {
	raw := `Sure, here you go:
` + "```json\n" + `{
		"slot_updates": [
			{"key": "profile.name", "value": "MrC", "confidence": 0.9, "category": "profile"},
			{"key": "hobby.x", "value": "y", "confidence": 0.4, "category": "custom"}
		],
		"slot_removals": [{"key": "project.current_epic", "reason": "phase complete"}],
		"memories": [
			{"text": "likes chess", "namespace": "user_profile", "confidence": 0.8},
			{"text": "low conf", "namespace": "user_profile", "confidence": 0.2}
		]
	}` + "\n```"

	svc := NewService(NewMockProvider(raw), 0.7, nil)
	result := svc.Extract(context.Background(), "conversation", map[string]map[string]any{})

	require.Len(t, result.SlotUpdates, 1)
	assert.Equal(t, "profile.name", result.SlotUpdates[0].Key)
	require.Len(t, result.Memories, 1)
	assert.Equal(t, "likes chess", result.Memories[0].Text)
	require.Len(t, result.SlotRemovals, 1)
	assert.Equal(t, "project.current_epic", result.SlotRemovals[0].Key)
}

func TestExtractReturnsEmptyOnProviderError(t *testing.T) {
	svc := NewService(NewFailingMockProvider(errors.New("timeout")), 0.7, nil)
	result := svc.Extract(context.Background(), "conversation", nil)
	assert.Empty(t, result.SlotUpdates)
	assert.Empty(t, result.Memories)
	assert.Empty(t, result.SlotRemovals)
}

func TestExtractReturnsEmptyOnUnparsableResponse(t *testing.T) {
	svc := NewService(NewMockProvider("not json at all"), 0.7, nil)
	result := svc.Extract(context.Background(), "conversation", nil)
	assert.Empty(t, result.SlotUpdates)
}

func TestExtractReturnsEmptyWhenProviderUnavailable(t *testing.T) {
	svc := NewService(NewUnavailableMockProvider(), 0.7, nil)
	result := svc.Extract(context.Background(), "conversation", nil)
	assert.Empty(t, result.SlotUpdates)
}

func TestParseExtractionResponseStripsFences(t *testing.T) {
	raw := "```json\n{\"slot_updates\":[],\"slot_removals\":[],\"memories\":[]}\n```"
	result, err := parseExtractionResponse(raw)
	require.NoError(t, err)
	assert.Empty(t, result.SlotUpdates)
}
