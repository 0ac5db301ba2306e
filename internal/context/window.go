// Package context selects the subset of a conversation's messages to feed
// the extractor within a token budget, and flattens the message-content
// polymorphism (string | block list | nested object) into plain text.
package context

import (
	"encoding/json"
	"fmt"
	"math"

	"agentmemory/internal/model"
)

// Config tunes message selection.
type Config struct {
	MaxConversationTokens int
	AbsoluteMaxMessages   int
	TokenEstimateDivisor  int
}

func DefaultConfig() Config {
	return Config{MaxConversationTokens: 12000, AbsoluteMaxMessages: 200, TokenEstimateDivisor: 4}
}

// Stats describes the selection that was made.
type Stats struct {
	TotalMessages     int
	FilteredMessages  int
	SelectedMessages  int
	EstimatedTokens   int
	BudgetUsedPercent float64
}

// SelectMessagesWithinBudget returns the chronologically-ordered subset of
// messages to feed the extractor, plus selection stats.
func SelectMessagesWithinBudget(messages []model.Message, cfg Config) ([]model.Message, Stats) {
	if cfg.TokenEstimateDivisor <= 0 {
		cfg.TokenEstimateDivisor = 4
	}
	if cfg.AbsoluteMaxMessages <= 0 {
		cfg.AbsoluteMaxMessages = 200
	}
	if cfg.MaxConversationTokens <= 0 {
		cfg.MaxConversationTokens = 12000
	}

	total := len(messages)

	filtered := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "user" || m.Role == "assistant" {
			filtered = append(filtered, m)
		}
	}

	if len(filtered) > cfg.AbsoluteMaxMessages {
		filtered = filtered[len(filtered)-cfg.AbsoluteMaxMessages:]
	}

	selectedReversed := make([]model.Message, 0, len(filtered))
	tokensUsed := 0
	for i := len(filtered) - 1; i >= 0; i-- {
		m := filtered[i]
		text := ExtractMessageText(m.Content)
		estimate := estimateTokens(m.Role, text, cfg.TokenEstimateDivisor)
		if tokensUsed+estimate > cfg.MaxConversationTokens && len(selectedReversed) > 0 {
			break
		}
		selectedReversed = append(selectedReversed, m)
		tokensUsed += estimate
	}

	selected := make([]model.Message, len(selectedReversed))
	for i, m := range selectedReversed {
		selected[len(selectedReversed)-1-i] = m
	}

	stats := Stats{
		TotalMessages:    total,
		FilteredMessages: len(filtered),
		SelectedMessages: len(selected),
		EstimatedTokens:  tokensUsed,
	}
	if cfg.MaxConversationTokens > 0 {
		stats.BudgetUsedPercent = float64(tokensUsed) / float64(cfg.MaxConversationTokens) * 100
	}
	return selected, stats
}

func estimateTokens(role, text string, divisor int) int {
	combined := role + ": " + text
	return int(math.Ceil(float64(len(combined)) / float64(divisor)))
}

// ExtractMessageText flattens message content — string, block list, or
// nested object — into a single string. It must never produce the literal
// "[object Object]": unknown shapes are serialized as JSON instead of being
// coerced with a bare fmt verb that would stringify a Go map unsafely.
func ExtractMessageText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []model.ContentBlock:
		return flattenBlocks(v)
	case []any:
		return flattenAnyBlocks(v)
	case map[string]any:
		return flattenNested(v)
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func flattenBlocks(blocks []model.ContentBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, renderBlock(b.Type, b.Text, b.Name))
	}
	return joinNonEmpty(parts)
}

func flattenAnyBlocks(items []any) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch b := item.(type) {
		case map[string]any:
			typ, _ := b["type"].(string)
			text, _ := b["text"].(string)
			name, _ := b["name"].(string)
			parts = append(parts, renderBlock(typ, text, name))
		case string:
			parts = append(parts, b)
		default:
			parts = append(parts, ExtractMessageText(item))
		}
	}
	return joinNonEmpty(parts)
}

func flattenNested(m map[string]any) string {
	if text, ok := m["text"].(string); ok {
		return text
	}
	if nested, ok := m["content"]; ok {
		return ExtractMessageText(nested)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}

func renderBlock(typ, text, name string) string {
	switch typ {
	case "text":
		return text
	case "tool_use":
		if name != "" {
			return fmt.Sprintf("[Tool: %s]", name)
		}
		return "[Tool Use]"
	case "tool_result":
		return "[Tool Result]"
	case "image", "image_url":
		return "[Image]"
	default:
		if text != "" {
			return text
		}
		return ""
	}
}

func joinNonEmpty(parts []string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}
