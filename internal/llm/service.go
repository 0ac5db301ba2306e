package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// volatileStatusKeys is the closed set of slot keys the extractor must
// actively check for staleness, named directly in the system prompt.
var volatileStatusKeys = []string{
	"project.current",
	"project.current_task",
	"project.current_epic",
	"project.phase",
	"project.status",
}

var allowedNamespaces = []string{"agent_decisions", "user_profile", "project_context", "trading_signals"}

// SlotUpdate is one proposed slot write from the extractor.
type SlotUpdate struct {
	Key        string  `json:"key"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
}

// SlotRemoval is one proposed slot deletion from the extractor.
type SlotRemoval struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// MemoryCandidate is one proposed durable memory from the extractor.
type MemoryCandidate struct {
	Text       string  `json:"text"`
	Namespace  string  `json:"namespace"`
	Confidence float64 `json:"confidence"`
}

// Result is the extractor's full output for one conversation turn.
type Result struct {
	SlotUpdates  []SlotUpdate      `json:"slot_updates"`
	SlotRemovals []SlotRemoval     `json:"slot_removals"`
	Memories     []MemoryCandidate `json:"memories"`
}

func emptyResult() Result {
	return Result{SlotUpdates: []SlotUpdate{}, SlotRemovals: []SlotRemoval{}, Memories: []MemoryCandidate{}}
}

// Service drives extraction against a Provider.
type Service struct {
	provider     Provider
	minConfidence float64
	log          *zap.Logger
}

func NewService(provider Provider, minConfidence float64, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{provider: provider, minConfidence: minConfidence, log: log}
}

func (s *Service) IsAvailable() bool {
	return s.provider != nil && s.provider.IsAvailable()
}

// Extract mines conversationText for slot updates/removals and durable
// memories, given the caller's current (already internal-key-stripped)
// slot snapshot. On any failure it returns an empty result rather than
// propagating — per the design, extraction failures must not crash the
// auto-capture caller.
//
// Slot removals are intentionally NOT confidence-filtered here, matching
// the extractor contract's literal wording that only slot_updates and
// memories are gated on minConfidence (see DESIGN.md open question 1).
// The prompt points the model at the volatileStatusKeys list above, but
// removals are not restricted to those keys: every returned removal is
// passed through.
func (s *Service) Extract(ctx context.Context, conversationText string, currentSlots map[string]map[string]any) Result {
	if s.provider == nil || !s.provider.IsAvailable() {
		return emptyResult()
	}
	prompt := s.buildExtractionPrompt(conversationText, currentSlots)
	raw, err := s.provider.Complete(ctx, prompt, CompletionOptions{Temperature: 0.3, MaxTokens: 800, Format: "json"})
	if err != nil {
		s.log.Warn("llm extraction call failed", zap.Error(err))
		return emptyResult()
	}
	result, err := parseExtractionResponse(raw)
	if err != nil {
		s.log.Warn("llm extraction response parse failed", zap.Error(err))
		return emptyResult()
	}
	return s.filterByConfidence(result)
}

func (s *Service) filterByConfidence(result Result) Result {
	filtered := emptyResult()
	for _, u := range result.SlotUpdates {
		if u.Confidence >= s.minConfidence {
			filtered.SlotUpdates = append(filtered.SlotUpdates, u)
		}
	}
	filtered.SlotRemovals = result.SlotRemovals
	for _, m := range result.Memories {
		if m.Confidence >= s.minConfidence {
			filtered.Memories = append(filtered.Memories, m)
		}
	}
	return filtered
}

func (s *Service) buildExtractionPrompt(conversationText string, currentSlots map[string]map[string]any) string {
	slotsJSON, _ := json.MarshalIndent(currentSlots, "", "  ")

	var sb strings.Builder
	sb.WriteString("You are a memory extraction engine for a conversational agent. You have three jobs:\n")
	sb.WriteString("1. Propose slot_updates: new or changed structured facts about the user, their preferences, the current project, or the environment.\n")
	sb.WriteString("2. Propose slot_removals: keys that are now stale and should be deleted, ")
	sb.WriteString("with special attention to these volatile status keys which change often: ")
	sb.WriteString(strings.Join(volatileStatusKeys, ", ") + ".\n")
	sb.WriteString("3. Propose memories: durable free-text facts worth remembering long-term, each tagged with one namespace from: ")
	sb.WriteString(strings.Join(allowedNamespaces, ", ") + ".\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Only propose a slot_update or memory with confidence > 0.6.\n")
	sb.WriteString("- A slot_removal should be proposed whenever the conversation makes a prior value for one of those keys obsolete, even with lower certainty.\n")
	sb.WriteString("- Reply with JSON only, no prose, matching exactly this shape:\n")
	sb.WriteString(`{"slot_updates":[{"key":"","value":"","confidence":0.0,"category":""}],"slot_removals":[{"key":"","reason":""}],"memories":[{"text":"","namespace":"","confidence":0.0}]}`)
	sb.WriteString("\n\nCurrent slots:\n")
	sb.Write(slotsJSON)
	sb.WriteString("\n\n--- CONVERSATION START ---\n")
	sb.WriteString(conversationText)
	sb.WriteString("\n--- CONVERSATION END ---\n")
	return sb.String()
}

// parseExtractionResponse strips markdown code fences if present, then
// locates the first {...} block and parses it, matching the reference
// backend's parseCategorizationResponse fence-stripping idiom.
func parseExtractionResponse(raw string) (Result, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return Result{}, fmt.Errorf("no JSON object found in response")
	}
	block := text[start : end+1]

	var result Result
	if err := json.Unmarshal([]byte(block), &result); err != nil {
		return Result{}, err
	}
	if result.SlotUpdates == nil {
		result.SlotUpdates = []SlotUpdate{}
	}
	if result.SlotRemovals == nil {
		result.SlotRemovals = []SlotRemoval{}
	}
	if result.Memories == nil {
		result.Memories = []MemoryCandidate{}
	}
	return result, nil
}
