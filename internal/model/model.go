// Package model holds the plain data types shared across the memory
// subsystem's components: slots, graph entities/relationships, and the
// messages auto-capture and the context window operate over.
package model

import "time"

// Category is the closed set of known slot category prefixes, plus the
// custom fallback.
const (
	CategoryProfile     = "profile"
	CategoryPreferences = "preferences"
	CategoryProject     = "project"
	CategoryEnvironment = "environment"
	CategoryCustom      = "custom"
)

var knownCategories = map[string]bool{
	CategoryProfile:     true,
	CategoryPreferences: true,
	CategoryProject:     true,
	CategoryEnvironment: true,
}

// InferCategory derives a slot's category from the first dot-segment of its
// key, falling back to "custom" when the segment isn't a known category.
func InferCategory(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			prefix := key[:i]
			if knownCategories[prefix] {
				return prefix
			}
			return CategoryCustom
		}
	}
	if knownCategories[key] {
		return key
	}
	return CategoryCustom
}

// Source identifies how a slot came to be written.
type Source string

const (
	SourceAutoCapture Source = "auto_capture"
	SourceManual      Source = "manual"
	SourceTool        Source = "tool"
)

// Slot is a structured, versioned fact scoped to (user, agent, key).
type Slot struct {
	User       string
	Agent      string
	Key        string
	Category   string
	Value      any
	Source     Source
	Confidence float64
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ExpiresAt  *time.Time
}

// SetSlotInput is the caller-supplied payload for SlotStore.Set.
type SetSlotInput struct {
	Key        string
	Value      any
	Category   string
	Source     Source
	Confidence float64
	ExpiresAt  *time.Time
}

// Entity is a graph node.
type Entity struct {
	ID         string
	User       string
	Agent      string
	Name       string
	Type       string
	Properties map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RelationDirection selects which side of a relationship to traverse.
type RelationDirection string

const (
	DirectionOutgoing RelationDirection = "outgoing"
	DirectionIncoming RelationDirection = "incoming"
	DirectionBoth     RelationDirection = "both"
)

// Relationship is a directed, weighted edge between two entities.
type Relationship struct {
	ID           string
	User         string
	Agent        string
	SourceID     string
	TargetID     string
	RelationType string
	Weight       float64
	Properties   map[string]any
	CreatedAt    time.Time
}

// EntityFilter narrows listEntities results.
type EntityFilter struct {
	Type        string
	NameContains string
}

// MemoryPoint is the payload stored alongside a vector in the vector gateway.
type MemoryPoint struct {
	ID         string
	Vector     []float32
	Text       string
	Namespace  string
	SourceAgent string
	SourceType string
	UserID     string
	SessionID  string
	Timestamp  time.Time
	UpdatedAt  time.Time
	Confidence float64
	Tags       []string
	Metadata   map[string]any
}

const (
	SourceTypeAutoCapture = "auto_capture"
	SourceTypeManual      = "manual"
	SourceTypeToolCall    = "tool_call"
)

// Namespaces is the closed set of vector-store namespaces.
const (
	NamespaceAgentDecisions  = "agent_decisions"
	NamespaceUserProfile     = "user_profile"
	NamespaceProjectContext  = "project_context"
	NamespaceTradingSignals  = "trading_signals"
)

// SearchResult is a single ranked hit from the vector gateway.
type SearchResult struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Message is a single turn in a conversation, as delivered by the host.
// Content is a sum type: string, []ContentBlock, or a nested map — handled
// by context.ExtractMessageText.
type Message struct {
	Role    string
	Content any
}

// ContentBlock is one element of a list-of-blocks message content.
type ContentBlock struct {
	Type string
	Text string
	Name string
}
