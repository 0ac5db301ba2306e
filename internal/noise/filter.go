package noise

import (
	"github.com/coregx/ahocorasick"
)

// blockedAgents is the static agent blocklist: auto-capture never runs for
// these agent ids regardless of content.
var blockedAgents = map[string]bool{
	"system":  true,
	"debug":   true,
	"sandbox": true,
}

var generalNoisePatterns = []string{
	"let me think",
	"i'll help you with that",
	"as an ai",
	"i cannot",
	"sure, here",
	"one moment",
}

var tradingSignalPatterns = []string{
	"buy signal",
	"sell signal",
	"long position",
	"short position",
	"stop loss",
	"take profit",
	"entry price",
}

// namespaceTable maps agent id to its ordered search-list, first entry is
// the auto-capture default destination.
var namespaceTable = map[string][]string{
	"assistant": {"agent_decisions", "user_profile"},
	"scrum":     {"agent_decisions", "project_context"},
	"fullstack": {"agent_decisions", "project_context"},
	"creator":   {"agent_decisions", "project_context"},
	"trader":    {"trading_signals", "agent_decisions"},
}

var defaultNamespaces = []string{"agent_decisions"}

// autocaptureMarkers are substrings that identify text emitted by this
// subsystem's own pipelines, used to prevent self-triggering capture loops.
var autocaptureMarkers = []string{
	"[autocapture]",
	"memory stored",
	"memory updated",
}

// automaton wraps a built Aho-Corasick scanner over a fixed pattern set, so
// adding patterns never turns matching into an O(n) series of substring
// scans — it stays a single pass over the canonicalized text. Patterns are
// canonicalized the same way as the text they are matched against.
type automaton struct {
	ac *ahocorasick.Automaton
}

func buildAutomaton(patterns []string) *automaton {
	canonPatterns := make([]string, 0, len(patterns))
	for _, p := range patterns {
		canonPatterns = append(canonPatterns, CanonicalizeForMatch(p))
	}
	built, err := ahocorasick.NewBuilder().
		AddStrings(canonPatterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return &automaton{}
	}
	return &automaton{ac: built}
}

func (a *automaton) matchesAny(text string) bool {
	if a.ac == nil {
		return false
	}
	canon := CanonicalizeForMatch(text)
	matches := a.ac.FindAllOverlapping([]byte(canon))
	return len(matches) > 0
}

var generalAutomaton = buildAutomaton(generalNoisePatterns)
var tradingAutomaton = buildAutomaton(tradingSignalPatterns)
var markerAutomaton = buildAutomaton(autocaptureMarkers)

// Filter is a per-agent noise filter.
type Filter struct {
	agent string
}

func New(agent string) *Filter {
	return &Filter{agent: agent}
}

// IsBlocked reports whether this agent is on the static blocklist.
func (f *Filter) IsBlocked() bool {
	return blockedAgents[f.agent]
}

// ShouldSkip reports whether text matches a general noise pattern, or — for
// the trader agent specifically — a trading-signal pattern (trading content
// is otherwise captured only via explicit tool calls, not auto-capture).
func (f *Filter) ShouldSkip(text string) bool {
	if generalAutomaton.matchesAny(text) {
		return true
	}
	if f.agent == "trader" && tradingAutomaton.matchesAny(text) {
		return true
	}
	return false
}

// GetTargetNamespace returns this agent's default auto-capture destination
// namespace (the first entry of its search list).
func (f *Filter) GetTargetNamespace() string {
	return f.SearchNamespaces()[0]
}

// SearchNamespaces returns this agent's full ordered namespace search list.
func (f *Filter) SearchNamespaces() []string {
	if ns, ok := namespaceTable[f.agent]; ok {
		return ns
	}
	return defaultNamespaces
}

// IsSelfGenerated reports whether text matches one of this subsystem's own
// internal markers, used by auto-capture to avoid recursively capturing its
// own synthetic messages.
func IsSelfGenerated(text string) bool {
	return markerAutomaton.matchesAny(text)
}
