// Package capture implements the auto-capture pipeline: it mines a
// just-completed conversation turn for facts and persists them, in the
// orchestration style of the reference backend's internal/service/memory
// package (validate -> extract -> persist, swallow-and-log on partial
// failure, never raise into the caller).
package capture

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	memctx "agentmemory/internal/context"
	"agentmemory/internal/dedupe"
	"agentmemory/internal/embed"
	"agentmemory/internal/llm"
	"agentmemory/internal/model"
	"agentmemory/internal/noise"
	"agentmemory/internal/scope"
	"agentmemory/internal/store"
	"agentmemory/internal/vector"
)

// Pipeline wires together the components auto-capture orchestrates.
type Pipeline struct {
	store     *store.Store
	vec       *vector.Gateway
	embedder  *embed.Gateway
	extractor *llm.Service
	guard     *Guard
	windowCfg memctx.Config
	log       *zap.Logger
}

func New(st *store.Store, vec *vector.Gateway, embedder *embed.Gateway, extractor *llm.Service, windowCfg memctx.Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{store: st, vec: vec, embedder: embedder, extractor: extractor, guard: &Guard{}, windowCfg: windowCfg, log: log}
}

// Outcome summarizes what one Run accomplished, for tool/caller reporting.
type Outcome struct {
	Ran            bool
	SlotsUpdated   int
	SlotsRemoved   int
	MemoriesStored int
	Reason         string
}

// Run executes the full auto-capture state machine for one agent_end event.
// It never returns an error to the agent runtime: any unexpected failure is
// logged and swallowed, per the design's error handling policy for hooks.
func (p *Pipeline) Run(ctx context.Context, user, agent string, messages []model.Message) Outcome {
	if !p.guard.TryAcquire() {
		return Outcome{Ran: false, Reason: "already capturing"}
	}
	defer p.guard.Release()

	filter := noise.New(agent)
	if filter.IsBlocked() {
		return Outcome{Ran: false, Reason: "agent blocked"}
	}

	for _, m := range messages {
		if noise.IsSelfGenerated(memctx.ExtractMessageText(m.Content)) {
			return Outcome{Ran: false, Reason: "self-generated content detected"}
		}
	}

	combinedText := combineMessages(messages)
	if filter.ShouldSkip(combinedText) {
		return Outcome{Ran: false, Reason: "noise filter skip"}
	}

	selected, _ := memctx.SelectMessagesWithinBudget(messages, p.windowCfg)
	conversationText := combineMessages(selected)

	key := scope.Resolve(user, agent, scope.TierPrivate)
	currentSlots, err := p.store.GetCurrentState(key)
	if err != nil {
		p.log.Warn("auto-capture failed to read current state", zap.Error(err))
		return Outcome{Ran: false, Reason: "failed to read current state"}
	}

	result := p.extractor.Extract(ctx, conversationText, currentSlots)

	outcome := Outcome{Ran: true}

	for _, removal := range result.SlotRemovals {
		removed, err := p.store.Delete(key, removal.Key)
		if err != nil {
			p.log.Warn("auto-capture slot removal failed", zap.String("key", removal.Key), zap.Error(err))
			continue
		}
		if removed {
			outcome.SlotsRemoved++
		}
	}

	for _, update := range result.SlotUpdates {
		_, err := p.store.Set(key, model.SetSlotInput{
			Key:        update.Key,
			Value:      update.Value,
			Category:   update.Category,
			Source:     model.SourceAutoCapture,
			Confidence: update.Confidence,
		})
		if err != nil {
			p.log.Warn("auto-capture slot update failed", zap.String("key", update.Key), zap.Error(err))
			continue
		}
		outcome.SlotsUpdated++
	}

	for _, mem := range result.Memories {
		if err := p.persistMemory(ctx, user, agent, filter, mem); err != nil {
			p.log.Warn("auto-capture memory persistence failed", zap.Error(err))
			continue
		}
		outcome.MemoriesStored++
	}

	return outcome
}

func (p *Pipeline) persistMemory(ctx context.Context, user, agent string, filter *noise.Filter, mem llm.MemoryCandidate) error {
	namespace := mem.Namespace
	if namespace == "" {
		namespace = filter.GetTargetNamespace()
	}
	vec := p.embedder.Embed(ctx, mem.Text)

	candidates, err := p.vec.Search(ctx, vec, 5, &vector.Filter{Must: []vector.Condition{
		vector.MatchField("namespace", namespace),
		vector.MatchField("userId", user),
	}})
	if err != nil {
		p.log.Warn("auto-capture dedupe search failed, proceeding as new memory", zap.Error(err))
		candidates = nil
	}

	dupeCandidates := make([]dedupe.Candidate, 0, len(candidates))
	for _, c := range candidates {
		dupeCandidates = append(dupeCandidates, dedupe.Candidate{ID: c.ID, Score: c.Score})
	}
	id := dedupe.FindDuplicate(dupeCandidates, dedupe.DefaultThreshold)
	now := time.Now().UTC()
	if id == "" {
		id = uuid.NewString()
	}

	point := model.MemoryPoint{
		ID:          id,
		Vector:      vec,
		Text:        mem.Text,
		Namespace:   namespace,
		SourceAgent: agent,
		SourceType:  model.SourceTypeAutoCapture,
		UserID:      user,
		Timestamp:   now,
		UpdatedAt:   now,
		Confidence:  mem.Confidence,
	}
	return p.vec.Upsert(ctx, []model.MemoryPoint{point})
}

func combineMessages(messages []model.Message) string {
	out := ""
	for _, m := range messages {
		text := memctx.ExtractMessageText(m.Content)
		if text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += m.Role + ": " + text
	}
	return out
}
