// Package tools mediates between the agent runtime's tool-call surface and
// the memory subsystem's components, in the thin-handler style of the
// reference backend's REST layer (handler -> service call -> typed
// response) adapted from an HTTP transport to an in-process call surface,
// since the host's transport is out of scope for this subsystem.
package tools

import (
	"context"
	"fmt"

	"agentmemory/internal/capture"
	"agentmemory/internal/dedupe"
	"agentmemory/internal/embed"
	"agentmemory/internal/model"
	"agentmemory/internal/rank"
	"agentmemory/internal/recall"
	"agentmemory/internal/scope"
	"agentmemory/internal/store"
	"agentmemory/internal/vector"
	"agentmemory/pkg/apperr"
)

// Result is the summary-plus-details contract every tool returns.
type Result struct {
	Summary string
	Details any
	IsError bool
}

func errResult(err error) Result {
	kind := apperr.KindInternal
	if ae, ok := err.(*apperr.Error); ok {
		kind = ae.Kind
	}
	return Result{Summary: err.Error(), Details: map[string]any{"kind": kind}, IsError: true}
}

// Dispatcher owns no state; it resolves scope and calls straight through to
// the owning component.
type Dispatcher struct {
	store    *store.Store
	vec      *vector.Gateway
	embedder *embed.Gateway
	capture  *capture.Pipeline
	recall   *recall.Engine
}

func New(st *store.Store, vec *vector.Gateway, embedder *embed.Gateway, cap *capture.Pipeline, rec *recall.Engine) *Dispatcher {
	return &Dispatcher{store: st, vec: vec, embedder: embedder, capture: cap, recall: rec}
}

func resolveTier(tierStr string) scope.Tier {
	switch tierStr {
	case "team":
		return scope.TierTeam
	case "public":
		return scope.TierPublic
	default:
		return scope.TierPrivate
	}
}

// isAllTiers reports whether the caller asked for a cross-tier view, per the
// tool table's scope? ∈ {private|team|public|all}.
func isAllTiers(tierStr string) bool {
	return tierStr == "all"
}

// MemorySlotGet implements the memory_slot_get tool. When tierStr is "all"
// it checks private, then team, then public, and returns the first hit.
func (d *Dispatcher) MemorySlotGet(user, agent, key, category, tierStr string) Result {
	if isAllTiers(tierStr) {
		if key != "" {
			for i, tk := range scope.AllTiersFor(user, agent) {
				slot, err := d.store.Get(tk, key)
				if err != nil {
					return errResult(err)
				}
				if slot != nil {
					return Result{Summary: fmt.Sprintf("%s = %v (v%d, tier=%s)", slot.Key, slot.Value, slot.Version, scope.TiersInOrder()[i]), Details: slot}
				}
			}
			return Result{Summary: fmt.Sprintf("no slot found for key %q", key), Details: nil}
		}
		grouped := map[string][]*model.Slot{}
		total := 0
		for i, tk := range scope.AllTiersFor(user, agent) {
			var slots []*model.Slot
			var err error
			if category != "" {
				slots, err = d.store.ListByCategory(tk, category)
			} else {
				slots, err = d.store.List(tk, "")
			}
			if err != nil {
				return errResult(err)
			}
			tier := string(scope.TiersInOrder()[i])
			grouped[tier] = slots
			total += len(slots)
		}
		return Result{Summary: fmt.Sprintf("found %d slots across all tiers", total), Details: grouped}
	}

	key2 := scope.Resolve(user, agent, resolveTier(tierStr))
	if key != "" {
		slot, err := d.store.Get(key2, key)
		if err != nil {
			return errResult(err)
		}
		if slot == nil {
			return Result{Summary: fmt.Sprintf("no slot found for key %q", key), Details: nil}
		}
		return Result{Summary: fmt.Sprintf("%s = %v (v%d)", slot.Key, slot.Value, slot.Version), Details: slot}
	}
	var slots []*model.Slot
	var err error
	if category != "" {
		slots, err = d.store.ListByCategory(key2, category)
	} else {
		slots, err = d.store.List(key2, "")
	}
	if err != nil {
		return errResult(err)
	}
	return Result{Summary: fmt.Sprintf("found %d slots", len(slots)), Details: slots}
}

// MemorySlotSet implements the memory_slot_set tool.
func (d *Dispatcher) MemorySlotSet(user, agent, key string, value any, category, source, tierStr string) Result {
	if key == "" {
		return errResult(apperr.NewValidation("missing_key", "key is required"))
	}
	key2 := scope.Resolve(user, agent, resolveTier(tierStr))
	src := model.Source(source)
	if src == "" {
		src = model.SourceManual
	}
	slot, err := d.store.Set(key2, model.SetSlotInput{Key: key, Value: value, Category: category, Source: src, Confidence: 1.0})
	if err != nil {
		return errResult(err)
	}
	return Result{Summary: fmt.Sprintf("set %s = %v (v%d)", slot.Key, slot.Value, slot.Version), Details: slot}
}

// MemorySlotList implements the memory_slot_list tool. When tierStr is "all"
// it returns a grouped-per-tier result instead of a single flat list.
func (d *Dispatcher) MemorySlotList(user, agent, category, prefix, tierStr string) Result {
	if isAllTiers(tierStr) {
		grouped := map[string][]*model.Slot{}
		total := 0
		for i, tk := range scope.AllTiersFor(user, agent) {
			var slots []*model.Slot
			var err error
			if category != "" {
				slots, err = d.store.ListByCategory(tk, category)
			} else {
				slots, err = d.store.List(tk, prefix)
			}
			if err != nil {
				return errResult(err)
			}
			tier := string(scope.TiersInOrder()[i])
			grouped[tier] = slots
			total += len(slots)
		}
		return Result{Summary: fmt.Sprintf("found %d slots across all tiers", total), Details: grouped}
	}

	key2 := scope.Resolve(user, agent, resolveTier(tierStr))
	var slots []*model.Slot
	var err error
	if category != "" {
		slots, err = d.store.ListByCategory(key2, category)
	} else {
		slots, err = d.store.List(key2, prefix)
	}
	if err != nil {
		return errResult(err)
	}
	return Result{Summary: fmt.Sprintf("found %d slots", len(slots)), Details: slots}
}

// MemorySlotDelete implements the memory_slot_delete tool.
func (d *Dispatcher) MemorySlotDelete(user, agent, key string) Result {
	key2 := scope.Resolve(user, agent, scope.TierPrivate)
	deleted, err := d.store.Delete(key2, key)
	if err != nil {
		return errResult(err)
	}
	return Result{Summary: fmt.Sprintf("deleted=%v", deleted), Details: deleted}
}

// MemoryGraphEntityGet implements the memory_graph_entity_get tool.
func (d *Dispatcher) MemoryGraphEntityGet(user, agent, id, typ, name string) Result {
	key2 := scope.Resolve(user, agent, scope.TierPrivate)
	if id != "" {
		ent, err := d.store.GetEntity(key2, id)
		if err != nil {
			return errResult(err)
		}
		if ent == nil {
			return Result{Summary: fmt.Sprintf("no entity found for id %q", id)}
		}
		return Result{Summary: fmt.Sprintf("%s (%s)", ent.Name, ent.Type), Details: ent}
	}
	entities, err := d.store.ListEntities(key2, model.EntityFilter{Type: typ, NameContains: name})
	if err != nil {
		return errResult(err)
	}
	return Result{Summary: fmt.Sprintf("found %d entities", len(entities)), Details: entities}
}

// MemoryGraphEntitySet implements the memory_graph_entity_set tool.
func (d *Dispatcher) MemoryGraphEntitySet(user, agent, id, name, typ string, properties map[string]any) Result {
	if name == "" || typ == "" {
		return errResult(apperr.NewValidation("missing_fields", "name and type are required"))
	}
	key2 := scope.Resolve(user, agent, scope.TierPrivate)
	if id != "" {
		ent, err := d.store.UpdateEntity(key2, id, name, typ, properties)
		if err != nil {
			return errResult(err)
		}
		if ent == nil {
			return Result{Summary: fmt.Sprintf("no entity found for id %q", id), IsError: true}
		}
		return Result{Summary: fmt.Sprintf("updated %s", ent.Name), Details: ent}
	}
	ent, err := d.store.CreateEntity(key2, name, typ, properties)
	if err != nil {
		return errResult(err)
	}
	return Result{Summary: fmt.Sprintf("created %s", ent.Name), Details: ent}
}

// MemoryGraphRelAdd implements the memory_graph_rel_add tool.
func (d *Dispatcher) MemoryGraphRelAdd(user, agent, sourceID, targetID, relationType string, weight float64, properties map[string]any) Result {
	if sourceID == "" || targetID == "" || relationType == "" {
		return errResult(apperr.NewValidation("missing_fields", "source_id, target_id, and relation_type are required"))
	}
	key2 := scope.Resolve(user, agent, scope.TierPrivate)
	rel, err := d.store.CreateRelationship(key2, sourceID, targetID, relationType, weight, properties)
	if err != nil {
		return errResult(err)
	}
	return Result{Summary: fmt.Sprintf("linked %s -%s-> %s", sourceID, relationType, targetID), Details: rel}
}

// MemoryGraphRelRemove implements the memory_graph_rel_remove tool.
func (d *Dispatcher) MemoryGraphRelRemove(user, agent, id string) Result {
	key2 := scope.Resolve(user, agent, scope.TierPrivate)
	removed, err := d.store.DeleteRelationship(key2, id)
	if err != nil {
		return errResult(err)
	}
	return Result{Summary: fmt.Sprintf("removed=%v", removed), Details: removed}
}

// MemoryGraphSearch implements the memory_graph_search tool, ranking a large
// result set with the read-only PageRank enrichment so the most load-bearing
// entities surface first.
func (d *Dispatcher) MemoryGraphSearch(user, agent, entityID string, depth int) Result {
	if entityID == "" {
		return errResult(apperr.NewValidation("missing_entity_id", "entity_id is required"))
	}
	if depth < 1 {
		depth = 2
	}
	if depth > 3 {
		depth = 3
	}
	key2 := scope.Resolve(user, agent, scope.TierPrivate)
	entities, edges, err := d.store.TraverseGraph(key2, entityID, depth)
	if err != nil {
		return errResult(err)
	}
	ranked := rank.PageRank(entities, edges)
	return Result{
		Summary: fmt.Sprintf("found %d entities, %d relationships", len(entities), len(edges)),
		Details: map[string]any{"entities": entities, "relationships": edges, "ranked": ranked},
	}
}

// MemorySearch implements the memory_search tool.
func (d *Dispatcher) MemorySearch(ctx context.Context, user, query string, limit int, namespace, sessionID, sourceAgent string, minScore float64) Result {
	if query == "" {
		return errResult(apperr.NewValidation("missing_query", "query is required"))
	}
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	if minScore == 0 {
		minScore = 0.7
	}
	vec := d.embedder.Embed(ctx, query)
	conditions := []vector.Condition{vector.MatchField("userId", user)}
	if namespace != "" {
		conditions = append(conditions, vector.MatchField("namespace", namespace))
	}
	if sessionID != "" {
		conditions = append(conditions, vector.MatchField("sessionId", sessionID))
	}
	if sourceAgent != "" {
		conditions = append(conditions, vector.MatchField("source_agent", sourceAgent))
	}
	results, err := d.vec.Search(ctx, vec, limit, &vector.Filter{Must: conditions})
	if err != nil {
		return errResult(err)
	}
	filtered := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= minScore {
			filtered = append(filtered, r)
		}
	}
	return Result{Summary: fmt.Sprintf("found %d memories", len(filtered)), Details: filtered}
}

// MemoryStore implements the memory_store tool.
func (d *Dispatcher) MemoryStore(ctx context.Context, user, agent, text, namespace, sessionID string, metadata map[string]any) Result {
	if text == "" {
		return errResult(apperr.NewValidation("missing_text", "text is required"))
	}
	if len(text) > 10000 {
		return errResult(apperr.NewValidation("text_too_long", "text exceeds 10000 characters"))
	}
	if namespace == "" {
		namespace = model.NamespaceAgentDecisions
	}
	vec := d.embedder.Embed(ctx, text)

	candidates, err := d.vec.Search(ctx, vec, 5, &vector.Filter{Must: []vector.Condition{
		vector.MatchField("namespace", namespace), vector.MatchField("userId", user),
	}})
	if err != nil {
		candidates = nil
	}
	dupeCandidates := make([]dedupe.Candidate, 0, len(candidates))
	for _, c := range candidates {
		dupeCandidates = append(dupeCandidates, dedupe.Candidate{ID: c.ID, Score: c.Score})
	}
	id := dedupe.FindDuplicate(dupeCandidates, dedupe.DefaultThreshold)
	isNew := id == ""

	point := buildManualPoint(id, isNew, vec, text, namespace, agent, user, sessionID, metadata)
	if err := d.vec.Upsert(ctx, []model.MemoryPoint{point}); err != nil {
		return errResult(err)
	}
	verb := "stored"
	if !isNew {
		verb = "updated"
	}
	return Result{Summary: fmt.Sprintf("memory %s with id %s", verb, point.ID), Details: point}
}

// MemoryAutoCapture implements the memory_auto_capture tool: an
// explicitly-invoked variant of the same pipeline auto-capture runs after
// every agent turn, over caller-supplied text rather than a message list.
func (d *Dispatcher) MemoryAutoCapture(ctx context.Context, user, agent, text string, useLLM bool) Result {
	if text == "" {
		return errResult(apperr.NewValidation("missing_text", "text is required"))
	}
	outcome := d.capture.Run(ctx, user, agent, []model.Message{{Role: "user", Content: text}})
	if !outcome.Ran {
		return Result{Summary: fmt.Sprintf("auto-capture skipped: %s", outcome.Reason), Details: outcome}
	}
	return Result{
		Summary: fmt.Sprintf("captured %d slot updates, %d removals, %d memories",
			outcome.SlotsUpdated, outcome.SlotsRemoved, outcome.MemoriesStored),
		Details: outcome,
	}
}

func buildManualPoint(id string, isNew bool, vec []float32, text, namespace, agent, user, sessionID string, metadata map[string]any) model.MemoryPoint {
	now := currentTime()
	if isNew {
		id = newID()
	}
	return model.MemoryPoint{
		ID: id, Vector: vec, Text: text, Namespace: namespace, SourceAgent: agent,
		SourceType: model.SourceTypeToolCall, UserID: user, SessionID: sessionID,
		Timestamp: now, UpdatedAt: now, Metadata: metadata,
	}
}
