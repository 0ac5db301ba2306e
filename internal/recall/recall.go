// Package recall implements the auto-recall pipeline: it assembles a
// context block to inject into the agent's next prompt, merging slot tiers
// by freshness, summarizing the private knowledge graph, and running a
// semantic search against the vector gateway.
package recall

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"agentmemory/internal/embed"
	"agentmemory/internal/model"
	"agentmemory/internal/noise"
	"agentmemory/internal/scope"
	"agentmemory/internal/store"
	"agentmemory/internal/vector"
)

const (
	maxGraphEntities       = 10
	maxGraphEntitiesDetail = 5
	maxEdgesPerEntity      = 2
	maxRecentUpdates       = 5
	maxSemanticResults     = 5
	semanticMinScore       = 0.7
	valueTruncateLen       = 100
)

// Engine wires together the components auto-recall orchestrates.
type Engine struct {
	store    *store.Store
	vec      *vector.Gateway
	embedder *embed.Gateway
	log      *zap.Logger
}

func New(st *store.Store, vec *vector.Gateway, embedder *embed.Gateway, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: st, vec: vec, embedder: embedder, log: log}
}

type freshSlot struct {
	value     any
	updatedAt time.Time
}

// Run builds the injected context block for a before_agent_start event and
// splices it into the existing system prompt (after a closing </system>
// marker if present, otherwise prepended).
func (e *Engine) Run(ctx context.Context, user, agent, latestUserMessage, existingSystemPrompt string) string {
	block := e.buildBlock(ctx, user, agent, latestUserMessage)
	if block == "" {
		return existingSystemPrompt
	}
	const marker = "</system>"
	if idx := strings.Index(existingSystemPrompt, marker); idx != -1 {
		insertAt := idx + len(marker)
		return existingSystemPrompt[:insertAt] + "\n" + block + existingSystemPrompt[insertAt:]
	}
	return block + "\n" + existingSystemPrompt
}

func (e *Engine) buildBlock(ctx context.Context, user, agent, latestUserMessage string) string {
	var sb strings.Builder

	if section := e.renderCurrentState(user, agent); section != "" {
		sb.WriteString(section)
	}
	if section := e.renderGraphSummary(user, agent); section != "" {
		sb.WriteString(section)
	}
	if section := e.renderRecentUpdates(user, agent); section != "" {
		sb.WriteString(section)
	}
	if section := e.renderSemanticMemories(ctx, user, agent, latestUserMessage); section != "" {
		sb.WriteString(section)
	}

	if sb.Len() == 0 {
		return ""
	}
	return "<memory-context>\n" + sb.String() + "</memory-context>"
}

// renderCurrentState merges private/team/public slot values by freshness:
// for each (category, key) the value from whichever scope has the greatest
// updated_at wins, not scope priority order.
func (e *Engine) renderCurrentState(user, agent string) string {
	merged := make(map[string]map[string]freshSlot)
	tiers := scope.AllTiersFor(user, agent)
	for _, key := range tiers {
		slots, err := e.store.List(key, "")
		if err != nil {
			e.log.Warn("auto-recall failed to list slots", zap.Error(err))
			continue
		}
		for _, s := range slots {
			if len(s.Key) > 0 && s.Key[0] == '_' {
				continue
			}
			if merged[s.Category] == nil {
				merged[s.Category] = make(map[string]freshSlot)
			}
			existing, ok := merged[s.Category][s.Key]
			if !ok || s.UpdatedAt.After(existing.updatedAt) {
				merged[s.Category][s.Key] = freshSlot{value: s.Value, updatedAt: s.UpdatedAt}
			}
		}
	}
	if len(merged) == 0 {
		return ""
	}

	categories := sortedKeys(merged)
	var sb strings.Builder
	sb.WriteString("<current-state>\n")
	for _, cat := range categories {
		keys := sortedFreshKeys(merged[cat])
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("%s.%s: %s\n", cat, k, truncateValue(merged[cat][k].value)))
		}
	}
	sb.WriteString("</current-state>\n")
	return sb.String()
}

func (e *Engine) renderGraphSummary(user, agent string) string {
	key := scope.Resolve(user, agent, scope.TierPrivate)
	entities, err := e.store.ListEntities(key, model.EntityFilter{})
	if err != nil {
		e.log.Warn("auto-recall failed to list entities", zap.Error(err))
		return ""
	}
	if len(entities) == 0 {
		return ""
	}
	if len(entities) > maxGraphEntities {
		entities = entities[:maxGraphEntities]
	}

	var sb strings.Builder
	sb.WriteString("<knowledge-graph>\n")
	detailCount := maxGraphEntitiesDetail
	if len(entities) < detailCount {
		detailCount = len(entities)
	}
	for i, ent := range entities {
		sb.WriteString(fmt.Sprintf("- %s (%s)", ent.Name, ent.Type))
		if i < detailCount {
			edges, err := e.store.GetRelationships(key, ent.ID, model.DirectionOutgoing)
			if err == nil {
				limit := maxEdgesPerEntity
				if len(edges) < limit {
					limit = len(edges)
				}
				for j := 0; j < limit; j++ {
					target, err := e.store.GetEntity(key, edges[j].TargetID)
					if err == nil && target != nil {
						sb.WriteString(fmt.Sprintf(" -%s-> %s", edges[j].RelationType, target.Name))
					}
				}
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("</knowledge-graph>\n")
	return sb.String()
}

func (e *Engine) renderRecentUpdates(user, agent string) string {
	type entry struct {
		category, key string
		value         any
		updatedAt     string
	}
	var all []entry
	for _, key := range scope.AllTiersFor(user, agent) {
		slots, err := e.store.List(key, "")
		if err != nil {
			continue
		}
		for _, s := range slots {
			if len(s.Key) > 0 && s.Key[0] == '_' {
				continue
			}
			all = append(all, entry{category: s.Category, key: s.Key, value: s.Value,
				updatedAt: s.UpdatedAt.Format(time.RFC3339Nano)})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].updatedAt > all[j].updatedAt })
	if len(all) > maxRecentUpdates {
		all = all[:maxRecentUpdates]
	}
	if len(all) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<recent-updates>\n")
	for _, e2 := range all {
		sb.WriteString(fmt.Sprintf("%s.%s: %s\n", e2.category, e2.key, truncateValue(e2.value)))
	}
	sb.WriteString("</recent-updates>\n")
	return sb.String()
}

func (e *Engine) renderSemanticMemories(ctx context.Context, user, agent, latestUserMessage string) string {
	if strings.TrimSpace(latestUserMessage) == "" {
		return ""
	}
	vec := e.embedder.Embed(ctx, latestUserMessage)
	namespaces := noise.New(agent).SearchNamespaces()
	conditions := make([]vector.Condition, 0, len(namespaces))
	for _, ns := range namespaces {
		conditions = append(conditions, vector.MatchField("namespace", ns))
	}
	filter := &vector.Filter{Must: []vector.Condition{vector.OrFields(conditions...)}}

	results, err := e.vec.Search(ctx, vec, maxSemanticResults, filter)
	if err != nil {
		e.log.Warn("auto-recall semantic search failed", zap.Error(err))
		return ""
	}

	var sb strings.Builder
	wrote := false
	for _, r := range results {
		if r.Score < semanticMinScore {
			continue
		}
		text, _ := r.Payload["text"].(string)
		if text == "" {
			continue
		}
		if !wrote {
			sb.WriteString("<semantic-memories>\n")
			wrote = true
		}
		sb.WriteString(fmt.Sprintf("- %s (score %.2f)\n", truncate(text), r.Score))
	}
	if !wrote {
		return ""
	}
	sb.WriteString("</semantic-memories>\n")
	return sb.String()
}

func sortedKeys(m map[string]map[string]freshSlot) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFreshKeys(m map[string]freshSlot) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncateValue(v any) string {
	return truncate(fmt.Sprintf("%v", v))
}

func truncate(s string) string {
	if len(s) <= valueTruncateLen {
		return s
	}
	return s[:valueTruncateLen] + "..."
}
