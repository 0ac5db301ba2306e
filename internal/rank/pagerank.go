// Package rank ranks a scope's graph entities by importance, adapted from
// the teacher's iterative PageRank over a directed graph. Every edge counts
// equally: Relationship.Weight is not used. It is a read-only enrichment
// used only to order large memory_graph_search results and sits outside
// auto-capture/auto-recall's critical path.
package rank

import "agentmemory/internal/model"

const (
	damping        = 0.85
	maxIterations  = 100
	convergenceEps = 0.0001
)

// Scored pairs an entity id with its computed importance.
type Scored struct {
	EntityID string
	Score    float64
}

// PageRank computes importance scores over entities connected by edges,
// returning results ordered by score descending.
func PageRank(entities []*model.Entity, edges []*model.Relationship) []Scored {
	n := len(entities)
	if n == 0 {
		return nil
	}

	index := make(map[string]int, n)
	for i, e := range entities {
		index[e.ID] = i
	}

	outDegree := make([]float64, n)
	inbound := make([][]int, n)
	for _, e := range edges {
		si, ok1 := index[e.SourceID]
		ti, ok2 := index[e.TargetID]
		if !ok1 || !ok2 {
			continue
		}
		outDegree[si]++
		inbound[ti] = append(inbound[ti], si)
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0 / float64(n)
	}

	for iter := 0; iter < maxIterations; iter++ {
		next := make([]float64, n)
		danglingSum := 0.0
		for i, deg := range outDegree {
			if deg == 0 {
				danglingSum += scores[i]
			}
		}
		base := (1-damping)/float64(n) + damping*danglingSum/float64(n)
		for i := range next {
			next[i] = base
		}
		for target, sources := range inbound {
			for _, source := range sources {
				if outDegree[source] > 0 {
					next[target] += damping * scores[source] / outDegree[source]
				}
			}
		}

		delta := 0.0
		for i := range scores {
			d := next[i] - scores[i]
			if d < 0 {
				d = -d
			}
			delta += d
		}
		scores = next
		if delta < convergenceEps {
			break
		}
	}

	out := make([]Scored, n)
	for i, e := range entities {
		out[i] = Scored{EntityID: e.ID, Score: scores[i]}
	}
	sortByScoreDesc(out)
	return out
}

func sortByScoreDesc(s []Scored) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Score > s[j-1].Score; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
