// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recommend selects conflict-free reviewer candidates for an
// incoming publication, ranked by topical affinity.
package recommend

import (
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/citegraph/internal/graph"
	"github.com/pdiddy/citegraph/pkg/types"
)

// Reason codes for requests that produce no ranking.
const (
	// ReasonNoTopics marks a request whose publication carries no topics;
	// affinity is undefined without them.
	ReasonNoTopics = "no_topics"

	// ReasonNoCandidates marks a request where every author was excluded.
	ReasonNoCandidates = "no_candidates"
)

// Request asks for reviewers for an incoming publication. The publication
// does not have to be in the graph: its AuthorIDs are the declared
// canonical authors and its TopicIDs drive affinity.
type Request struct {
	Publication types.Publication `json:"publication" yaml:"publication"`

	// K is the number of reviewers wanted, the configured pool size when 0.
	K int `json:"k" yaml:"k"`
}

// Candidate is one recommended reviewer.
type Candidate struct {
	AuthorID  string  `json:"author_id" yaml:"author_id"`
	Affinity  float64 `json:"affinity" yaml:"affinity"`
	Influence float64 `json:"influence" yaml:"influence"`
}

// Result is an ordered reviewer ranking.
type Result struct {
	Candidates []Candidate `json:"candidates" yaml:"candidates"`

	// PoolExhausted is true when fewer eligible candidates exist than were
	// requested.
	PoolExhausted bool `json:"pool_exhausted" yaml:"pool_exhausted"`

	// Reason is set when no ranking could be produced: ReasonNoTopics or
	// ReasonNoCandidates.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Recommend ranks eligible reviewers for the request's publication.
//
// Affinity is the cosine similarity between a candidate's historical topic
// distribution and the publication's topic set, both smoothed toward
// parent topics by cfg.ParentTopicWeight. Declared authors, co-authors of
// declared authors within cfg.COIHopWindow hops (subject to the recency
// cut), and authors sharing an affiliation with a declared author when
// cfg.ExcludeSharedAffiliation is on are never returned.
//
// Candidates are ordered by affinity descending, influence descending,
// author id ascending.
func Recommend(g *graph.Graph, req Request, cfg types.RecommendConfig) Result {
	cfg = withDefaults(cfg)
	k := req.K
	if k <= 0 {
		k = cfg.PoolSize
	}

	pub := req.Publication
	if len(pub.TopicIDs) == 0 {
		return Result{Reason: ReasonNoTopics}
	}

	excluded := conflicted(g, pub, cfg)
	target := smoothToParents(g, uniformVector(pub.TopicIDs), cfg.ParentTopicWeight)

	var candidates []Candidate
	for _, id := range g.AuthorIDs() {
		if excluded[id] {
			continue
		}
		hist := smoothToParents(g, g.AuthorTopicWeights(id), cfg.ParentTopicWeight)
		author, _ := g.Author(id)
		candidates = append(candidates, Candidate{
			AuthorID:  id,
			Affinity:  cosine(hist, target),
			Influence: author.InfluenceScore,
		})
	}
	if len(candidates) == 0 {
		return Result{Reason: ReasonNoCandidates, PoolExhausted: true}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Affinity != candidates[j].Affinity {
			return candidates[i].Affinity > candidates[j].Affinity
		}
		if candidates[i].Influence != candidates[j].Influence {
			return candidates[i].Influence > candidates[j].Influence
		}
		return candidates[i].AuthorID < candidates[j].AuthorID
	})

	res := Result{PoolExhausted: len(candidates) < k}
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	res.Candidates = candidates
	return res
}

func withDefaults(cfg types.RecommendConfig) types.RecommendConfig {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 5
	}
	if cfg.COIHopWindow <= 0 {
		cfg.COIHopWindow = 1
	}
	if cfg.ParentTopicWeight <= 0 {
		cfg.ParentTopicWeight = 0.15
	}
	return cfg
}

// conflicted returns the author ids disqualified for the publication:
// declared authors, authors within the co-authorship hop window of a
// declared author, and same-affiliation authors when enabled. The recency
// cut is anchored on the publication's year, so requests are reproducible
// regardless of when they run.
func conflicted(g *graph.Graph, pub types.Publication, cfg types.RecommendConfig) map[string]bool {
	excluded := make(map[string]bool, len(pub.AuthorIDs))
	for _, id := range pub.AuthorIDs {
		excluded[id] = true
	}

	minYear := 0
	if cfg.COIRecencyYears > 0 && pub.Year > 0 {
		minYear = pub.Year - cfg.COIRecencyYears
	}
	for id := range g.WithinHops(pub.AuthorIDs, cfg.COIHopWindow, minYear) {
		excluded[id] = true
	}

	if cfg.ExcludeSharedAffiliation {
		var declared []string
		for _, id := range pub.AuthorIDs {
			if a, ok := g.Author(id); ok && a.Affiliation != "" {
				declared = append(declared, strings.TrimSpace(a.Affiliation))
			}
		}
		if len(declared) > 0 {
			for _, id := range g.AuthorIDs() {
				a, _ := g.Author(id)
				if a.Affiliation == "" {
					continue
				}
				for _, affil := range declared {
					if strings.EqualFold(strings.TrimSpace(a.Affiliation), affil) {
						excluded[id] = true
						break
					}
				}
			}
		}
	}
	return excluded
}

func uniformVector(ids []string) map[string]float64 {
	vec := make(map[string]float64, len(ids))
	for _, id := range ids {
		vec[id] = 1
	}
	return vec
}

// smoothToParents shifts a fraction of each topic's weight onto its
// taxonomy parent, so a candidate publishing in a sibling or parent topic
// still overlaps the request.
func smoothToParents(g *graph.Graph, vec map[string]float64, fraction float64) map[string]float64 {
	if fraction <= 0 || len(vec) == 0 {
		return vec
	}
	if fraction > 1 {
		fraction = 1
	}
	out := make(map[string]float64, len(vec)+1)
	for id, w := range vec {
		parent := g.TopicParent(id)
		if parent == "" {
			out[id] += w
			continue
		}
		out[id] += (1 - fraction) * w
		out[parent] += fraction * w
	}
	return out
}

// cosine iterates keys in sorted order so floating-point sums are
// reproducible across runs.
func cosine(u, v map[string]float64) float64 {
	if len(u) == 0 || len(v) == 0 {
		return 0
	}
	var dot float64
	for _, id := range sortedVecKeys(u) {
		if vw, ok := v[id]; ok {
			dot += u[id] * vw
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (vectorNorm(u) * vectorNorm(v))
}

func vectorNorm(vec map[string]float64) float64 {
	var sum float64
	for _, id := range sortedVecKeys(vec) {
		sum += vec[id] * vec[id]
	}
	return math.Sqrt(sum)
}

func sortedVecKeys(vec map[string]float64) []string {
	ids := make([]string, 0, len(vec))
	for id := range vec {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
