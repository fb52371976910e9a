// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank computes influence scores for canonical authors by running
// weighted PageRank over the blended co-authorship and citation graph.
package rank

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/pdiddy/citegraph/internal/graph"
	"github.com/pdiddy/citegraph/pkg/types"
)

// Options configures the iterative influence computation.
type Options struct {
	Damping        float64                 // damping factor; typically 0.85
	Epsilon        float64                 // convergence bound on the max per-author delta
	MaxIterations  int                     // upper bound on iterations
	CitationWeight float64                 // scale applied to citation-derived edges
	Normalization  types.RankNormalization // post-loop scaling; sum when empty
	Workers        int                     // concurrent update workers; NumCPU when 0
}

// DefaultOptions returns production-ready defaults: damping 0.85, epsilon
// 1e-6, max 100 iterations, citation edges at parity with co-authorship
// edges, scores rescaled to sum to 1.
func DefaultOptions() Options {
	return Options{
		Damping:        0.85,
		Epsilon:        1e-6,
		MaxIterations:  100,
		CitationWeight: 1.0,
		Normalization:  types.NormalizeSum,
	}
}

// FromConfig maps the serializable stage configuration onto Options. Zero
// config fields fall back to the documented defaults.
func FromConfig(cfg types.RankConfig) Options {
	opts := DefaultOptions()
	if cfg.Damping > 0 {
		opts.Damping = cfg.Damping
	}
	if cfg.Epsilon > 0 {
		opts.Epsilon = cfg.Epsilon
	}
	if cfg.MaxIterations > 0 {
		opts.MaxIterations = cfg.MaxIterations
	}
	if cfg.CitationWeight > 0 {
		opts.CitationWeight = cfg.CitationWeight
	}
	if cfg.Normalization != "" {
		opts.Normalization = cfg.Normalization
	}
	if cfg.Workers > 0 {
		opts.Workers = cfg.Workers
	}
	return opts
}

// Result reports the outcome of an influence computation.
type Result struct {
	// Scores maps author id to influence score, scaled per Normalization.
	Scores map[string]float64 `json:"scores" yaml:"scores"`

	// Converged is true when MaxDelta fell below Epsilon within the
	// iteration budget.
	Converged bool `json:"converged" yaml:"converged"`

	// Iterations is the number of completed iterations.
	Iterations int `json:"iterations" yaml:"iterations"`

	// MaxDelta is the largest per-author score change observed in the last
	// completed iteration, 0 when none ran.
	MaxDelta float64 `json:"max_delta" yaml:"max_delta"`
}

// Entry pairs an author with its influence score for ordered output.
type Entry struct {
	AuthorID string  `json:"author_id" yaml:"author_id"`
	Score    float64 `json:"score" yaml:"score"`
}

// Sorted returns the scores ordered by score descending, author id
// ascending on ties.
func (r Result) Sorted() []Entry {
	entries := make([]Entry, 0, len(r.Scores))
	for id, score := range r.Scores {
		entries = append(entries, Entry{AuthorID: id, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].AuthorID < entries[j].AuthorID
	})
	return entries
}

// Rank computes influence scores for every author in g.
//
// Co-authorship contributes symmetric edges weighted by shared publication
// count; citations contribute directed edges from the citing author to the
// cited author, counted per citing publication and scaled by
// CitationWeight. Authors with no outgoing edges redistribute their mass
// uniformly, following the standard dangling-node treatment.
//
// Each iteration reads only the previous iteration's scores, so the split
// of authors across workers never affects the result. Rank does not fail:
// when the iteration budget runs out or ctx is canceled, the best scores
// so far are returned with Converged false.
func Rank(ctx context.Context, g *graph.Graph, opts Options) Result {
	ids := g.AuthorIDs()
	n := len(ids)
	if n == 0 {
		return Result{Scores: make(map[string]float64), Converged: true}
	}

	edges := buildEdges(g, ids, opts.CitationWeight)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	chunks := splitRange(n, workers)

	nf := float64(n)
	base := (1.0 - opts.Damping) / nf
	prev := make([]float64, n)
	next := make([]float64, n)
	for i := range prev {
		prev[i] = 1.0 / nf
	}

	var res Result
	deltas := make([]float64, len(chunks))
	for iter := 0; iter < opts.MaxIterations; iter++ {
		if ctx.Err() != nil {
			break
		}

		var danglingSum float64
		for i, out := range edges.outWeight {
			if out == 0 {
				danglingSum += prev[i]
			}
		}
		danglingShare := opts.Damping * danglingSum / nf

		var wg sync.WaitGroup
		for ci, c := range chunks {
			wg.Add(1)
			go func(ci int, c chunkRange) {
				defer wg.Done()
				var localMax float64
				for i := c.lo; i < c.hi; i++ {
					var sum float64
					for _, e := range edges.in[i] {
						sum += prev[e.from] * e.norm
					}
					score := base + opts.Damping*sum + danglingShare
					next[i] = score
					if d := math.Abs(score - prev[i]); d > localMax {
						localMax = d
					}
				}
				deltas[ci] = localMax
			}(ci, c)
		}
		wg.Wait()

		res.MaxDelta = 0
		for _, d := range deltas {
			if d > res.MaxDelta {
				res.MaxDelta = d
			}
		}
		res.Iterations = iter + 1
		prev, next = next, prev
		if res.MaxDelta < opts.Epsilon {
			res.Converged = true
			break
		}
	}

	normalize(prev, opts.Normalization)

	res.Scores = make(map[string]float64, n)
	for i, id := range ids {
		res.Scores[id] = prev[i]
	}
	return res
}

// inEdge is an incoming edge with its weight pre-divided by the source
// author's total outgoing weight.
type inEdge struct {
	from int
	norm float64
}

type edgeSet struct {
	in        [][]inEdge
	outWeight []float64
}

// buildEdges derives the blended author graph. Neighbor ids are visited in
// sorted index order so floating-point sums are reproducible across runs.
func buildEdges(g *graph.Graph, ids []string, citationWeight float64) edgeSet {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	weight := make([]map[int]float64, len(ids))
	add := func(from, to int, w float64) {
		if w <= 0 || from == to {
			return
		}
		if weight[from] == nil {
			weight[from] = make(map[int]float64)
		}
		weight[from][to] += w
	}

	for i, id := range ids {
		for coID, edge := range g.Coauthors(id) {
			if j, ok := index[coID]; ok {
				add(i, j, float64(edge.Weight))
			}
		}
		for citedID, count := range g.AuthorCitations(id) {
			if j, ok := index[citedID]; ok {
				add(i, j, citationWeight*float64(count))
			}
		}
	}

	es := edgeSet{
		in:        make([][]inEdge, len(ids)),
		outWeight: make([]float64, len(ids)),
	}
	for from, tos := range weight {
		if len(tos) == 0 {
			continue
		}
		keys := make([]int, 0, len(tos))
		for to := range tos {
			keys = append(keys, to)
		}
		sort.Ints(keys)
		var total float64
		for _, to := range keys {
			total += tos[to]
		}
		es.outWeight[from] = total
		for _, to := range keys {
			es.in[to] = append(es.in[to], inEdge{from: from, norm: tos[to] / total})
		}
	}
	return es
}

type chunkRange struct {
	lo, hi int
}

func splitRange(n, parts int) []chunkRange {
	size := (n + parts - 1) / parts
	out := make([]chunkRange, 0, parts)
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		out = append(out, chunkRange{lo: lo, hi: hi})
	}
	return out
}

func normalize(scores []float64, mode types.RankNormalization) {
	var div float64
	switch mode {
	case types.NormalizeMax:
		for _, s := range scores {
			if s > div {
				div = s
			}
		}
	default:
		for _, s := range scores {
			div += s
		}
	}
	if div <= 0 {
		return
	}
	for i := range scores {
		scores[i] /= div
	}
}
