// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/pdiddy/citegraph/internal/graph"
	"github.com/pdiddy/citegraph/pkg/types"
)

const floatTol = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= floatTol
}

func addAuthors(t *testing.T, g *graph.Graph, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := g.UpsertAuthor(types.Author{ID: id, Name: "Author " + id}); err != nil {
			t.Fatalf("UpsertAuthor(%s): %v", id, err)
		}
	}
}

func addPub(t *testing.T, g *graph.Graph, id string, authors ...string) {
	t.Helper()
	if err := g.UpsertPublication(types.Publication{ID: id, Year: 2020, Status: types.StatusPublished}); err != nil {
		t.Fatalf("UpsertPublication(%s): %v", id, err)
	}
	for _, a := range authors {
		if err := g.LinkAuthorship(a, id); err != nil {
			t.Fatalf("LinkAuthorship(%s, %s): %v", a, id, err)
		}
	}
}

func addCitation(t *testing.T, g *graph.Graph, fromPub, toPub string) {
	t.Helper()
	if err := g.LinkCitation(fromPub, toPub); err != nil {
		t.Fatalf("LinkCitation(%s, %s): %v", fromPub, toPub, err)
	}
}

// ringGraph builds n authors where consecutive authors (and the last with
// the first) share exactly one publication.
func ringGraph(t *testing.T, n int) *graph.Graph {
	t.Helper()
	g := graph.New()
	for i := 1; i <= n; i++ {
		addAuthors(t, g, fmt.Sprintf("a%d", i))
	}
	for i := 1; i <= n; i++ {
		next := i%n + 1
		addPub(t, g, fmt.Sprintf("p%d-%d", i, next), fmt.Sprintf("a%d", i), fmt.Sprintf("a%d", next))
	}
	return g
}

// citingGraph builds two authors with one publication each, where a1's
// publication cites a2's.
func citingGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	addAuthors(t, g, "a1", "a2")
	addPub(t, g, "p1", "a1")
	addPub(t, g, "p2", "a2")
	addCitation(t, g, "p1", "p2")
	return g
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Workers = 2
	return opts
}

func scoreSum(scores map[string]float64) float64 {
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum
}

func TestRankEmptyGraph(t *testing.T) {
	t.Parallel()
	res := Rank(context.Background(), graph.New(), testOptions())
	if !res.Converged {
		t.Error("Converged = false, want true for empty graph")
	}
	if res.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", res.Iterations)
	}
	if len(res.Scores) != 0 {
		t.Errorf("Scores = %v, want empty", res.Scores)
	}
}

func TestRankSingleAuthor(t *testing.T) {
	t.Parallel()
	g := graph.New()
	addAuthors(t, g, "a1")

	res := Rank(context.Background(), g, testOptions())
	if !res.Converged {
		t.Error("Converged = false, want true")
	}
	if !approxEqual(res.Scores["a1"], 1.0) {
		t.Errorf("Scores[a1] = %v, want 1.0", res.Scores["a1"])
	}
}

func TestRankCoauthorRingUniform(t *testing.T) {
	t.Parallel()
	g := ringGraph(t, 4)

	res := Rank(context.Background(), g, testOptions())
	if !res.Converged {
		t.Errorf("Converged = false after %d iterations, want true", res.Iterations)
	}
	for id, score := range res.Scores {
		if !approxEqual(score, 0.25) {
			t.Errorf("Scores[%s] = %v, want 0.25 on a symmetric ring", id, score)
		}
	}
	if sum := scoreSum(res.Scores); !approxEqual(sum, 1.0) {
		t.Errorf("score sum = %v, want 1.0", sum)
	}
}

func TestRankCitationFlowsInfluence(t *testing.T) {
	t.Parallel()
	g := citingGraph(t)

	res := Rank(context.Background(), g, testOptions())
	if !res.Converged {
		t.Errorf("Converged = false after %d iterations, want true", res.Iterations)
	}
	if res.Scores["a2"] <= res.Scores["a1"] {
		t.Errorf("cited author a2 = %v, citing author a1 = %v, want a2 higher",
			res.Scores["a2"], res.Scores["a1"])
	}
	if sum := scoreSum(res.Scores); !approxEqual(sum, 1.0) {
		t.Errorf("score sum = %v, want 1.0", sum)
	}
}

func TestRankCitationWeightZeroDropsCitationEdges(t *testing.T) {
	t.Parallel()
	g := citingGraph(t)

	opts := testOptions()
	opts.CitationWeight = 0
	res := Rank(context.Background(), g, opts)
	if !approxEqual(res.Scores["a1"], res.Scores["a2"]) {
		t.Errorf("scores %v, want equal when citation edges are dropped", res.Scores)
	}
}

func TestRankCitationWeightScalesBlend(t *testing.T) {
	t.Parallel()
	build := func() *graph.Graph {
		g := graph.New()
		addAuthors(t, g, "a1", "a2", "a3")
		addPub(t, g, "p1", "a1", "a2")
		addPub(t, g, "p2", "a3")
		addCitation(t, g, "p1", "p2")
		return g
	}

	low := testOptions()
	low.CitationWeight = 0.5
	high := testOptions()
	high.CitationWeight = 2.0

	lowRes := Rank(context.Background(), build(), low)
	highRes := Rank(context.Background(), build(), high)
	if highRes.Scores["a3"] <= lowRes.Scores["a3"] {
		t.Errorf("a3 = %v at weight 2.0, %v at weight 0.5, want the heavier blend to score higher",
			highRes.Scores["a3"], lowRes.Scores["a3"])
	}
}

func TestRankIsolatedAuthorFloor(t *testing.T) {
	t.Parallel()
	g := graph.New()
	addAuthors(t, g, "a1", "a2", "a3", "a4")
	addPub(t, g, "p1", "a1", "a2", "a3")

	res := Rank(context.Background(), g, testOptions())
	if !res.Converged {
		t.Errorf("Converged = false after %d iterations, want true", res.Iterations)
	}
	for id, score := range res.Scores {
		if score <= 0 {
			t.Errorf("Scores[%s] = %v, want positive floor", id, score)
		}
	}
	for _, id := range []string{"a1", "a2", "a3"} {
		if res.Scores["a4"] >= res.Scores[id] {
			t.Errorf("isolated a4 = %v, connected %s = %v, want a4 lower",
				res.Scores["a4"], id, res.Scores[id])
		}
	}
	if sum := scoreSum(res.Scores); !approxEqual(sum, 1.0) {
		t.Errorf("score sum = %v, want 1.0", sum)
	}
}

func TestRankBudgetExhaustion(t *testing.T) {
	t.Parallel()
	g := citingGraph(t)

	opts := testOptions()
	opts.MaxIterations = 1
	res := Rank(context.Background(), g, opts)
	if res.Converged {
		t.Error("Converged = true, want false after one iteration")
	}
	if res.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", res.Iterations)
	}
	if res.MaxDelta <= opts.Epsilon {
		t.Errorf("MaxDelta = %v, want above epsilon", res.MaxDelta)
	}
	if sum := scoreSum(res.Scores); !approxEqual(sum, 1.0) {
		t.Errorf("score sum = %v, want best-available scores normalized", sum)
	}
}

func TestRankCancellationReturnsBestAvailable(t *testing.T) {
	t.Parallel()
	g := citingGraph(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Rank(ctx, g, testOptions())
	if res.Converged {
		t.Error("Converged = true, want false when canceled")
	}
	if res.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0 when canceled before the first pass", res.Iterations)
	}
	for id, score := range res.Scores {
		if !approxEqual(score, 0.5) {
			t.Errorf("Scores[%s] = %v, want the uniform start", id, score)
		}
	}
}

func TestRankMaxNormalization(t *testing.T) {
	t.Parallel()
	g := citingGraph(t)

	opts := testOptions()
	opts.Normalization = types.NormalizeMax
	res := Rank(context.Background(), g, opts)
	if res.Scores["a2"] != 1.0 {
		t.Errorf("Scores[a2] = %v, want exactly 1.0 under max normalization", res.Scores["a2"])
	}
	if s := res.Scores["a1"]; s <= 0 || s >= 1 {
		t.Errorf("Scores[a1] = %v, want in (0, 1)", s)
	}
}

func TestRankDeterministicAcrossWorkerCounts(t *testing.T) {
	t.Parallel()
	build := func() *graph.Graph {
		g := ringGraph(t, 6)
		addPub(t, g, "px", "a1", "a4")
		addCitation(t, g, "p1-2", "p3-4")
		addCitation(t, g, "p5-6", "p2-3")
		return g
	}

	serial := testOptions()
	serial.Workers = 1
	parallel := testOptions()
	parallel.Workers = 4

	a := Rank(context.Background(), build(), serial)
	b := Rank(context.Background(), build(), parallel)
	if !reflect.DeepEqual(a.Scores, b.Scores) {
		t.Errorf("scores differ across worker counts:\n1 worker:  %v\n4 workers: %v", a.Scores, b.Scores)
	}
	if a.Iterations != b.Iterations {
		t.Errorf("Iterations = %d vs %d, want identical", a.Iterations, b.Iterations)
	}
}

func TestRankSortedOrdersByScoreThenID(t *testing.T) {
	t.Parallel()
	res := Result{Scores: map[string]float64{
		"a3": 0.2,
		"a1": 0.5,
		"a4": 0.2,
		"a2": 0.1,
	}}

	got := res.Sorted()
	want := []Entry{
		{AuthorID: "a1", Score: 0.5},
		{AuthorID: "a3", Score: 0.2},
		{AuthorID: "a4", Score: 0.2},
		{AuthorID: "a2", Score: 0.1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sorted() = %v, want %v", got, want)
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	if got := FromConfig(types.RankConfig{}); !reflect.DeepEqual(got, DefaultOptions()) {
		t.Errorf("FromConfig(zero) = %+v, want defaults", got)
	}

	cfg := types.RankConfig{
		ConcurrencyConfig: types.ConcurrencyConfig{Workers: 3},
		Damping:           0.5,
		Epsilon:           1e-3,
		MaxIterations:     7,
		CitationWeight:    2.0,
		Normalization:     types.NormalizeMax,
	}
	got := FromConfig(cfg)
	want := Options{
		Damping:        0.5,
		Epsilon:        1e-3,
		MaxIterations:  7,
		CitationWeight: 2.0,
		Normalization:  types.NormalizeMax,
		Workers:        3,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromConfig = %+v, want %+v", got, want)
	}
}
