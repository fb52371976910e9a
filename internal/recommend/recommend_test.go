// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recommend

import (
	"math"
	"testing"

	"github.com/pdiddy/citegraph/internal/graph"
	"github.com/pdiddy/citegraph/pkg/types"
)

const floatTol = 1e-9

func addTopic(t *testing.T, g *graph.Graph, id, parent string) {
	t.Helper()
	if err := g.UpsertTopic(types.Topic{ID: id, Name: "Topic " + id}); err != nil {
		t.Fatalf("UpsertTopic(%s): %v", id, err)
	}
	if parent != "" {
		if err := g.LinkTopicParent(id, parent); err != nil {
			t.Fatalf("LinkTopicParent(%s, %s): %v", id, parent, err)
		}
	}
}

func addAuthor(t *testing.T, g *graph.Graph, id, affiliation string) {
	t.Helper()
	a := types.Author{ID: id, Name: "Author " + id, Affiliation: affiliation}
	if err := g.UpsertAuthor(a); err != nil {
		t.Fatalf("UpsertAuthor(%s): %v", id, err)
	}
}

func addPub(t *testing.T, g *graph.Graph, id string, year int, authors, topics []string) {
	t.Helper()
	p := types.Publication{ID: id, Year: year, Status: types.StatusPublished}
	if err := g.UpsertPublication(p); err != nil {
		t.Fatalf("UpsertPublication(%s): %v", id, err)
	}
	for _, a := range authors {
		if err := g.LinkAuthorship(a, id); err != nil {
			t.Fatalf("LinkAuthorship(%s, %s): %v", a, id, err)
		}
	}
	for _, topic := range topics {
		if err := g.LinkTopic(id, topic); err != nil {
			t.Fatalf("LinkTopic(%s, %s): %v", id, topic, err)
		}
	}
}

func request(k, year int, topics, declared []string) Request {
	return Request{
		Publication: types.Publication{
			ID:        "incoming",
			Year:      year,
			TopicIDs:  topics,
			AuthorIDs: declared,
			Status:    types.StatusIncoming,
		},
		K: k,
	}
}

func testCfg() types.RecommendConfig {
	return types.RecommendConfig{
		PoolSize:                 5,
		COIHopWindow:             1,
		ExcludeSharedAffiliation: true,
		ParentTopicWeight:        0.15,
	}
}

func resultIDs(res Result) []string {
	ids := make([]string, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		ids = append(ids, c.AuthorID)
	}
	return ids
}

func containsID(res Result, id string) bool {
	for _, c := range res.Candidates {
		if c.AuthorID == id {
			return true
		}
	}
	return false
}

// topicalGraph holds a declared author a1 and two candidates: a2 publishing
// on the requested topics, a3 publishing on an unrelated one.
func topicalGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	addTopic(t, g, "graphs", "")
	addTopic(t, g, "ml", "")
	addTopic(t, g, "biology", "")
	addAuthor(t, g, "a1", "MIT")
	addAuthor(t, g, "a2", "Stanford")
	addAuthor(t, g, "a3", "CMU")
	addPub(t, g, "p2", 2021, []string{"a2"}, []string{"graphs", "ml"})
	addPub(t, g, "p3", 2021, []string{"a3"}, []string{"biology"})
	return g
}

func TestRecommendRanksByTopicalAffinity(t *testing.T) {
	t.Parallel()
	g := topicalGraph(t)

	res := Recommend(g, request(5, 2024, []string{"graphs", "ml"}, []string{"a1"}), testCfg())
	if res.Reason != "" {
		t.Fatalf("Reason = %q, want none", res.Reason)
	}
	got := resultIDs(res)
	if len(got) != 2 || got[0] != "a2" || got[1] != "a3" {
		t.Fatalf("candidates = %v, want [a2 a3]", got)
	}
	if a := res.Candidates[0].Affinity; math.Abs(a-1.0) > 1e-6 {
		t.Errorf("a2 affinity = %v, want ~1.0 for a matching profile", a)
	}
	if a := res.Candidates[1].Affinity; a != 0 {
		t.Errorf("a3 affinity = %v, want 0 for an unrelated profile", a)
	}
	if !res.PoolExhausted {
		t.Error("PoolExhausted = false, want true with 2 candidates for K=5")
	}
}

func TestRecommendExcludesDeclaredAuthors(t *testing.T) {
	t.Parallel()
	g := topicalGraph(t)

	res := Recommend(g, request(5, 2024, []string{"ml"}, []string{"a1", "a2", "ghost"}), testCfg())
	for _, id := range []string{"a1", "a2", "ghost"} {
		if containsID(res, id) {
			t.Errorf("declared author %s returned as a candidate", id)
		}
	}
	if !containsID(res, "a3") {
		t.Errorf("candidates = %v, want a3 present", resultIDs(res))
	}
}

func TestRecommendExcludesCoauthorsWithinWindow(t *testing.T) {
	t.Parallel()
	build := func() *graph.Graph {
		g := graph.New()
		addTopic(t, g, "ml", "")
		addAuthor(t, g, "a1", "MIT")
		addAuthor(t, g, "a4", "Stanford")
		addAuthor(t, g, "a6", "CMU")
		addPub(t, g, "p14", 2023, []string{"a1", "a4"}, []string{"ml"})
		addPub(t, g, "p46", 2023, []string{"a4", "a6"}, []string{"ml"})
		return g
	}
	req := request(5, 2024, []string{"ml"}, []string{"a1"})

	cfg := testCfg()
	res := Recommend(build(), req, cfg)
	if containsID(res, "a4") {
		t.Error("direct co-author a4 returned with a one-hop window")
	}
	if !containsID(res, "a6") {
		t.Errorf("candidates = %v, want two-hop a6 kept with a one-hop window", resultIDs(res))
	}

	cfg.COIHopWindow = 2
	res = Recommend(build(), req, cfg)
	if containsID(res, "a4") || containsID(res, "a6") {
		t.Errorf("candidates = %v, want both a4 and a6 excluded with a two-hop window", resultIDs(res))
	}
}

func TestRecommendRecencyCutRestoresOldCollaborators(t *testing.T) {
	t.Parallel()
	build := func() *graph.Graph {
		g := graph.New()
		addTopic(t, g, "ml", "")
		addAuthor(t, g, "a1", "MIT")
		addAuthor(t, g, "a4", "Stanford")
		addPub(t, g, "pold", 2010, []string{"a1", "a4"}, []string{"ml"})
		return g
	}
	req := request(5, 2024, []string{"ml"}, []string{"a1"})

	cfg := testCfg()
	res := Recommend(build(), req, cfg)
	if containsID(res, "a4") {
		t.Error("a4 returned although co-authorship conflicts have no age limit")
	}

	cfg.COIRecencyYears = 5
	res = Recommend(build(), req, cfg)
	if !containsID(res, "a4") {
		t.Errorf("candidates = %v, want a4 once the 2010 collaboration ages out", resultIDs(res))
	}
}

func TestRecommendSharedAffiliationExclusion(t *testing.T) {
	t.Parallel()
	build := func() *graph.Graph {
		g := graph.New()
		addTopic(t, g, "ml", "")
		addAuthor(t, g, "a1", "MIT")
		addAuthor(t, g, "a5", "mit ")
		addAuthor(t, g, "a2", "Stanford")
		addPub(t, g, "p5", 2021, []string{"a5"}, []string{"ml"})
		addPub(t, g, "p2", 2021, []string{"a2"}, []string{"ml"})
		return g
	}
	req := request(5, 2024, []string{"ml"}, []string{"a1"})

	cfg := testCfg()
	res := Recommend(build(), req, cfg)
	if containsID(res, "a5") {
		t.Error("a5 returned despite sharing the declared affiliation")
	}
	if !containsID(res, "a2") {
		t.Errorf("candidates = %v, want a2 present", resultIDs(res))
	}

	cfg.ExcludeSharedAffiliation = false
	res = Recommend(build(), req, cfg)
	if !containsID(res, "a5") {
		t.Errorf("candidates = %v, want a5 once affiliation exclusion is off", resultIDs(res))
	}
}

func TestRecommendParentTopicSmoothing(t *testing.T) {
	t.Parallel()
	g := graph.New()
	addTopic(t, g, "ai", "")
	addTopic(t, g, "ml", "ai")
	addTopic(t, g, "biology", "")
	addAuthor(t, g, "a1", "MIT")
	addAuthor(t, g, "ap", "Stanford")
	addAuthor(t, g, "az", "CMU")
	addPub(t, g, "pp", 2021, []string{"ap"}, []string{"ai"})
	addPub(t, g, "pz", 2021, []string{"az"}, []string{"biology"})

	res := Recommend(g, request(5, 2024, []string{"ml"}, []string{"a1"}), testCfg())
	got := resultIDs(res)
	if len(got) != 2 || got[0] != "ap" || got[1] != "az" {
		t.Fatalf("candidates = %v, want parent-topic author ap above unrelated az", got)
	}
	if a := res.Candidates[0].Affinity; a <= 0 {
		t.Errorf("ap affinity = %v, want positive via parent smoothing", a)
	}
	if a := res.Candidates[1].Affinity; a != 0 {
		t.Errorf("az affinity = %v, want 0", a)
	}
}

func TestRecommendTieBreaksByInfluenceThenID(t *testing.T) {
	t.Parallel()
	g := graph.New()
	addTopic(t, g, "ml", "")
	addAuthor(t, g, "a1", "MIT")
	addAuthor(t, g, "a2", "Stanford")
	addAuthor(t, g, "a7", "CMU")
	addAuthor(t, g, "a8", "ETH")
	addPub(t, g, "p2", 2021, []string{"a2"}, []string{"ml"})
	addPub(t, g, "p7", 2021, []string{"a7"}, []string{"ml"})
	addPub(t, g, "p8", 2021, []string{"a8"}, []string{"ml"})
	g.SetInfluence(map[string]float64{"a2": 0.3, "a7": 0.5, "a8": 0.3})

	res := Recommend(g, request(5, 2024, []string{"ml"}, []string{"a1"}), testCfg())
	got := resultIDs(res)
	want := []string{"a7", "a2", "a8"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("candidates = %v, want %v", got, want)
		}
	}

	res = Recommend(g, request(1, 2024, []string{"ml"}, []string{"a1"}), testCfg())
	if got := resultIDs(res); len(got) != 1 || got[0] != "a7" {
		t.Errorf("K=1 candidates = %v, want [a7]", got)
	}
	if res.PoolExhausted {
		t.Error("PoolExhausted = true, want false when the pool covers K")
	}
}

func TestRecommendNoTopics(t *testing.T) {
	t.Parallel()
	g := topicalGraph(t)

	res := Recommend(g, request(5, 2024, nil, []string{"a1"}), testCfg())
	if res.Reason != ReasonNoTopics {
		t.Errorf("Reason = %q, want %q", res.Reason, ReasonNoTopics)
	}
	if len(res.Candidates) != 0 {
		t.Errorf("candidates = %v, want none", resultIDs(res))
	}
	if res.PoolExhausted {
		t.Error("PoolExhausted = true, want false for a rejected request")
	}
}

func TestRecommendNoCandidates(t *testing.T) {
	t.Parallel()
	g := graph.New()
	addTopic(t, g, "ml", "")
	addAuthor(t, g, "a1", "MIT")

	res := Recommend(g, request(5, 2024, []string{"ml"}, []string{"a1"}), testCfg())
	if res.Reason != ReasonNoCandidates {
		t.Errorf("Reason = %q, want %q", res.Reason, ReasonNoCandidates)
	}
	if len(res.Candidates) != 0 || !res.PoolExhausted {
		t.Errorf("got %+v, want an empty exhausted pool", res)
	}
}

func TestRecommendPoolExhaustedBoundary(t *testing.T) {
	t.Parallel()
	g := topicalGraph(t)
	req := request(2, 2024, []string{"ml"}, []string{"a1"})

	res := Recommend(g, req, testCfg())
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %v, want 2", resultIDs(res))
	}
	if res.PoolExhausted {
		t.Error("PoolExhausted = true, want false when exactly K candidates exist")
	}
}

func TestRecommendNeverReturnsConflicted(t *testing.T) {
	t.Parallel()
	g := graph.New()
	addTopic(t, g, "ml", "")
	addAuthor(t, g, "a1", "MIT")
	addAuthor(t, g, "a4", "Stanford")
	addAuthor(t, g, "a5", "MIT")
	addAuthor(t, g, "a2", "CMU")
	addAuthor(t, g, "a3", "ETH")
	addPub(t, g, "p14", 2023, []string{"a1", "a4"}, []string{"ml"})
	addPub(t, g, "p2", 2021, []string{"a2"}, []string{"ml"})
	addPub(t, g, "p3", 2021, []string{"a3"}, []string{"ml"})

	conflictedIDs := []string{"a1", "a4", "a5"}
	for k := 1; k <= 6; k++ {
		res := Recommend(g, request(k, 2024, []string{"ml"}, []string{"a1"}), testCfg())
		for _, id := range conflictedIDs {
			if containsID(res, id) {
				t.Errorf("K=%d: conflicted author %s returned", k, id)
			}
		}
	}
}

func TestSmoothToParentsSplitsWeight(t *testing.T) {
	t.Parallel()
	g := graph.New()
	addTopic(t, g, "ai", "")
	addTopic(t, g, "ml", "ai")

	got := smoothToParents(g, map[string]float64{"ml": 1.0}, 0.15)
	if w := got["ml"]; math.Abs(w-0.85) > floatTol {
		t.Errorf("ml weight = %v, want 0.85", w)
	}
	if w := got["ai"]; math.Abs(w-0.15) > floatTol {
		t.Errorf("ai weight = %v, want 0.15", w)
	}

	root := smoothToParents(g, map[string]float64{"ai": 2.0}, 0.15)
	if w := root["ai"]; w != 2.0 {
		t.Errorf("root weight = %v, want unchanged 2.0", w)
	}
}

func TestCosine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		u, v map[string]float64
		want float64
	}{
		{"identical", map[string]float64{"a": 1, "b": 1}, map[string]float64{"a": 1, "b": 1}, 1.0},
		{"proportional", map[string]float64{"a": 2, "b": 2}, map[string]float64{"a": 1, "b": 1}, 1.0},
		{"orthogonal", map[string]float64{"a": 1}, map[string]float64{"b": 1}, 0},
		{"empty", nil, map[string]float64{"a": 1}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cosine(tc.u, tc.v); math.Abs(got-tc.want) > 1e-6 {
				t.Errorf("cosine = %v, want %v", got, tc.want)
			}
		})
	}
}
