// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/pdiddy/citegraph/pkg/types"
)

// buildLibrary constructs a small graph used across tests:
//
//	authors:  a1 (MIT), a2 (MIT), a3 (Stanford), a4 (isolated)
//	topics:   t1 "machine learning", t2 "deep learning" (child of t1),
//	          t3 "databases"
//	pubs:     p1 2019 [a1,a2] about t2, cites p2
//	          p2 2015 [a2,a3] about t1
//	          p3 2021 [a1,a2] about t3
//	          p9 2024 [a1] about t2, incoming
func buildLibrary(t *testing.T) *Graph {
	t.Helper()
	g := New()

	authors := []types.Author{
		{ID: "a1", Name: "Alice Ng", Affiliation: "MIT"},
		{ID: "a2", Name: "Bob Doe", Affiliation: "MIT"},
		{ID: "a3", Name: "Carol Roe", Affiliation: "Stanford"},
		{ID: "a4", Name: "Dan Alone"},
	}
	for _, a := range authors {
		if err := g.UpsertAuthor(a); err != nil {
			t.Fatalf("UpsertAuthor(%s): %v", a.ID, err)
		}
	}

	topics := []types.Topic{
		{ID: "t1", Name: "machine learning"},
		{ID: "t2", Name: "deep learning"},
		{ID: "t3", Name: "databases"},
	}
	for _, tp := range topics {
		if err := g.UpsertTopic(tp); err != nil {
			t.Fatalf("UpsertTopic(%s): %v", tp.ID, err)
		}
	}
	if err := g.LinkTopicParent("t2", "t1"); err != nil {
		t.Fatalf("LinkTopicParent: %v", err)
	}

	pubs := []types.Publication{
		{ID: "p1", Title: "One", Year: 2019, Status: types.StatusPublished},
		{ID: "p2", Title: "Two", Year: 2015, Status: types.StatusPublished},
		{ID: "p3", Title: "Three", Year: 2021, Status: types.StatusPublished},
		{ID: "p9", Title: "Nine", Year: 2024, Status: types.StatusIncoming},
	}
	for _, p := range pubs {
		if err := g.UpsertPublication(p); err != nil {
			t.Fatalf("UpsertPublication(%s): %v", p.ID, err)
		}
	}

	links := []struct{ author, pub string }{
		{"a1", "p1"}, {"a2", "p1"},
		{"a2", "p2"}, {"a3", "p2"},
		{"a1", "p3"}, {"a2", "p3"},
		{"a1", "p9"},
	}
	for _, l := range links {
		if err := g.LinkAuthorship(l.author, l.pub); err != nil {
			t.Fatalf("LinkAuthorship(%s, %s): %v", l.author, l.pub, err)
		}
	}

	aboutness := []struct{ pub, topic string }{
		{"p1", "t2"}, {"p2", "t1"}, {"p3", "t3"}, {"p9", "t2"},
	}
	for _, l := range aboutness {
		if err := g.LinkTopic(l.pub, l.topic); err != nil {
			t.Fatalf("LinkTopic(%s, %s): %v", l.pub, l.topic, err)
		}
	}

	if err := g.LinkCitation("p1", "p2"); err != nil {
		t.Fatalf("LinkCitation: %v", err)
	}
	return g
}

func TestUpsertIdempotent(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)

	before := g.Counts()
	if err := g.UpsertAuthor(types.Author{ID: "a1", Name: "Alice N. Ng", Affiliation: "MIT"}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	after := g.Counts()
	if after != before {
		t.Errorf("counts changed on re-upsert: %+v → %+v", before, after)
	}

	a, ok := g.Author("a1")
	if !ok {
		t.Fatal("Author(a1) missing after re-upsert")
	}
	if a.Name != "Alice N. Ng" {
		t.Errorf("Name = %q, want replacement to win", a.Name)
	}
	if pubs := g.AuthorPublications("a1"); len(pubs) != 3 {
		t.Errorf("AuthorPublications(a1) = %v, want 3 surviving links", pubs)
	}
}

func TestUpsertEmptyID(t *testing.T) {
	t.Parallel()
	g := New()
	if err := g.UpsertAuthor(types.Author{}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("UpsertAuthor = %v, want ErrEmptyID", err)
	}
	if err := g.UpsertPublication(types.Publication{}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("UpsertPublication = %v, want ErrEmptyID", err)
	}
	if err := g.UpsertTopic(types.Topic{}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("UpsertTopic = %v, want ErrEmptyID", err)
	}
}

func TestUpsertTopicFillsName(t *testing.T) {
	t.Parallel()
	g := New()
	if err := g.UpsertTopic(types.Topic{ID: "t7"}); err != nil {
		t.Fatalf("UpsertTopic: %v", err)
	}
	tp, _ := g.Topic("t7")
	if tp.Name != types.TopicNameUnavailable {
		t.Errorf("Name = %q, want %q", tp.Name, types.TopicNameUnavailable)
	}
}

func TestLinkRejectsUnknownNodes(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)

	tests := []struct {
		name    string
		link    func() error
		missing string
	}{
		{"authorship missing author", func() error { return g.LinkAuthorship("ghost", "p1") }, "ghost"},
		{"authorship missing pub", func() error { return g.LinkAuthorship("a1", "p404") }, "p404"},
		{"topic missing pub", func() error { return g.LinkTopic("p404", "t1") }, "p404"},
		{"topic missing topic", func() error { return g.LinkTopic("p1", "t404") }, "t404"},
		{"citation missing target", func() error { return g.LinkCitation("p1", "p404") }, "p404"},
		{"parent missing parent", func() error { return g.LinkTopicParent("t1", "t404") }, "t404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.link()
			if !errors.Is(err, ErrUnknownNode) {
				t.Fatalf("got %v, want ErrUnknownNode", err)
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("error %q does not name offending id %q", err, tt.missing)
			}
		})
	}
}

func TestLinkIdempotent(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)
	before := g.Counts()
	if err := g.LinkAuthorship("a1", "p1"); err != nil {
		t.Fatalf("duplicate LinkAuthorship: %v", err)
	}
	if err := g.LinkCitation("p1", "p2"); err != nil {
		t.Fatalf("duplicate LinkCitation: %v", err)
	}
	if after := g.Counts(); after != before {
		t.Errorf("counts changed on duplicate links: %+v → %+v", before, after)
	}
}

func TestCoauthors(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)

	edges := g.Coauthors("a1")
	if len(edges) != 1 {
		t.Fatalf("Coauthors(a1) = %v, want a2 only", edges)
	}
	e, ok := edges["a2"]
	if !ok {
		t.Fatal("a2 missing from Coauthors(a1)")
	}
	if e.Weight != 2 {
		t.Errorf("Weight = %d, want 2 (p1 and p3)", e.Weight)
	}
	if e.LatestYear != 2021 {
		t.Errorf("LatestYear = %d, want 2021", e.LatestYear)
	}

	if edges := g.Coauthors("a4"); len(edges) != 0 {
		t.Errorf("Coauthors(a4) = %v, want none", edges)
	}
}

func TestAuthorCitations(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)

	// p1 cites p2, whose authors are a2 and a3.
	counts := g.AuthorCitations("a1")
	if counts["a2"] != 1 || counts["a3"] != 1 {
		t.Errorf("AuthorCitations(a1) = %v, want a2:1 a3:1", counts)
	}

	// a2 wrote p1 too, but self-citations are dropped.
	counts = g.AuthorCitations("a2")
	if _, ok := counts["a2"]; ok {
		t.Errorf("AuthorCitations(a2) contains self: %v", counts)
	}
	if counts["a3"] != 1 {
		t.Errorf("AuthorCitations(a2) = %v, want a3:1", counts)
	}
}

func TestAuthorTopicWeights(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)

	weights := g.AuthorTopicWeights("a1")
	want := map[string]float64{"t2": 1, "t3": 1}
	if len(weights) != len(want) {
		t.Fatalf("AuthorTopicWeights(a1) = %v, want %v (incoming p9 excluded)", weights, want)
	}
	for id, w := range want {
		if weights[id] != w {
			t.Errorf("weight[%s] = %v, want %v", id, weights[id], w)
		}
	}
}

func TestHopDistance(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)

	tests := []struct {
		from, to string
		want     int
	}{
		{"a1", "a1", 0},
		{"a1", "a2", 1},
		{"a1", "a3", 2},
		{"a1", "a4", -1},
	}
	for _, tt := range tests {
		got, err := g.HopDistance(tt.from, tt.to)
		if err != nil {
			t.Fatalf("HopDistance(%s, %s): %v", tt.from, tt.to, err)
		}
		if got != tt.want {
			t.Errorf("HopDistance(%s, %s) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}

	if _, err := g.HopDistance("a1", "nope"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("HopDistance with unknown author = %v, want ErrUnknownNode", err)
	}
}

func TestWithinHops(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)

	t.Run("one hop", func(t *testing.T) {
		dist := g.WithinHops([]string{"a1"}, 1, 0)
		if len(dist) != 2 || dist["a1"] != 0 || dist["a2"] != 1 {
			t.Errorf("WithinHops = %v, want a1:0 a2:1", dist)
		}
	})

	t.Run("two hops", func(t *testing.T) {
		dist := g.WithinHops([]string{"a1"}, 2, 0)
		if dist["a3"] != 2 {
			t.Errorf("WithinHops = %v, want a3 at distance 2", dist)
		}
	})

	t.Run("recency cut stops stale edges", func(t *testing.T) {
		// a2→a3 collaboration is from 2015; with minYear 2020 it is not
		// followed, so a3 stays out of reach.
		dist := g.WithinHops([]string{"a1"}, 2, 2020)
		if _, ok := dist["a3"]; ok {
			t.Errorf("WithinHops = %v, stale edge should not be followed", dist)
		}
		if dist["a2"] != 1 {
			t.Errorf("WithinHops = %v, recent edge to a2 should survive", dist)
		}
	})

	t.Run("unknown seeds ignored", func(t *testing.T) {
		dist := g.WithinHops([]string{"nope"}, 2, 0)
		if len(dist) != 0 {
			t.Errorf("WithinHops = %v, want empty", dist)
		}
	})
}

func TestTopicSubtree(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)

	got := g.TopicSubtree("t1")
	want := []string{"t1", "t2"}
	if len(got) != len(want) {
		t.Fatalf("TopicSubtree(t1) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("subtree[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := g.TopicSubtree("t3"); len(got) != 1 || got[0] != "t3" {
		t.Errorf("TopicSubtree(t3) = %v, want [t3]", got)
	}
	if got := g.TopicSubtree("missing"); got != nil {
		t.Errorf("TopicSubtree(missing) = %v, want nil", got)
	}
}

func TestInducedByTopics(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)

	sub := g.InducedByTopics([]string{"t2"})

	// p1 and p9 are about t2; their authors are a1 and a2.
	if _, ok := sub.Publication("p1"); !ok {
		t.Error("p1 missing from induced subgraph")
	}
	if _, ok := sub.Publication("p9"); !ok {
		t.Error("p9 missing from induced subgraph")
	}
	if _, ok := sub.Publication("p2"); ok {
		t.Error("p2 should not be in induced subgraph")
	}
	if _, ok := sub.Author("a3"); ok {
		t.Error("a3 should not be in induced subgraph")
	}

	// p1 cites p2, but p2 is outside: the edge must be dropped.
	if counts := sub.AuthorCitations("a1"); len(counts) != 0 {
		t.Errorf("induced AuthorCitations(a1) = %v, want none", counts)
	}

	// Receiver unchanged.
	if c := g.Counts(); c.Publications != 4 {
		t.Errorf("source graph mutated: %+v", c)
	}
}

func TestIncomingPublications(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)
	got := g.IncomingPublications()
	if len(got) != 1 || got[0] != "p9" {
		t.Errorf("IncomingPublications = %v, want [p9]", got)
	}
}

func TestSetInfluence(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)
	g.SetInfluence(map[string]float64{"a1": 0.4, "ghost": 0.1})
	a, _ := g.Author("a1")
	if a.InfluenceScore != 0.4 {
		t.Errorf("InfluenceScore = %v, want 0.4", a.InfluenceScore)
	}
	b, _ := g.Author("a2")
	if b.InfluenceScore != 0 {
		t.Errorf("untouched author score = %v, want 0", b.InfluenceScore)
	}
}

func TestSortedAccessors(t *testing.T) {
	t.Parallel()
	g := buildLibrary(t)

	ids := g.AuthorIDs()
	want := []string{"a1", "a2", "a3", "a4"}
	if len(ids) != len(want) {
		t.Fatalf("AuthorIDs = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("AuthorIDs[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	if pubs := g.PublicationAuthors("p1"); len(pubs) != 2 || pubs[0] != "a1" || pubs[1] != "a2" {
		t.Errorf("PublicationAuthors(p1) = %v, want [a1 a2]", pubs)
	}
	if topics := g.PublicationTopics("p1"); len(topics) != 1 || topics[0] != "t2" {
		t.Errorf("PublicationTopics(p1) = %v, want [t2]", topics)
	}
}
