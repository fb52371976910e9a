// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph holds the in-memory bibliographic graph shared by the
// resolution, ranking, and recommendation stages. A Graph is constructed
// explicitly and handed around by reference; there is no package-level
// instance.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pdiddy/citegraph/pkg/types"
)

// ErrUnknownNode is returned when a relationship references a node id that
// has not been upserted.
var ErrUnknownNode = errors.New("unknown node")

// ErrEmptyID is returned when an upsert carries no id.
var ErrEmptyID = errors.New("empty node id")

// RelKind names a relationship class for rejection reports.
type RelKind string

const (
	RelWrites      RelKind = "WRITES"
	RelIsAbout     RelKind = "IS_ABOUT"
	RelCites       RelKind = "CITES"
	RelParentTopic RelKind = "PARENT_TOPIC"
)

// RejectedRelationship describes a relationship that was skipped because
// one endpoint did not exist. Callers collect these and continue.
type RejectedRelationship struct {
	Kind      RelKind `json:"kind" yaml:"kind"`
	FromID    string  `json:"from_id" yaml:"from_id"`
	ToID      string  `json:"to_id" yaml:"to_id"`
	MissingID string  `json:"missing_id" yaml:"missing_id"`
}

// CoauthorEdge is a derived co-authorship link between two authors.
type CoauthorEdge struct {
	// Weight is the number of shared publications.
	Weight int

	// LatestYear is the most recent shared publication year, 0 when no
	// shared publication carries a year.
	LatestYear int
}

// Counts summarizes graph size for progress reporting.
type Counts struct {
	Authors      int `json:"authors" yaml:"authors"`
	Publications int `json:"publications" yaml:"publications"`
	Topics       int `json:"topics" yaml:"topics"`
	Authorships  int `json:"authorships" yaml:"authorships"`
	TopicLinks   int `json:"topic_links" yaml:"topic_links"`
	Citations    int `json:"citations" yaml:"citations"`
	ParentLinks  int `json:"parent_links" yaml:"parent_links"`
}

// Graph is the in-memory bibliographic graph. Node upserts are idempotent;
// relationship insertion validates both endpoints. All derived adjacency
// (co-authorship, citations between authors) is maintained incrementally.
//
// Graph is not safe for concurrent mutation. The pipeline builds it single
// threaded, then shares it read-only with ranking and recommendation.
type Graph struct {
	authors      map[string]types.Author
	publications map[string]types.Publication
	topics       map[string]types.Topic

	// authorPubs maps author id → set of publication ids (WRITES).
	authorPubs map[string]map[string]bool
	// pubAuthors maps publication id → set of author ids.
	pubAuthors map[string]map[string]bool
	// pubTopics maps publication id → set of topic ids (IS_ABOUT).
	pubTopics map[string]map[string]bool
	// topicPubs maps topic id → set of publication ids.
	topicPubs map[string]map[string]bool
	// cites maps citing publication id → set of cited publication ids.
	cites map[string]map[string]bool
	// topicParent maps child topic id → parent topic id.
	topicParent map[string]string
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		authors:      make(map[string]types.Author),
		publications: make(map[string]types.Publication),
		topics:       make(map[string]types.Topic),
		authorPubs:   make(map[string]map[string]bool),
		pubAuthors:   make(map[string]map[string]bool),
		pubTopics:    make(map[string]map[string]bool),
		topicPubs:    make(map[string]map[string]bool),
		cites:        make(map[string]map[string]bool),
		topicParent:  make(map[string]string),
	}
}

// UpsertAuthor inserts or replaces an author node. Re-upserting an id is
// idempotent: the node is overwritten, existing relationships survive.
func (g *Graph) UpsertAuthor(a types.Author) error {
	if a.ID == "" {
		return fmt.Errorf("%w: author", ErrEmptyID)
	}
	g.authors[a.ID] = a
	if g.authorPubs[a.ID] == nil {
		g.authorPubs[a.ID] = make(map[string]bool)
	}
	return nil
}

// UpsertPublication inserts or replaces a publication node. The id lists on
// the record (authors, topics, citations) are payload only; relationships
// are created separately via the Link methods.
func (g *Graph) UpsertPublication(p types.Publication) error {
	if p.ID == "" {
		return fmt.Errorf("%w: publication", ErrEmptyID)
	}
	g.publications[p.ID] = p
	if g.pubAuthors[p.ID] == nil {
		g.pubAuthors[p.ID] = make(map[string]bool)
	}
	if g.pubTopics[p.ID] == nil {
		g.pubTopics[p.ID] = make(map[string]bool)
	}
	return nil
}

// UpsertTopic inserts or replaces a topic node. An empty name is replaced
// with the unavailable-name placeholder.
func (g *Graph) UpsertTopic(t types.Topic) error {
	if t.ID == "" {
		return fmt.Errorf("%w: topic", ErrEmptyID)
	}
	if t.Name == "" {
		t.Name = types.TopicNameUnavailable
	}
	g.topics[t.ID] = t
	return nil
}

// LinkAuthorship records that the author wrote the publication. Both nodes
// must exist; the missing id is named in the error.
func (g *Graph) LinkAuthorship(authorID, pubID string) error {
	if _, ok := g.authors[authorID]; !ok {
		return fmt.Errorf("%w: author %s", ErrUnknownNode, authorID)
	}
	if _, ok := g.publications[pubID]; !ok {
		return fmt.Errorf("%w: publication %s", ErrUnknownNode, pubID)
	}
	g.authorPubs[authorID][pubID] = true
	g.pubAuthors[pubID][authorID] = true
	return nil
}

// LinkTopic records that the publication is about the topic.
func (g *Graph) LinkTopic(pubID, topicID string) error {
	if _, ok := g.publications[pubID]; !ok {
		return fmt.Errorf("%w: publication %s", ErrUnknownNode, pubID)
	}
	if _, ok := g.topics[topicID]; !ok {
		return fmt.Errorf("%w: topic %s", ErrUnknownNode, topicID)
	}
	g.pubTopics[pubID][topicID] = true
	if g.topicPubs[topicID] == nil {
		g.topicPubs[topicID] = make(map[string]bool)
	}
	g.topicPubs[topicID][pubID] = true
	return nil
}

// LinkCitation records that one publication cites another. Self-citations
// at the publication level are rejected.
func (g *Graph) LinkCitation(fromPubID, toPubID string) error {
	if fromPubID == toPubID {
		return fmt.Errorf("publication %s cannot cite itself", fromPubID)
	}
	if _, ok := g.publications[fromPubID]; !ok {
		return fmt.Errorf("%w: publication %s", ErrUnknownNode, fromPubID)
	}
	if _, ok := g.publications[toPubID]; !ok {
		return fmt.Errorf("%w: publication %s", ErrUnknownNode, toPubID)
	}
	if g.cites[fromPubID] == nil {
		g.cites[fromPubID] = make(map[string]bool)
	}
	g.cites[fromPubID][toPubID] = true
	return nil
}

// LinkTopicParent records the taxonomy edge child → parent.
func (g *Graph) LinkTopicParent(childID, parentID string) error {
	if childID == parentID {
		return fmt.Errorf("topic %s cannot be its own parent", childID)
	}
	if _, ok := g.topics[childID]; !ok {
		return fmt.Errorf("%w: topic %s", ErrUnknownNode, childID)
	}
	if _, ok := g.topics[parentID]; !ok {
		return fmt.Errorf("%w: topic %s", ErrUnknownNode, parentID)
	}
	g.topicParent[childID] = parentID
	return nil
}

// Author returns the author node for id.
func (g *Graph) Author(id string) (types.Author, bool) {
	a, ok := g.authors[id]
	return a, ok
}

// Publication returns the publication node for id.
func (g *Graph) Publication(id string) (types.Publication, bool) {
	p, ok := g.publications[id]
	return p, ok
}

// Topic returns the topic node for id.
func (g *Graph) Topic(id string) (types.Topic, bool) {
	t, ok := g.topics[id]
	return t, ok
}

// TopicParent returns the parent topic id for a topic, "" for roots.
func (g *Graph) TopicParent(id string) string {
	return g.topicParent[id]
}

// AuthorIDs returns all author ids, sorted. Ranking iterates this slice so
// results do not depend on map order.
func (g *Graph) AuthorIDs() []string {
	return sortedKeys(g.authors)
}

// PublicationIDs returns all publication ids, sorted.
func (g *Graph) PublicationIDs() []string {
	return sortedKeys(g.publications)
}

// TopicIDs returns all topic ids, sorted.
func (g *Graph) TopicIDs() []string {
	return sortedKeys(g.topics)
}

// AuthorPublications returns the ids of publications the author wrote,
// sorted.
func (g *Graph) AuthorPublications(authorID string) []string {
	return sortedSet(g.authorPubs[authorID])
}

// PublicationAuthors returns the ids of the publication's authors, sorted.
func (g *Graph) PublicationAuthors(pubID string) []string {
	return sortedSet(g.pubAuthors[pubID])
}

// PublicationTopics returns the ids of the publication's topics, sorted.
func (g *Graph) PublicationTopics(pubID string) []string {
	return sortedSet(g.pubTopics[pubID])
}

// Coauthors returns the derived co-authorship adjacency for an author:
// every other author sharing at least one publication, with the shared
// publication count and the latest shared publication year.
func (g *Graph) Coauthors(authorID string) map[string]CoauthorEdge {
	edges := make(map[string]CoauthorEdge)
	for pubID := range g.authorPubs[authorID] {
		pub := g.publications[pubID]
		for other := range g.pubAuthors[pubID] {
			if other == authorID {
				continue
			}
			e := edges[other]
			e.Weight++
			if pub.Year > e.LatestYear {
				e.LatestYear = pub.Year
			}
			edges[other] = e
		}
	}
	return edges
}

// AuthorCitations returns the derived citation adjacency for an author:
// for each other author, how many times one of authorID's publications
// cites one of theirs. Directed; self-citations at the author level are
// not counted.
func (g *Graph) AuthorCitations(authorID string) map[string]int {
	counts := make(map[string]int)
	for pubID := range g.authorPubs[authorID] {
		for cited := range g.cites[pubID] {
			for other := range g.pubAuthors[cited] {
				if other == authorID {
					continue
				}
				counts[other]++
			}
		}
	}
	return counts
}

// AuthorTopicWeights returns the author's historical topic distribution:
// for each topic, the number of the author's publications about it. Only
// published work counts; incoming submissions are excluded.
func (g *Graph) AuthorTopicWeights(authorID string) map[string]float64 {
	weights := make(map[string]float64)
	for pubID := range g.authorPubs[authorID] {
		if g.publications[pubID].Status == types.StatusIncoming {
			continue
		}
		for topicID := range g.pubTopics[pubID] {
			weights[topicID]++
		}
	}
	return weights
}

// SetInfluence annotates author nodes with ranking scores. Authors absent
// from the map keep their previous score.
func (g *Graph) SetInfluence(scores map[string]float64) {
	for id, score := range scores {
		a, ok := g.authors[id]
		if !ok {
			continue
		}
		a.InfluenceScore = score
		g.authors[id] = a
	}
}

// Counts reports graph size.
func (g *Graph) Counts() Counts {
	c := Counts{
		Authors:      len(g.authors),
		Publications: len(g.publications),
		Topics:       len(g.topics),
		ParentLinks:  len(g.topicParent),
	}
	for _, pubs := range g.authorPubs {
		c.Authorships += len(pubs)
	}
	for _, topics := range g.pubTopics {
		c.TopicLinks += len(topics)
	}
	for _, cited := range g.cites {
		c.Citations += len(cited)
	}
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedSet(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
