// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"fmt"
	"sort"

	"github.com/pdiddy/citegraph/pkg/types"
)

// HopDistance returns the number of co-authorship hops between two authors:
// 0 for the same author, 1 for direct co-authors, and so on. Returns -1
// when the authors are not connected.
func (g *Graph) HopDistance(fromID, toID string) (int, error) {
	if _, ok := g.authors[fromID]; !ok {
		return 0, fmt.Errorf("%w: author %s", ErrUnknownNode, fromID)
	}
	if _, ok := g.authors[toID]; !ok {
		return 0, fmt.Errorf("%w: author %s", ErrUnknownNode, toID)
	}
	if fromID == toID {
		return 0, nil
	}

	// BFS frontier by frontier; the depth of the frontier that first
	// reaches toID is the hop distance.
	visited := map[string]bool{fromID: true}
	queue := []string{fromID}
	for depth := 1; len(queue) > 0; depth++ {
		var next []string
		for _, id := range queue {
			for other := range g.Coauthors(id) {
				if other == toID {
					return depth, nil
				}
				if !visited[other] {
					visited[other] = true
					next = append(next, other)
				}
			}
		}
		queue = next
	}
	return -1, nil
}

// WithinHops returns every author reachable from the seeds within maxHops
// co-authorship hops, mapped to its distance. Seeds appear at distance 0.
// Edges older than minYear are not followed; minYear 0 follows everything.
func (g *Graph) WithinHops(seedIDs []string, maxHops, minYear int) map[string]int {
	dist := make(map[string]int)
	var queue []string
	for _, id := range seedIDs {
		if _, ok := g.authors[id]; !ok {
			continue
		}
		if _, seen := dist[id]; !seen {
			dist[id] = 0
			queue = append(queue, id)
		}
	}

	for depth := 1; depth <= maxHops && len(queue) > 0; depth++ {
		var next []string
		for _, id := range queue {
			for other, edge := range g.Coauthors(id) {
				if minYear > 0 && edge.LatestYear > 0 && edge.LatestYear < minYear {
					continue
				}
				if _, seen := dist[other]; !seen {
					dist[other] = depth
					next = append(next, other)
				}
			}
		}
		queue = next
	}
	return dist
}

// TopicSubtree returns the topic and all its taxonomy descendants, sorted.
func (g *Graph) TopicSubtree(topicID string) []string {
	if _, ok := g.topics[topicID]; !ok {
		return nil
	}

	children := make(map[string][]string)
	for child, parent := range g.topicParent {
		children[parent] = append(children[parent], child)
	}

	visited := map[string]bool{topicID: true}
	queue := []string{topicID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if !visited[child] {
				visited[child] = true
				queue = append(queue, child)
			}
		}
	}

	ids := make([]string, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InducedByTopics returns the subgraph induced by the given topic ids:
// the topics themselves, every publication about at least one of them,
// and every author of those publications. Relationships with both
// endpoints inside the subgraph are carried over. The receiver is not
// modified.
func (g *Graph) InducedByTopics(topicIDs []string) *Graph {
	sub := New()

	keep := make(map[string]bool, len(topicIDs))
	for _, id := range topicIDs {
		if t, ok := g.topics[id]; ok {
			keep[id] = true
			sub.topics[id] = t
		}
	}

	for pubID, topics := range g.pubTopics {
		touched := false
		for topicID := range topics {
			if keep[topicID] {
				touched = true
				break
			}
		}
		if !touched {
			continue
		}
		sub.publications[pubID] = g.publications[pubID]
		sub.pubAuthors[pubID] = make(map[string]bool)
		sub.pubTopics[pubID] = make(map[string]bool)
		for topicID := range topics {
			if !keep[topicID] {
				continue
			}
			sub.pubTopics[pubID][topicID] = true
			if sub.topicPubs[topicID] == nil {
				sub.topicPubs[topicID] = make(map[string]bool)
			}
			sub.topicPubs[topicID][pubID] = true
		}
		for authorID := range g.pubAuthors[pubID] {
			if sub.authorPubs[authorID] == nil {
				sub.authors[authorID] = g.authors[authorID]
				sub.authorPubs[authorID] = make(map[string]bool)
			}
			sub.authorPubs[authorID][pubID] = true
			sub.pubAuthors[pubID][authorID] = true
		}
	}

	for from, cited := range g.cites {
		if _, ok := sub.publications[from]; !ok {
			continue
		}
		for to := range cited {
			if _, ok := sub.publications[to]; !ok {
				continue
			}
			if sub.cites[from] == nil {
				sub.cites[from] = make(map[string]bool)
			}
			sub.cites[from][to] = true
		}
	}

	for child, parent := range g.topicParent {
		if keep[child] && keep[parent] {
			sub.topicParent[child] = parent
		}
	}

	return sub
}

// IncomingPublications returns submissions awaiting review, sorted by id.
func (g *Graph) IncomingPublications() []string {
	var ids []string
	for id, p := range g.publications {
		if p.Status == types.StatusIncoming {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
