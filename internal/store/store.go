// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists pipeline outputs. The Neo4j sink receives the
// canonical graph as idempotent upserts; the SQLite catalog records what
// each run decided so later commands can read it back without recomputing.
package store

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/citegraph/internal/graph"
	"github.com/pdiddy/citegraph/pkg/types"
)

// GraphStore accepts idempotent upserts of canonical entities and their
// relationships. Upserting the same entity twice leaves the store unchanged.
type GraphStore interface {
	// Name identifies the sink in progress output.
	Name() string

	// UpsertAuthors writes author nodes. Returns the number of rows sent.
	UpsertAuthors(ctx context.Context, authors []types.Author) (int, error)

	// UpsertTopics writes topic nodes and their taxonomy links.
	UpsertTopics(ctx context.Context, topics []types.Topic) (int, error)

	// UpsertPublications writes publication nodes and their authorship,
	// topic, and citation links. Node endpoints must already exist; rows
	// referencing missing endpoints create no relationship.
	UpsertPublications(ctx context.Context, pubs []types.Publication) (int, error)

	Close(ctx context.Context) error
}

// DryRun satisfies GraphStore without opening a connection. It tallies what
// a load would write, for --dry-run output.
type DryRun struct {
	Authors      int
	Topics       int
	Publications int
}

func (d *DryRun) Name() string { return "dry-run" }

func (d *DryRun) UpsertAuthors(_ context.Context, authors []types.Author) (int, error) {
	d.Authors += len(authors)
	return len(authors), nil
}

func (d *DryRun) UpsertTopics(_ context.Context, topics []types.Topic) (int, error) {
	d.Topics += len(topics)
	return len(topics), nil
}

func (d *DryRun) UpsertPublications(_ context.Context, pubs []types.Publication) (int, error) {
	d.Publications += len(pubs)
	return len(pubs), nil
}

func (d *DryRun) Close(context.Context) error { return nil }

// ExportSummary holds counts from a graph export.
type ExportSummary struct {
	Authors      int `json:"authors" yaml:"authors"`
	Topics       int `json:"topics" yaml:"topics"`
	Publications int `json:"publications" yaml:"publications"`
}

// ExportGraph pushes every node in g to dst, authors and topics before
// publications so relationship endpoints exist when the links arrive.
// Progress goes to w.
func ExportGraph(ctx context.Context, g *graph.Graph, dst GraphStore, w io.Writer) (ExportSummary, error) {
	var summary ExportSummary

	authorIDs := g.AuthorIDs()
	authors := make([]types.Author, 0, len(authorIDs))
	for _, id := range authorIDs {
		if a, ok := g.Author(id); ok {
			authors = append(authors, a)
		}
	}
	n, err := dst.UpsertAuthors(ctx, authors)
	if err != nil {
		return summary, fmt.Errorf("upserting authors: %w", err)
	}
	summary.Authors = n
	fmt.Fprintf(w, "upserted %d authors\n", n)

	topicIDs := g.TopicIDs()
	topics := make([]types.Topic, 0, len(topicIDs))
	for _, id := range topicIDs {
		if t, ok := g.Topic(id); ok {
			topics = append(topics, t)
		}
	}
	n, err = dst.UpsertTopics(ctx, topics)
	if err != nil {
		return summary, fmt.Errorf("upserting topics: %w", err)
	}
	summary.Topics = n
	fmt.Fprintf(w, "upserted %d topics\n", n)

	pubIDs := g.PublicationIDs()
	pubs := make([]types.Publication, 0, len(pubIDs))
	for _, id := range pubIDs {
		if p, ok := g.Publication(id); ok {
			pubs = append(pubs, p)
		}
	}
	n, err = dst.UpsertPublications(ctx, pubs)
	if err != nil {
		return summary, fmt.Errorf("upserting publications: %w", err)
	}
	summary.Publications = n
	fmt.Fprintf(w, "upserted %d publications\n", n)

	return summary, nil
}
