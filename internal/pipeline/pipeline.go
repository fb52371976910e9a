// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates a batch run: load records, resolve author
// identities, build the canonical graph, rank influence, and export to the
// graph store. The pipeline owns the graph while it runs; commands receive
// it read-only through Result once Run returns.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pdiddy/citegraph/internal/graph"
	"github.com/pdiddy/citegraph/internal/rank"
	"github.com/pdiddy/citegraph/internal/resolve"
	"github.com/pdiddy/citegraph/internal/source"
	"github.com/pdiddy/citegraph/internal/store"
	"github.com/pdiddy/citegraph/pkg/types"
)

// Summary holds per-stage counts from one run.
type Summary struct {
	Source        string               `json:"source" yaml:"source"`
	Records       int                  `json:"records" yaml:"records"`
	Publications  int                  `json:"publications" yaml:"publications"`
	Incoming      int                  `json:"incoming" yaml:"incoming"`
	Topics        int                  `json:"topics" yaml:"topics"`
	Authors       int                  `json:"authors" yaml:"authors"`
	MergedPairs   int                  `json:"merged_pairs" yaml:"merged_pairs"`
	ReviewPairs   int                  `json:"review_pairs" yaml:"review_pairs"`
	RejectedLinks int                  `json:"rejected_links" yaml:"rejected_links"`
	Iterations    int                  `json:"iterations" yaml:"iterations"`
	Converged     bool                 `json:"converged" yaml:"converged"`
	Upserted      *store.ExportSummary `json:"upserted,omitempty" yaml:"upserted,omitempty"`
}

// Result carries every intermediate product of a run so commands can keep
// querying after the pipeline returns.
type Result struct {
	Dataset    types.Dataset
	Resolution resolve.Result
	Graph      *graph.Graph
	Rejected   []graph.RejectedRelationship
	Rank       rank.Result
	Summary    Summary
}

// LoadAndResolve runs the first two stages: pull the dataset from the
// source and resolve raw author records into canonical authors.
func LoadAndResolve(ctx context.Context, cfg types.PipelineConfig, src source.Source, w io.Writer) (types.Dataset, resolve.Result, error) {
	fmt.Fprintf(w, "Loading records from %s\n", src.Name())
	ds, err := src.Load(ctx)
	if err != nil {
		return types.Dataset{}, resolve.Result{}, fmt.Errorf("loading dataset: %w", err)
	}
	fmt.Fprintf(w, "Loaded %d author records, %d publications, %d topics\n",
		len(ds.Records), len(ds.Publications), len(ds.Topics))

	res, err := resolve.Resolve(ctx, ds.Records, nil, cfg.Resolver, w)
	if err != nil {
		return types.Dataset{}, resolve.Result{}, fmt.Errorf("resolving authors: %w", err)
	}
	return ds, res, nil
}

// Run executes the full pipeline. sink may be nil, in which case nothing is
// exported and Summary.Upserted stays nil.
func Run(ctx context.Context, cfg types.PipelineConfig, src source.Source, sink store.GraphStore, w io.Writer) (*Result, error) {
	ds, res, err := LoadAndResolve(ctx, cfg, src, w)
	if err != nil {
		return nil, err
	}

	g, rejected, err := BuildGraph(ds, res, w)
	if err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}

	rankRes := rank.Rank(ctx, g, rank.FromConfig(cfg.Rank))
	g.SetInfluence(rankRes.Scores)
	fmt.Fprintf(w, "Ranked %d authors in %d iterations (converged=%t)\n",
		len(rankRes.Scores), rankRes.Iterations, rankRes.Converged)

	incoming := 0
	for _, p := range ds.Publications {
		if p.Status == types.StatusIncoming {
			incoming++
		}
	}

	result := &Result{
		Dataset:    ds,
		Resolution: res,
		Graph:      g,
		Rejected:   rejected,
		Rank:       rankRes,
		Summary: Summary{
			Source:        src.Name(),
			Records:       len(ds.Records),
			Publications:  len(ds.Publications),
			Incoming:      incoming,
			Topics:        len(ds.Topics),
			Authors:       len(res.Authors),
			MergedPairs:   res.MergedPairs,
			ReviewPairs:   len(res.ReviewPairs),
			RejectedLinks: len(rejected),
			Iterations:    rankRes.Iterations,
			Converged:     rankRes.Converged,
		},
	}

	if sink != nil {
		fmt.Fprintf(w, "Exporting graph to %s\n", sink.Name())
		exported, err := store.ExportGraph(ctx, g, sink, w)
		if err != nil {
			return nil, fmt.Errorf("exporting to %s: %w", sink.Name(), err)
		}
		result.Summary.Upserted = &exported
	}

	return result, nil
}

// BuildGraph materializes the canonical graph: topics with their taxonomy
// edges, canonical authors, then publications with author lists rewritten
// through the record mapping. Relationships referencing unknown ids are
// collected as rejections and skipped, never silently dropped and never
// fatal.
func BuildGraph(ds types.Dataset, res resolve.Result, w io.Writer) (*graph.Graph, []graph.RejectedRelationship, error) {
	g := graph.New()
	var rejected []graph.RejectedRelationship

	for _, t := range ds.Topics {
		if err := g.UpsertTopic(t); err != nil {
			return nil, nil, fmt.Errorf("upserting topic %q: %w", t.ID, err)
		}
	}
	// Parent links once every topic exists, so file order does not matter.
	for _, t := range ds.Topics {
		if t.ParentID == "" {
			continue
		}
		if err := g.LinkTopicParent(t.ID, t.ParentID); err != nil {
			rejected = append(rejected, rejection(graph.RelParentTopic, t.ID, t.ParentID, err))
		}
	}

	for _, a := range res.Authors {
		if err := g.UpsertAuthor(a); err != nil {
			return nil, nil, fmt.Errorf("upserting author %q: %w", a.ID, err)
		}
	}

	for _, p := range ds.Publications {
		// Rewrite the author list to canonical ids. Two records that merged
		// into the same entity collapse to one authorship.
		mapped := make([]string, 0, len(p.AuthorIDs))
		seen := make(map[string]bool, len(p.AuthorIDs))
		for _, recordID := range p.AuthorIDs {
			canonicalID, ok := res.RecordToAuthor[recordID]
			if !ok {
				rejected = append(rejected, graph.RejectedRelationship{
					Kind: graph.RelWrites, FromID: recordID, ToID: p.ID, MissingID: recordID,
				})
				continue
			}
			if seen[canonicalID] {
				continue
			}
			seen[canonicalID] = true
			mapped = append(mapped, canonicalID)
		}
		p.AuthorIDs = mapped

		if err := g.UpsertPublication(p); err != nil {
			return nil, nil, fmt.Errorf("upserting publication %q: %w", p.ID, err)
		}
		for _, authorID := range mapped {
			if err := g.LinkAuthorship(authorID, p.ID); err != nil {
				rejected = append(rejected, rejection(graph.RelWrites, authorID, p.ID, err))
			}
		}
	}

	// Topic and citation links once every publication node exists, so
	// citations may point forward in the input.
	for _, p := range ds.Publications {
		for _, topicID := range p.TopicIDs {
			if err := g.LinkTopic(p.ID, topicID); err != nil {
				rejected = append(rejected, rejection(graph.RelIsAbout, p.ID, topicID, err))
			}
		}
		for _, citedID := range p.CitedPublicationIDs {
			if err := g.LinkCitation(p.ID, citedID); err != nil {
				rejected = append(rejected, rejection(graph.RelCites, p.ID, citedID, err))
			}
		}
	}

	counts := g.Counts()
	fmt.Fprintf(w, "Graph: %d authors, %d publications, %d topics, %d authorships, %d citations",
		counts.Authors, counts.Publications, counts.Topics, counts.Authorships, counts.Citations)
	if len(rejected) > 0 {
		fmt.Fprintf(w, " (%d relationships rejected)", len(rejected))
	}
	fmt.Fprintln(w)

	return g, rejected, nil
}

// rejection builds the report row for a failed link. The missing endpoint
// is the target for unknown-node errors; other failures (a publication
// citing itself, a topic parenting itself) carry no missing id.
func rejection(kind graph.RelKind, fromID, toID string, err error) graph.RejectedRelationship {
	r := graph.RejectedRelationship{Kind: kind, FromID: fromID, ToID: toID}
	if errors.Is(err, graph.ErrUnknownNode) {
		r.MissingID = toID
	}
	return r
}
