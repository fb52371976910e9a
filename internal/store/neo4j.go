// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/pdiddy/citegraph/pkg/types"
)

const defaultBatchSize = 500

// cypherRunner executes one Cypher statement. The production runner wraps
// the bolt driver; tests substitute a recorder.
type cypherRunner interface {
	Run(ctx context.Context, query string, params map[string]any) error
	Close(ctx context.Context) error
}

// Neo4jStore upserts the canonical graph into a Neo4j database. Rows go out
// in batches, one UNWIND statement per batch. Incoming submissions keep
// their "incoming" status so the database can tell them from the catalogue.
type Neo4jStore struct {
	runner    cypherRunner
	batchSize int
}

// NewNeo4jStore connects to the bolt endpoint in cfg and verifies
// connectivity before returning.
func NewNeo4jStore(ctx context.Context, cfg types.GraphStoreConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating bolt driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verifying connectivity to %s: %w", cfg.URI, err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Neo4jStore{
		runner:    &boltRunner{driver: driver, database: cfg.Database},
		batchSize: batchSize,
	}, nil
}

func (s *Neo4jStore) Name() string { return "neo4j" }

// Close releases the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.runner.Close(ctx)
}

// UpsertAuthors merges author nodes keyed by author_id.
func (s *Neo4jStore) UpsertAuthors(ctx context.Context, authors []types.Author) (int, error) {
	rows := make([]map[string]any, 0, len(authors))
	for _, a := range authors {
		rows = append(rows, map[string]any{
			"author_id":       a.ID,
			"full_name":       a.Name,
			"h_index":         a.HIndex,
			"research_sector": a.ResearchSector,
			"affiliation":     a.Affiliation,
			"influence_score": a.InfluenceScore,
		})
	}
	if err := s.runBatched(ctx, upsertAuthorsQuery, rows); err != nil {
		return 0, fmt.Errorf("upserting authors: %w", err)
	}
	return len(rows), nil
}

// UpsertTopics merges topic nodes, then the PARENT_TOPIC links for topics
// that declare one.
func (s *Neo4jStore) UpsertTopics(ctx context.Context, topics []types.Topic) (int, error) {
	nodes := make([]map[string]any, 0, len(topics))
	var parents []map[string]any
	for _, t := range topics {
		nodes = append(nodes, map[string]any{
			"topic_id": t.ID,
			"name":     t.Name,
		})
		if t.ParentID != "" {
			parents = append(parents, map[string]any{
				"topic_id":  t.ID,
				"parent_id": t.ParentID,
			})
		}
	}
	if err := s.runBatched(ctx, upsertTopicsQuery, nodes); err != nil {
		return 0, fmt.Errorf("upserting topics: %w", err)
	}
	if err := s.runBatched(ctx, upsertTopicParentsQuery, parents); err != nil {
		return 0, fmt.Errorf("upserting topic parents: %w", err)
	}
	return len(nodes), nil
}

// UpsertPublications merges publication nodes, then their WRITES, IS_ABOUT,
// and CITES links.
func (s *Neo4jStore) UpsertPublications(ctx context.Context, pubs []types.Publication) (int, error) {
	nodes := make([]map[string]any, 0, len(pubs))
	var writes, isAbout, cites []map[string]any
	for _, p := range pubs {
		nodes = append(nodes, map[string]any{
			"publication_id":   p.ID,
			"title":            p.Title,
			"publication_year": p.Year,
			"doi":              p.DOI,
			"status":           string(p.Status),
		})
		for _, authorID := range p.AuthorIDs {
			writes = append(writes, map[string]any{
				"author_id":      authorID,
				"publication_id": p.ID,
			})
		}
		for _, topicID := range p.TopicIDs {
			isAbout = append(isAbout, map[string]any{
				"publication_id": p.ID,
				"topic_id":       topicID,
			})
		}
		for _, citedID := range p.CitedPublicationIDs {
			cites = append(cites, map[string]any{
				"citing_id": p.ID,
				"cited_id":  citedID,
			})
		}
	}
	if err := s.runBatched(ctx, upsertPublicationsQuery, nodes); err != nil {
		return 0, fmt.Errorf("upserting publications: %w", err)
	}
	if err := s.runBatched(ctx, upsertAuthorshipsQuery, writes); err != nil {
		return 0, fmt.Errorf("upserting authorships: %w", err)
	}
	if err := s.runBatched(ctx, upsertTopicLinksQuery, isAbout); err != nil {
		return 0, fmt.Errorf("upserting topic links: %w", err)
	}
	if err := s.runBatched(ctx, upsertCitationsQuery, cites); err != nil {
		return 0, fmt.Errorf("upserting citations: %w", err)
	}
	return len(nodes), nil
}

// runBatched sends rows in batchSize chunks, one statement per chunk.
// Empty row sets send nothing.
func (s *Neo4jStore) runBatched(ctx context.Context, query string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.runner.Run(ctx, query, map[string]any{"rows": rows[start:end]}); err != nil {
			return err
		}
	}
	return nil
}

// boltRunner executes statements through the neo4j driver.
type boltRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *boltRunner) Run(ctx context.Context, query string, params map[string]any) error {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if r.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(r.database))
	}
	if _, err := neo4j.ExecuteQuery(ctx, r.driver, query, params, neo4j.EagerResultTransformer, opts...); err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}
	return nil
}

func (r *boltRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}
