// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/citegraph/pkg/types"
)

// SQLiteSource reads the dataset from a normalized staging database with
// tables authors, topics, publications, publication_authors,
// publication_topics, and citations. Rows load in insertion order, so
// repeated runs over the same database see the same record order.
type SQLiteSource struct {
	Path string
}

// Name implements Source.
func (s *SQLiteSource) Name() string { return "sqlite" }

// Load implements Source.
func (s *SQLiteSource) Load(ctx context.Context) (types.Dataset, error) {
	var ds types.Dataset

	if _, err := os.Stat(s.Path); err != nil {
		return ds, fmt.Errorf("staging database: %w", err)
	}
	db, err := sql.Open("sqlite3", s.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return ds, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if ds.Records, err = loadAuthorTable(ctx, db); err != nil {
		return ds, err
	}
	topics, err := loadTopicTable(ctx, db)
	if err != nil {
		return ds, err
	}
	if ds.Publications, err = loadPublicationTables(ctx, db); err != nil {
		return ds, err
	}

	ds.Topics = referencedTopics(topics, ds.Publications)
	attachPublications(ds.Records, ds.Publications)
	return ds, nil
}

func loadAuthorTable(ctx context.Context, db *sql.DB) ([]types.RawAuthorRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT author_id, full_name, COALESCE(h_index, 0),
		       COALESCE(research_sector, ''), COALESCE(affiliation, '')
		FROM authors ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying authors: %w", err)
	}
	defer rows.Close()

	var records []types.RawAuthorRecord
	for rows.Next() {
		var rec types.RawAuthorRecord
		if err := rows.Scan(&rec.RecordID, &rec.Name, &rec.HIndex,
			&rec.ResearchSector, &rec.Affiliation); err != nil {
			return nil, fmt.Errorf("scanning author row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func loadTopicTable(ctx context.Context, db *sql.DB) ([]types.Topic, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT topic_id, COALESCE(name, ''), COALESCE(parent_id, '')
		FROM topics ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	defer rows.Close()

	var topics []types.Topic
	for rows.Next() {
		var t types.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.ParentID); err != nil {
			return nil, fmt.Errorf("scanning topic row: %w", err)
		}
		if t.Name == "" {
			t.Name = types.TopicNameUnavailable
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func loadPublicationTables(ctx context.Context, db *sql.DB) ([]types.Publication, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT publication_id, COALESCE(publication_year, 0), COALESCE(doi, ''), status
		FROM publications ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying publications: %w", err)
	}
	defer rows.Close()

	var pubs []types.Publication
	index := make(map[string]int)
	for rows.Next() {
		var p types.Publication
		var status string
		if err := rows.Scan(&p.ID, &p.Year, &p.DOI, &status); err != nil {
			return nil, fmt.Errorf("scanning publication row: %w", err)
		}
		switch types.PublicationStatus(status) {
		case types.StatusPublished, types.StatusIncoming:
			p.Status = types.PublicationStatus(status)
		default:
			return nil, fmt.Errorf("publication %s: unknown status %q", p.ID, status)
		}
		index[p.ID] = len(pubs)
		pubs = append(pubs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Link rows referencing unknown publications are dropped here; dangling
	// ids inside the lists are the graph layer's concern.
	links := []struct {
		query string
		apply func(p *types.Publication, id string)
	}{
		{`SELECT publication_id, author_id FROM publication_authors ORDER BY rowid`,
			func(p *types.Publication, id string) { p.AuthorIDs = append(p.AuthorIDs, id) }},
		{`SELECT publication_id, topic_id FROM publication_topics ORDER BY rowid`,
			func(p *types.Publication, id string) { p.TopicIDs = append(p.TopicIDs, id) }},
		{`SELECT citing_id, cited_id FROM citations ORDER BY rowid`,
			func(p *types.Publication, id string) { p.CitedPublicationIDs = append(p.CitedPublicationIDs, id) }},
	}
	for _, l := range links {
		if err := scanLinks(ctx, db, l.query, index, pubs, l.apply); err != nil {
			return nil, err
		}
	}
	return pubs, nil
}

func scanLinks(ctx context.Context, db *sql.DB, query string, index map[string]int, pubs []types.Publication, apply func(*types.Publication, string)) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("querying links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pubID, otherID string
		if err := rows.Scan(&pubID, &otherID); err != nil {
			return fmt.Errorf("scanning link row: %w", err)
		}
		if i, ok := index[pubID]; ok {
			apply(&pubs[i], otherID)
		}
	}
	return rows.Err()
}
