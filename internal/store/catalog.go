// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/citegraph/pkg/types"
)

const defaultCatalogFile = "citegraph.db"

// Catalog is the local SQLite record of what each run decided: canonical
// authors, the record mapping, pairs held for review, and influence
// snapshots. Commands read it back instead of recomputing a pipeline run.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens or creates the catalog database at cfg.DatabasePath,
// creating the schema if it does not exist.
func OpenCatalog(cfg types.CatalogConfig) (*Catalog, error) {
	path := cfg.DatabasePath
	if path == "" {
		path = defaultCatalogFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS authors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			name_variants TEXT,
			normalized_name TEXT,
			affiliation TEXT,
			h_index INTEGER,
			research_sector TEXT,
			publication_ids TEXT,
			source_record_ids TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS record_map (
			record_id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL REFERENCES authors(id)
		)`,
		`CREATE TABLE IF NOT EXISTS review_pairs (
			left_record_id TEXT NOT NULL,
			right_record_id TEXT NOT NULL,
			score REAL NOT NULL,
			decision TEXT NOT NULL,
			PRIMARY KEY (left_record_id, right_record_id)
		)`,
		`CREATE TABLE IF NOT EXISTS influence_runs (
			run_id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			damping REAL NOT NULL,
			epsilon REAL NOT NULL,
			max_iterations INTEGER NOT NULL,
			iterations INTEGER NOT NULL,
			converged INTEGER NOT NULL,
			max_delta REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS influence_scores (
			run_id INTEGER NOT NULL REFERENCES influence_runs(run_id),
			author_id TEXT NOT NULL,
			score REAL NOT NULL,
			PRIMARY KEY (run_id, author_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_record_map_author ON record_map(author_id)`,
		`CREATE INDEX IF NOT EXISTS idx_influence_scores_author ON influence_scores(author_id)`,
	}

	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveResolution records the outcome of a resolution run. Authors are
// upserted; the record mapping and review queue are replaced, since a new
// run supersedes both.
func (c *Catalog) SaveResolution(ctx context.Context, authors []types.Author, recordToAuthor map[string]string, pairs []types.CandidatePair) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM record_map`); err != nil {
		return fmt.Errorf("clearing record map: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM review_pairs`); err != nil {
		return fmt.Errorf("clearing review pairs: %w", err)
	}

	authorStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO authors (id, name, name_variants, normalized_name, affiliation, h_index, research_sector, publication_ids, source_record_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, name_variants=excluded.name_variants,
			normalized_name=excluded.normalized_name, affiliation=excluded.affiliation,
			h_index=excluded.h_index, research_sector=excluded.research_sector,
			publication_ids=excluded.publication_ids, source_record_ids=excluded.source_record_ids`)
	if err != nil {
		return fmt.Errorf("preparing author upsert: %w", err)
	}
	defer authorStmt.Close()

	for _, a := range authors {
		variantsJSON, _ := json.Marshal(a.NameVariants)
		pubsJSON, _ := json.Marshal(a.PublicationIDs)
		recordsJSON, _ := json.Marshal(a.SourceRecordIDs)
		if _, err := authorStmt.ExecContext(ctx,
			a.ID, a.Name, string(variantsJSON), a.NormalizedName, a.Affiliation,
			a.HIndex, a.ResearchSector, string(pubsJSON), string(recordsJSON),
		); err != nil {
			return fmt.Errorf("upserting author %s: %w", a.ID, err)
		}
	}

	mapStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO record_map (record_id, author_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing record map insert: %w", err)
	}
	defer mapStmt.Close()

	recordIDs := make([]string, 0, len(recordToAuthor))
	for recordID := range recordToAuthor {
		recordIDs = append(recordIDs, recordID)
	}
	sort.Strings(recordIDs)
	for _, recordID := range recordIDs {
		if _, err := mapStmt.ExecContext(ctx, recordID, recordToAuthor[recordID]); err != nil {
			return fmt.Errorf("inserting record mapping %s: %w", recordID, err)
		}
	}

	pairStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO review_pairs (left_record_id, right_record_id, score, decision) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing review pair insert: %w", err)
	}
	defer pairStmt.Close()

	for _, pair := range pairs {
		if _, err := pairStmt.ExecContext(ctx,
			pair.LeftRecordID, pair.RightRecordID, pair.Score, string(pair.Decision),
		); err != nil {
			return fmt.Errorf("inserting review pair %s/%s: %w", pair.LeftRecordID, pair.RightRecordID, err)
		}
	}

	return tx.Commit()
}

// Authors returns the catalogued canonical authors ordered by name then id.
func (c *Catalog) Authors(ctx context.Context) ([]types.Author, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, name_variants, normalized_name, affiliation, h_index, research_sector, publication_ids, source_record_ids
		 FROM authors ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying authors: %w", err)
	}
	defer rows.Close()

	var authors []types.Author
	for rows.Next() {
		var (
			a            types.Author
			variantsJSON sql.NullString
			pubsJSON     sql.NullString
			recordsJSON  sql.NullString
		)
		if err := rows.Scan(
			&a.ID, &a.Name, &variantsJSON, &a.NormalizedName, &a.Affiliation,
			&a.HIndex, &a.ResearchSector, &pubsJSON, &recordsJSON,
		); err != nil {
			return nil, fmt.Errorf("scanning author row: %w", err)
		}
		if variantsJSON.Valid {
			json.Unmarshal([]byte(variantsJSON.String), &a.NameVariants)
		}
		if pubsJSON.Valid {
			json.Unmarshal([]byte(pubsJSON.String), &a.PublicationIDs)
		}
		if recordsJSON.Valid {
			json.Unmarshal([]byte(recordsJSON.String), &a.SourceRecordIDs)
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// AuthorForRecord returns the canonical author id a record resolved to.
func (c *Catalog) AuthorForRecord(ctx context.Context, recordID string) (string, error) {
	var authorID string
	err := c.db.QueryRowContext(ctx,
		`SELECT author_id FROM record_map WHERE record_id = ?`, recordID,
	).Scan(&authorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("record %s not found", recordID)
		}
		return "", fmt.Errorf("looking up record: %w", err)
	}
	return authorID, nil
}

// ReviewPairs returns the held low-confidence pairs ordered by record ids.
func (c *Catalog) ReviewPairs(ctx context.Context) ([]types.CandidatePair, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT left_record_id, right_record_id, score, decision
		 FROM review_pairs ORDER BY left_record_id, right_record_id`)
	if err != nil {
		return nil, fmt.Errorf("querying review pairs: %w", err)
	}
	defer rows.Close()

	var pairs []types.CandidatePair
	for rows.Next() {
		var (
			pair     types.CandidatePair
			decision string
		)
		if err := rows.Scan(&pair.LeftRecordID, &pair.RightRecordID, &pair.Score, &decision); err != nil {
			return nil, fmt.Errorf("scanning review pair row: %w", err)
		}
		pair.Decision = types.MergeDecision(decision)
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}

// InfluenceSnapshot is one ranking run with its scores and convergence
// status.
type InfluenceSnapshot struct {
	RunID         int64              `json:"run_id" yaml:"run_id"`
	CreatedAt     time.Time          `json:"created_at" yaml:"created_at"`
	Damping       float64            `json:"damping" yaml:"damping"`
	Epsilon       float64            `json:"epsilon" yaml:"epsilon"`
	MaxIterations int                `json:"max_iterations" yaml:"max_iterations"`
	Iterations    int                `json:"iterations" yaml:"iterations"`
	Converged     bool               `json:"converged" yaml:"converged"`
	MaxDelta      float64            `json:"max_delta" yaml:"max_delta"`
	Scores        map[string]float64 `json:"scores" yaml:"scores"`
}

// SaveInfluence appends a snapshot and returns its run id. Earlier runs are
// kept so score drift stays inspectable.
func (c *Catalog) SaveInfluence(ctx context.Context, snap InfluenceSnapshot) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO influence_runs (created_at, damping, epsilon, max_iterations, iterations, converged, max_delta)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		createdAt.UTC().Format(time.RFC3339Nano), snap.Damping, snap.Epsilon,
		snap.MaxIterations, snap.Iterations, snap.Converged, snap.MaxDelta,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting influence run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	scoreStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO influence_scores (run_id, author_id, score) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing score insert: %w", err)
	}
	defer scoreStmt.Close()

	authorIDs := make([]string, 0, len(snap.Scores))
	for id := range snap.Scores {
		authorIDs = append(authorIDs, id)
	}
	sort.Strings(authorIDs)
	for _, id := range authorIDs {
		if _, err := scoreStmt.ExecContext(ctx, runID, id, snap.Scores[id]); err != nil {
			return 0, fmt.Errorf("inserting score for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// LatestInfluence returns the most recent snapshot. With authorIDs given,
// the score map is restricted to those authors.
func (c *Catalog) LatestInfluence(ctx context.Context, authorIDs ...string) (InfluenceSnapshot, error) {
	var (
		snap      InfluenceSnapshot
		createdAt string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT run_id, created_at, damping, epsilon, max_iterations, iterations, converged, max_delta
		 FROM influence_runs ORDER BY run_id DESC LIMIT 1`,
	).Scan(&snap.RunID, &createdAt, &snap.Damping, &snap.Epsilon,
		&snap.MaxIterations, &snap.Iterations, &snap.Converged, &snap.MaxDelta)
	if err != nil {
		if err == sql.ErrNoRows {
			return snap, fmt.Errorf("no influence runs recorded")
		}
		return snap, fmt.Errorf("reading influence run: %w", err)
	}
	if parsed, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		snap.CreatedAt = parsed
	}

	query := `SELECT author_id, score FROM influence_scores WHERE run_id = ?`
	args := []any{snap.RunID}
	if len(authorIDs) > 0 {
		query += ` AND author_id IN (?` + strings.Repeat(",?", len(authorIDs)-1) + `)`
		for _, id := range authorIDs {
			args = append(args, id)
		}
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return snap, fmt.Errorf("querying influence scores: %w", err)
	}
	defer rows.Close()

	snap.Scores = make(map[string]float64)
	for rows.Next() {
		var (
			authorID string
			score    float64
		)
		if err := rows.Scan(&authorID, &score); err != nil {
			return snap, fmt.Errorf("scanning score row: %w", err)
		}
		snap.Scores[authorID] = score
	}
	return snap, rows.Err()
}
