// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source loads bibliographic datasets from external staging
// formats. The pipeline core never parses files or speaks SQL; everything
// enters through a Source.
package source

import (
	"context"
	"fmt"

	"github.com/pdiddy/citegraph/pkg/types"
)

// Source supplies the raw dataset for a pipeline run.
type Source interface {
	// Name identifies the backend in progress output.
	Name() string

	// Load reads the complete dataset: raw author records, publications
	// (published and incoming), and topics. Implementations validate shape
	// but never resolve identities.
	Load(ctx context.Context) (types.Dataset, error)
}

// New selects a Source from configuration.
func New(cfg types.SourceConfig) (Source, error) {
	switch cfg.Kind {
	case types.SourceCSV, "":
		return &CSVSource{Dir: cfg.DataDir}, nil
	case types.SourceSQLite:
		return &SQLiteSource{Path: cfg.DatabasePath}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}
