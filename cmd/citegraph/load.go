package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citegraph/internal/pipeline"
	"github.com/pdiddy/citegraph/internal/source"
	"github.com/pdiddy/citegraph/internal/store"
	"github.com/pdiddy/citegraph/pkg/types"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Build the canonical graph and upsert it into Neo4j",
	Long: `Load runs the full pipeline and upserts the canonical graph into Neo4j:
authors, topics, and publications as nodes; authorship, topic, citation,
and taxonomy relationships as edges. Upserts are idempotent, so reloading
the same dataset leaves the database unchanged.

Credentials come from flags, the config file, or .secrets/ files
(neo4j-uri, neo4j-user, neo4j-password). --dry-run prints upsert counts
without connecting.`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().String("input", "", "record source: CSV directory or SQLite file")
	loadCmd.Flags().String("format", "", "source format: csv or sqlite (default: by input extension)")
	loadCmd.Flags().String("neo4j-uri", "", "bolt endpoint, e.g. bolt://localhost:7687")
	loadCmd.Flags().String("neo4j-user", "", "database username (default neo4j)")
	loadCmd.Flags().String("neo4j-database", "", "target database name (default: server default)")
	loadCmd.Flags().Int("batch-size", 0, "rows per batched upsert (default 500)")
	loadCmd.Flags().Bool("dry-run", false, "tally upserts without connecting to Neo4j")

	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	applySourceFlags(cmd, &cfg)
	applyGraphFlags(cmd, &cfg)

	ctx := context.Background()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var sink store.GraphStore
	if dryRun {
		sink = &store.DryRun{}
	} else {
		if cfg.Graph.URI == "" {
			return fmt.Errorf("no Neo4j endpoint: set --neo4j-uri, graph.uri in config, or .secrets/neo4j-uri")
		}
		s, err := store.NewNeo4jStore(ctx, cfg.Graph)
		if err != nil {
			return err
		}
		sink = s
	}
	defer sink.Close(ctx)

	src, err := source.New(cfg.Source)
	if err != nil {
		return err
	}

	if _, err := pipeline.Run(ctx, cfg, src, sink, os.Stdout); err != nil {
		return err
	}
	return nil
}

// applyGraphFlags folds the Neo4j connection flags into cfg and fills the
// gaps from loaded secrets.
func applyGraphFlags(cmd *cobra.Command, cfg *types.PipelineConfig) {
	if uri, _ := cmd.Flags().GetString("neo4j-uri"); uri != "" {
		cfg.Graph.URI = uri
	}
	if user, _ := cmd.Flags().GetString("neo4j-user"); user != "" {
		cfg.Graph.Username = user
	}
	if db, _ := cmd.Flags().GetString("neo4j-database"); db != "" {
		cfg.Graph.Database = db
	}
	if batch, _ := cmd.Flags().GetInt("batch-size"); batch > 0 {
		cfg.Graph.BatchSize = batch
	}
	cfg.Graph.URI = secretDefault("neo4j-uri", cfg.Graph.URI)
	cfg.Graph.Username = secretDefault("neo4j-user", cfg.Graph.Username)
	cfg.Graph.Password = secretDefault("neo4j-password", cfg.Graph.Password)
	if cfg.Graph.Username == "" {
		cfg.Graph.Username = "neo4j"
	}
}
