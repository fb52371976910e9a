// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citegraph/internal/pipeline"
	"github.com/pdiddy/citegraph/internal/rank"
	"github.com/pdiddy/citegraph/internal/source"
	"github.com/pdiddy/citegraph/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: resolve, rank, load, and write reports",
	Long: `Run executes every stage in one pass: load records, resolve author
identities, build the canonical graph, rank influence, and upsert the graph
into Neo4j. Resolution outcomes and the influence snapshot go into the run
catalog; the merge report and score export are written next to it.

Without a configured Neo4j endpoint the export falls back to a dry run that
only tallies upserts.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("input", "", "record source: CSV directory or SQLite file")
	runCmd.Flags().String("format", "", "source format: csv or sqlite (default: by input extension)")
	runCmd.Flags().String("catalog", "", "run catalog path (default citegraph.db)")
	runCmd.Flags().String("report", "merge-report.yaml", "merge report path, .yaml or .json (empty to skip)")
	runCmd.Flags().String("scores", "scores.yaml", "score export path, .yaml or .json (empty to skip)")
	runCmd.Flags().String("neo4j-uri", "", "bolt endpoint, e.g. bolt://localhost:7687")
	runCmd.Flags().String("neo4j-user", "", "database username (default neo4j)")
	runCmd.Flags().String("neo4j-database", "", "target database name (default: server default)")
	runCmd.Flags().Int("batch-size", 0, "rows per batched upsert (default 500)")
	runCmd.Flags().Bool("dry-run", false, "tally upserts without connecting to Neo4j")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	applySourceFlags(cmd, &cfg)
	applyGraphFlags(cmd, &cfg)

	ctx := context.Background()
	out := os.Stdout

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if !dryRun && cfg.Graph.URI == "" {
		fmt.Fprintln(out, "No Neo4j endpoint configured; tallying upserts without a database")
		dryRun = true
	}

	var sink store.GraphStore
	if dryRun {
		sink = &store.DryRun{}
	} else {
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

	res, err := pipeline.Run(ctx, cfg, src, sink, out)
	if err != nil {
		return err
	}

	catalog, err := openCatalog(cmd, cfg)
	if err != nil {
		return err
	}
	defer catalog.Close()

	if err := catalog.SaveResolution(ctx, res.Resolution.Authors, res.Resolution.RecordToAuthor, res.Resolution.ReviewPairs); err != nil {
		return fmt.Errorf("saving resolution: %w", err)
	}
	opts := rank.FromConfig(cfg.Rank)
	runID, err := catalog.SaveInfluence(ctx, store.InfluenceSnapshot{
		Damping:       opts.Damping,
		Epsilon:       opts.Epsilon,
		MaxIterations: opts.MaxIterations,
		Iterations:    res.Rank.Iterations,
		Converged:     res.Rank.Converged,
		MaxDelta:      res.Rank.MaxDelta,
		Scores:        res.Rank.Scores,
	})
	if err != nil {
		return fmt.Errorf("saving influence snapshot: %w", err)
	}
	fmt.Fprintf(out, "Saved influence snapshot %d to the catalog\n", runID)

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := pipeline.WriteMergeReport(reportPath, res.Dataset.Records, res.Resolution.ReviewPairs); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote merge report to %s\n", reportPath)
	}
	if scoresPath, _ := cmd.Flags().GetString("scores"); scoresPath != "" {
		if err := pipeline.WriteScores(scoresPath, res.Rank); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote scores to %s\n", scoresPath)
	}

	fmt.Fprintf(out, "\nPipeline complete: %d authors, %d publications (%d incoming), %d topics\n",
		res.Summary.Authors, res.Summary.Publications, res.Summary.Incoming, res.Summary.Topics)
	return nil
}
