// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citegraph/internal/pipeline"
	"github.com/pdiddy/citegraph/internal/rank"
	"github.com/pdiddy/citegraph/internal/source"
	"github.com/pdiddy/citegraph/internal/store"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Compute author influence scores over the citation graph",
	Long: `Rank runs the pipeline through influence ranking: weighted PageRank over
the blended co-authorship and citation graph. Every run is saved to the run
catalog as a snapshot; --from-catalog reads the latest snapshot back instead
of recomputing, which is how scores are queried after a batch run.`,
	RunE: runRank,
}

func init() {
	rankCmd.Flags().String("input", "", "record source: CSV directory or SQLite file")
	rankCmd.Flags().String("format", "", "source format: csv or sqlite (default: by input extension)")
	rankCmd.Flags().String("catalog", "", "run catalog path (default citegraph.db)")
	rankCmd.Flags().Float64("damping", 0, "damping factor (default 0.85)")
	rankCmd.Flags().Float64("epsilon", 0, "convergence bound on the max per-author delta (default 1e-6)")
	rankCmd.Flags().Int("max-iterations", 0, "iteration budget (default 100)")
	rankCmd.Flags().StringSlice("author", nil, "limit output to these author ids (repeatable)")
	rankCmd.Flags().Int("top", 20, "number of scores to print (0 = all)")
	rankCmd.Flags().String("scores", "", "write the ranking to this file, .yaml or .json")
	rankCmd.Flags().Bool("from-catalog", false, "read the latest snapshot from the catalog instead of recomputing")
	rankCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	applySourceFlags(cmd, &cfg)
	if damping, _ := cmd.Flags().GetFloat64("damping"); damping > 0 {
		cfg.Rank.Damping = damping
	}
	if epsilon, _ := cmd.Flags().GetFloat64("epsilon"); epsilon > 0 {
		cfg.Rank.Epsilon = epsilon
	}
	if maxIter, _ := cmd.Flags().GetInt("max-iterations"); maxIter > 0 {
		cfg.Rank.MaxIterations = maxIter
	}

	authorIDs, _ := cmd.Flags().GetStringSlice("author")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	fromCatalog, _ := cmd.Flags().GetBool("from-catalog")

	progress := io.Writer(os.Stdout)
	if jsonOutput {
		progress = os.Stderr
	}

	ctx := context.Background()
	catalog, err := openCatalog(cmd, cfg)
	if err != nil {
		return err
	}
	defer catalog.Close()

	var result rank.Result
	if fromCatalog {
		snap, err := catalog.LatestInfluence(ctx, authorIDs...)
		if err != nil {
			return err
		}
		result = rank.Result{
			Scores:     snap.Scores,
			Converged:  snap.Converged,
			Iterations: snap.Iterations,
			MaxDelta:   snap.MaxDelta,
		}
	} else {
		src, err := source.New(cfg.Source)
		if err != nil {
			return err
		}
		res, err := pipeline.Run(ctx, cfg, src, nil, progress)
		if err != nil {
			return err
		}
		result = res.Rank

		opts := rank.FromConfig(cfg.Rank)
		runID, err := catalog.SaveInfluence(ctx, store.InfluenceSnapshot{
			Damping:       opts.Damping,
			Epsilon:       opts.Epsilon,
			MaxIterations: opts.MaxIterations,
			Iterations:    result.Iterations,
			Converged:     result.Converged,
			MaxDelta:      result.MaxDelta,
			Scores:        result.Scores,
		})
		if err != nil {
			return fmt.Errorf("saving influence snapshot: %w", err)
		}
		fmt.Fprintf(progress, "Saved influence snapshot %d to the catalog\n", runID)

		result = filterScores(result, authorIDs)
	}

	if scoresPath, _ := cmd.Flags().GetString("scores"); scoresPath != "" {
		if err := pipeline.WriteScores(scoresPath, result); err != nil {
			return err
		}
		fmt.Fprintf(progress, "Wrote scores to %s\n", scoresPath)
	}

	top, _ := cmd.Flags().GetInt("top")
	return formatRankOutput(result, top, jsonOutput)
}

// filterScores restricts a ranking to the requested author ids. Unknown
// ids are silently absent from the result.
func filterScores(r rank.Result, ids []string) rank.Result {
	if len(ids) == 0 {
		return r
	}
	scores := make(map[string]float64, len(ids))
	for _, id := range ids {
		if s, ok := r.Scores[id]; ok {
			scores[id] = s
		}
	}
	out := r
	out.Scores = scores
	return out
}

func formatRankOutput(result rank.Result, top int, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	entries := result.Sorted()
	if len(entries) == 0 {
		fmt.Println("No authors ranked.")
		return nil
	}
	if top > 0 && len(entries) > top {
		entries = entries[:top]
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-40s  %s\n", "Rank", "Author", "Score")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 58))
	for i, e := range entries {
		fmt.Fprintf(os.Stdout, "%-4d  %-40s  %.6f\n", i+1, e.AuthorID, e.Score)
	}
	fmt.Fprintf(os.Stdout, "\nconverged=%t after %d iterations (max delta %.3g)\n",
		result.Converged, result.Iterations, result.MaxDelta)
	return nil
}
