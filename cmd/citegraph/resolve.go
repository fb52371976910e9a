package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citegraph/internal/pipeline"
	"github.com/pdiddy/citegraph/internal/source"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve raw author records into canonical entities",
	Long: `Resolve loads author records from the record source, blocks and scores
candidate pairs, and merges pairs at or above the merge threshold into
canonical author entities. Pairs in the ambiguous band go into the merge
report for review; they are never merged automatically.

Outcomes are saved to the run catalog so later commands can read them back.`,
	RunE: runResolve,
}

// resolveSummary is the machine-readable outcome printed with --json.
type resolveSummary struct {
	Records     int `json:"records"`
	Authors     int `json:"authors"`
	MergedPairs int `json:"merged_pairs"`
	ReviewPairs int `json:"review_pairs"`
	Blocks      int `json:"blocks"`
	Comparisons int `json:"comparisons"`
}

func init() {
	resolveCmd.Flags().String("input", "", "record source: CSV directory or SQLite file")
	resolveCmd.Flags().String("format", "", "source format: csv or sqlite (default: by input extension)")
	resolveCmd.Flags().String("report", "merge-report.yaml", "merge report path, .yaml or .json (empty to skip)")
	resolveCmd.Flags().String("catalog", "", "run catalog path (default citegraph.db)")
	resolveCmd.Flags().Bool("json", false, "output the summary as JSON")

	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	applySourceFlags(cmd, &cfg)

	src, err := source.New(cfg.Source)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	progress := io.Writer(os.Stdout)
	if jsonOutput {
		// Keep stdout clean for the JSON document.
		progress = os.Stderr
	}

	ctx := context.Background()
	ds, res, err := pipeline.LoadAndResolve(ctx, cfg, src, progress)
	if err != nil {
		return err
	}

	catalog, err := openCatalog(cmd, cfg)
	if err != nil {
		return err
	}
	defer catalog.Close()
	if err := catalog.SaveResolution(ctx, res.Authors, res.RecordToAuthor, res.ReviewPairs); err != nil {
		return fmt.Errorf("saving resolution: %w", err)
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := pipeline.WriteMergeReport(reportPath, ds.Records, res.ReviewPairs); err != nil {
			return err
		}
		fmt.Fprintf(progress, "Wrote merge report to %s\n", reportPath)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resolveSummary{
			Records:     len(ds.Records),
			Authors:     len(res.Authors),
			MergedPairs: res.MergedPairs,
			ReviewPairs: len(res.ReviewPairs),
			Blocks:      res.Blocks,
			Comparisons: res.Comparisons,
		})
	}

	fmt.Fprintf(os.Stdout, "\n%d records resolved into %d canonical authors (%d merges, %d pairs held for review)\n",
		len(ds.Records), len(res.Authors), res.MergedPairs, len(res.ReviewPairs))
	return nil
}
