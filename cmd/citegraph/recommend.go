// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citegraph/internal/pipeline"
	"github.com/pdiddy/citegraph/internal/recommend"
	"github.com/pdiddy/citegraph/internal/source"
	"github.com/pdiddy/citegraph/pkg/types"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend conflict-free reviewers for incoming submissions",
	Long: `Recommend ranks reviewer candidates for incoming publications by topical
affinity, excluding conflicted authors: the declared authors themselves,
their co-authors within the configured hop window, and authors sharing an
affiliation with a declared author.

With no arguments every incoming submission in the dataset gets a reviewer
ranking. --id serves a single submission; --publication reads a YAML or
JSON descriptor file carrying author ids, topic ids, and the submission
year. Descriptor author ids may be raw record ids; they are mapped to
canonical entities before conflicts are computed.`,
	RunE: runRecommend,
}

// publicationReviewers pairs a submission with its reviewer ranking.
type publicationReviewers struct {
	PublicationID string           `json:"publication_id" yaml:"publication_id"`
	Title         string           `json:"title,omitempty" yaml:"title,omitempty"`
	Reviewers     recommend.Result `json:"reviewers" yaml:"reviewers"`
}

func init() {
	recommendCmd.Flags().String("publication", "", "publication descriptor file, .yaml or .json")
	recommendCmd.Flags().String("id", "", "id of an incoming publication already in the dataset")
	recommendCmd.Flags().IntP("reviewers", "k", 0, "number of reviewers to return (default 5)")
	recommendCmd.Flags().String("input", "", "record source: CSV directory or SQLite file")
	recommendCmd.Flags().String("format", "", "source format: csv or sqlite (default: by input extension)")
	recommendCmd.Flags().Bool("exclude-affiliation", true, "treat shared affiliation with a declared author as a conflict")
	recommendCmd.Flags().Int("hops", 0, "co-authorship distance treated as a conflict (default 1)")
	recommendCmd.Flags().Int("recency", 0, "only count collaborations at most this many years before the submission (0 = all)")
	recommendCmd.Flags().Bool("json", false, "output candidates as JSON")

	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	pubFile, _ := cmd.Flags().GetString("publication")
	pubID, _ := cmd.Flags().GetString("id")

	cfg := pipelineConfig()
	applySourceFlags(cmd, &cfg)
	if cmd.Flags().Changed("exclude-affiliation") {
		v, _ := cmd.Flags().GetBool("exclude-affiliation")
		cfg.Recommend.ExcludeSharedAffiliation = v
	}
	if hops, _ := cmd.Flags().GetInt("hops"); hops > 0 {
		cfg.Recommend.COIHopWindow = hops
	}
	if recency, _ := cmd.Flags().GetInt("recency"); recency > 0 {
		cfg.Recommend.COIRecencyYears = recency
	}

	// Read the descriptor before the pipeline runs so a bad file fails fast.
	var descriptor types.Publication
	var err error
	if pubFile != "" {
		descriptor, err = loadPublication(pubFile)
		if err != nil {
			return err
		}
	}

	src, err := source.New(cfg.Source)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	progress := io.Writer(os.Stdout)
	if jsonOutput {
		progress = os.Stderr
	}

	ctx := context.Background()
	res, err := pipeline.Run(ctx, cfg, src, nil, progress)
	if err != nil {
		return err
	}

	var pubs []types.Publication
	switch {
	case pubFile != "":
		// Descriptor files usually name authors by their raw record ids.
		for i, id := range descriptor.AuthorIDs {
			if canonical, ok := res.Resolution.RecordToAuthor[id]; ok {
				descriptor.AuthorIDs[i] = canonical
			}
		}
		pubs = []types.Publication{descriptor}
	case pubID != "":
		p, ok := res.Graph.Publication(pubID)
		if !ok {
			return fmt.Errorf("publication %s not found in the dataset", pubID)
		}
		pubs = []types.Publication{p}
	default:
		for _, id := range res.Graph.IncomingPublications() {
			if p, ok := res.Graph.Publication(id); ok {
				pubs = append(pubs, p)
			}
		}
		if len(pubs) == 0 {
			return fmt.Errorf("no incoming submissions in the dataset; provide --publication or --id")
		}
	}

	k, _ := cmd.Flags().GetInt("reviewers")
	recommendations := make([]publicationReviewers, 0, len(pubs))
	for _, p := range pubs {
		ranking := recommend.Recommend(res.Graph, recommend.Request{Publication: p, K: k}, cfg.Recommend)
		recommendations = append(recommendations, publicationReviewers{
			PublicationID: p.ID,
			Title:         p.Title,
			Reviewers:     ranking,
		})
	}
	return formatRecommendOutput(res, recommendations, jsonOutput)
}

// loadPublication parses a publication descriptor file, YAML unless the
// extension says JSON.
func loadPublication(path string) (types.Publication, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Publication{}, fmt.Errorf("reading publication descriptor: %w", err)
	}
	var pub types.Publication
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &pub)
	} else {
		err = yaml.Unmarshal(data, &pub)
	}
	if err != nil {
		return types.Publication{}, fmt.Errorf("parsing publication descriptor %s: %w", path, err)
	}
	return pub, nil
}

func formatRecommendOutput(res *pipeline.Result, recommendations []publicationReviewers, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recommendations)
	}

	for _, rec := range recommendations {
		title := rec.Title
		if title == "" {
			title = "untitled"
		}
		fmt.Fprintf(os.Stdout, "\nReviewers for %s (%s)\n", rec.PublicationID, title)

		if rec.Reviewers.Reason != "" {
			fmt.Fprintf(os.Stdout, "  no candidates (%s)\n", rec.Reviewers.Reason)
			continue
		}

		fmt.Fprintf(os.Stdout, "%-4s  %-36s  %-30s  %-9s  %s\n",
			"Rank", "Author", "Name", "Affinity", "Influence")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 92))
		for i, c := range rec.Reviewers.Candidates {
			name := ""
			if a, ok := res.Graph.Author(c.AuthorID); ok {
				name = a.Name
			}
			if len(name) > 30 {
				name = name[:27] + "..."
			}
			fmt.Fprintf(os.Stdout, "%-4d  %-36s  %-30s  %-9.4f  %.6f\n",
				i+1, c.AuthorID, name, c.Affinity, c.Influence)
		}
		if rec.Reviewers.PoolExhausted {
			fmt.Fprintln(os.Stdout, "  pool exhausted: fewer eligible candidates than requested")
		}
	}
	return nil
}
