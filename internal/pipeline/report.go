// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citegraph/internal/rank"
	"github.com/pdiddy/citegraph/pkg/types"
)

// MergeReportEntry is one low-confidence pair in the review report, with
// both names spelled out so a human can adjudicate without the source
// files at hand.
type MergeReportEntry struct {
	LeftRecordID  string  `json:"left_record_id" yaml:"left_record_id"`
	LeftName      string  `json:"left_name" yaml:"left_name"`
	RightRecordID string  `json:"right_record_id" yaml:"right_record_id"`
	RightName     string  `json:"right_name" yaml:"right_name"`
	Score         float64 `json:"score" yaml:"score"`
	Decision      string  `json:"decision" yaml:"decision"`
}

// MergeReport builds review entries for a resolution, resolving record ids
// back to the names the source spelled.
func MergeReport(records []types.RawAuthorRecord, pairs []types.CandidatePair) []MergeReportEntry {
	names := make(map[string]string, len(records))
	for _, r := range records {
		names[r.RecordID] = r.Name
	}

	entries := make([]MergeReportEntry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, MergeReportEntry{
			LeftRecordID:  p.LeftRecordID,
			LeftName:      names[p.LeftRecordID],
			RightRecordID: p.RightRecordID,
			RightName:     names[p.RightRecordID],
			Score:         p.Score,
			Decision:      string(p.Decision),
		})
	}
	return entries
}

// WriteMergeReport writes the review entries to path.
func WriteMergeReport(path string, records []types.RawAuthorRecord, pairs []types.CandidatePair) error {
	return writeReport(path, MergeReport(records, pairs))
}

// ScoreExport is the on-disk shape of an influence ranking.
type ScoreExport struct {
	Converged  bool         `json:"converged" yaml:"converged"`
	Iterations int          `json:"iterations" yaml:"iterations"`
	Scores     []rank.Entry `json:"scores" yaml:"scores"`
}

// WriteScores writes ranked influence scores to path, highest first.
func WriteScores(path string, result rank.Result) error {
	return writeReport(path, ScoreExport{
		Converged:  result.Converged,
		Iterations: result.Iterations,
		Scores:     result.Sorted(),
	})
}

// writeReport marshals v as YAML, or as indented JSON when the filename
// ends in .json.
func writeReport(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
