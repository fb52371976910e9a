// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve deduplicates raw author records into canonical authors.
// Records are grouped by a cheap blocking key, scored pairwise inside each
// block by a set of similarity metrics, and merged transitively through a
// union-find when the combined score clears the merge threshold.
package resolve

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/citegraph/pkg/types"
)

// Result holds the canonical authors and everything the caller needs to
// rewrite record references.
type Result struct {
	// Authors are the canonical entities, in first-seen record order.
	Authors []types.Author

	// RecordToAuthor maps every input record id to its canonical author id.
	RecordToAuthor map[string]string

	// ReviewPairs are low-confidence candidate pairs left unmerged for
	// external adjudication, ordered by record id.
	ReviewPairs []types.CandidatePair

	// MergedPairs counts pairs at or above the merge threshold.
	MergedPairs int

	// Blocks and Comparisons describe how much work blocking saved.
	Blocks      int
	Comparisons int
}

// Resolve partitions records into canonical authors. metrics may be nil, in
// which case the standard blend from DefaultMetrics is used. Progress and a
// final summary are written to w.
//
// The partition is deterministic for a fixed record order and config.
// Blocks are scored concurrently; merges are applied single threaded in
// block order so the union-find sees a reproducible sequence.
func Resolve(ctx context.Context, records []types.RawAuthorRecord, metrics []WeightedMetric, cfg types.ResolverConfig, w io.Writer) (Result, error) {
	cfg = withDefaults(cfg)
	if cfg.ReviewFloor > cfg.MergeThreshold {
		return Result{}, fmt.Errorf("review floor %.2f exceeds merge threshold %.2f", cfg.ReviewFloor, cfg.MergeThreshold)
	}
	if metrics == nil {
		metrics = DefaultMetrics(cfg)
	}

	candidates, err := buildCandidates(records)
	if err != nil {
		return Result{}, err
	}
	blocks := buildBlocks(candidates)
	fmt.Fprintf(w, "Resolving %d records across %d blocks\n", len(records), len(blocks))

	outcomes, err := scoreBlocks(ctx, blocks, candidates, metrics, cfg)
	if err != nil {
		return Result{}, err
	}

	// Apply merges in block order, pair order. Union keeps the smallest
	// record index as root, so the outcome is the same partition whatever
	// the scoring interleaving was.
	uf := NewUnionFind(len(candidates))
	result := Result{
		RecordToAuthor: make(map[string]string, len(candidates)),
		Blocks:         len(blocks),
	}
	for _, out := range outcomes {
		result.Comparisons += out.comparisons
		for _, pair := range out.merges {
			uf.Union(pair[0], pair[1])
			result.MergedPairs++
		}
	}

	// Review pairs that ended up merged through a third record are no
	// longer actionable; drop them from the report.
	for _, out := range outcomes {
		for _, rp := range out.reviews {
			if uf.Connected(rp.left, rp.right) {
				continue
			}
			result.ReviewPairs = append(result.ReviewPairs, types.CandidatePair{
				LeftRecordID:  candidates[rp.left].RecordID,
				RightRecordID: candidates[rp.right].RecordID,
				Score:         rp.score,
				Decision:      types.DecisionReview,
			})
		}
	}
	sort.Slice(result.ReviewPairs, func(i, j int) bool {
		a, b := result.ReviewPairs[i], result.ReviewPairs[j]
		if a.LeftRecordID != b.LeftRecordID {
			return a.LeftRecordID < b.LeftRecordID
		}
		return a.RightRecordID < b.RightRecordID
	})

	for _, members := range uf.Components() {
		author := synthesizeAuthor(records, members)
		result.Authors = append(result.Authors, author)
		for _, idx := range members {
			result.RecordToAuthor[records[idx].RecordID] = author.ID
		}
	}

	fmt.Fprintf(w, "Resolved %d records into %d canonical authors (%d merged pairs, %d pairs for review, %d comparisons)\n",
		len(records), len(result.Authors), result.MergedPairs, len(result.ReviewPairs), result.Comparisons)
	return result, nil
}

// AuthorsAsRecords converts canonical authors back into singleton records,
// keyed by author id. Resolving the output must reproduce the partition:
// every record maps to the author it came from and nothing new merges.
func AuthorsAsRecords(authors []types.Author) []types.RawAuthorRecord {
	records := make([]types.RawAuthorRecord, 0, len(authors))
	for _, a := range authors {
		records = append(records, types.RawAuthorRecord{
			RecordID:       a.ID,
			Name:           a.Name,
			Affiliation:    a.Affiliation,
			HIndex:         a.HIndex,
			ResearchSector: a.ResearchSector,
			PublicationIDs: append([]string(nil), a.PublicationIDs...),
		})
	}
	return records
}

func withDefaults(cfg types.ResolverConfig) types.ResolverConfig {
	if cfg.MergeThreshold == 0 {
		cfg.MergeThreshold = 0.87
	}
	if cfg.ReviewFloor == 0 {
		cfg.ReviewFloor = 0.75
	}
	if cfg.NameWeight == 0 && cfg.AffiliationWeight == 0 && cfg.CoauthorWeight == 0 {
		cfg.NameWeight, cfg.AffiliationWeight, cfg.CoauthorWeight = 0.6, 0.2, 0.2
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return cfg
}

func buildCandidates(records []types.RawAuthorRecord) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if r.RecordID == "" {
			return nil, fmt.Errorf("record %d has no id", i)
		}
		if seen[r.RecordID] {
			return nil, fmt.Errorf("duplicate record id %q", r.RecordID)
		}
		seen[r.RecordID] = true

		normalized := normalizeName(r.Name)
		pubSet := make(map[string]bool, len(r.PublicationIDs))
		for _, id := range r.PublicationIDs {
			pubSet[id] = true
		}
		candidates = append(candidates, Candidate{
			Index:       i,
			RecordID:    r.RecordID,
			Name:        r.Name,
			Normalized:  normalized,
			Tokens:      strings.Fields(normalized),
			Affiliation: normalizeName(r.Affiliation),
			PubSet:      pubSet,
		})
	}
	return candidates, nil
}

// block is one comparison group: records sharing a blocking key.
type block struct {
	key     string
	members []int
}

// blockKey is the normalized surname plus the first initial. Records whose
// names normalize to nothing share the empty key and are compared against
// each other only.
func blockKey(c Candidate) string {
	if len(c.Tokens) == 0 {
		return ""
	}
	surname := c.Tokens[len(c.Tokens)-1]
	if len(c.Tokens) == 1 {
		return surname
	}
	return surname + "|" + c.Tokens[0][:1]
}

func buildBlocks(candidates []Candidate) []block {
	byKey := make(map[string][]int)
	for _, c := range candidates {
		key := blockKey(c)
		byKey[key] = append(byKey[key], c.Index)
	}
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	blocks := make([]block, 0, len(keys))
	for _, key := range keys {
		blocks = append(blocks, block{key: key, members: byKey[key]})
	}
	return blocks
}

// reviewPair is a block-local candidate pair in the ambiguous band.
type reviewPair struct {
	left, right int
	score       float64
}

type blockOutcome struct {
	merges      [][2]int
	reviews     []reviewPair
	comparisons int
}

// scoreBlocks fans blocks out to a bounded worker pool. Blocks are
// independent, so each outcome slot is written by exactly one goroutine.
func scoreBlocks(ctx context.Context, blocks []block, candidates []Candidate, metrics []WeightedMetric, cfg types.ResolverConfig) ([]blockOutcome, error) {
	outcomes := make([]blockOutcome, len(blocks))
	sem := make(chan struct{}, cfg.Workers)
	var wg sync.WaitGroup

	for i, blk := range blocks {
		if err := ctx.Err(); err != nil {
			break
		}
		if len(blk.members) < 2 {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, blk block) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = scoreBlock(blk, candidates, metrics, cfg)
		}(i, blk)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolution canceled: %w", err)
	}
	return outcomes, nil
}

func scoreBlock(blk block, candidates []Candidate, metrics []WeightedMetric, cfg types.ResolverConfig) blockOutcome {
	var out blockOutcome
	for i := 0; i < len(blk.members); i++ {
		for j := i + 1; j < len(blk.members); j++ {
			a, b := candidates[blk.members[i]], candidates[blk.members[j]]
			out.comparisons++
			score := combinedScore(metrics, a, b)
			switch {
			case score >= cfg.MergeThreshold:
				out.merges = append(out.merges, [2]int{a.Index, b.Index})
			case score >= cfg.ReviewFloor:
				out.reviews = append(out.reviews, reviewPair{left: a.Index, right: b.Index, score: score})
			}
		}
	}
	return out
}

// synthesizeAuthor merges the member records of one union-find component
// into a canonical author. Members arrive in input order, so every
// first-seen tie-break is reproducible.
func synthesizeAuthor(records []types.RawAuthorRecord, members []int) types.Author {
	var (
		variants  []string
		seenName  = make(map[string]bool)
		pubSet    = make(map[string]bool)
		recordIDs []string
		bestName  string
		hIndex    int
	)
	var affiliation, sector mostFrequent
	affilCounts := make(map[string]int)
	sectorCounts := make(map[string]int)

	for _, idx := range members {
		r := records[idx]
		if r.Name != "" && !seenName[r.Name] {
			seenName[r.Name] = true
			variants = append(variants, r.Name)
		}
		// Longest variant becomes the display name; on equal length the
		// earlier record wins.
		if len(r.Name) > len(bestName) {
			bestName = r.Name
		}
		affiliation.observe(r.Affiliation, affilCounts)
		sector.observe(r.ResearchSector, sectorCounts)
		if r.HIndex > hIndex {
			hIndex = r.HIndex
		}
		for _, id := range r.PublicationIDs {
			pubSet[id] = true
		}
		recordIDs = append(recordIDs, r.RecordID)
	}
	sort.Strings(variants)
	sort.Strings(recordIDs)

	pubIDs := make([]string, 0, len(pubSet))
	for id := range pubSet {
		pubIDs = append(pubIDs, id)
	}
	sort.Strings(pubIDs)

	return types.Author{
		ID:              authorID(recordIDs),
		Name:            bestName,
		NameVariants:    variants,
		NormalizedName:  normalizeName(bestName),
		Affiliation:     affiliation.value,
		HIndex:          hIndex,
		ResearchSector:  sector.value,
		PublicationIDs:  pubIDs,
		SourceRecordIDs: recordIDs,
	}
}

// authorID derives a stable uuid from the sorted member record ids, so the
// same merge set gets the same canonical id on every run.
func authorID(recordIDs []string) string {
	payload := "citegraph:author:" + strings.Join(recordIDs, "\x1f")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(payload)).String()
}

type mostFrequent struct {
	value string
	count int
}

func (m *mostFrequent) observe(v string, counts map[string]int) {
	if v == "" {
		return
	}
	counts[v]++
	// Strictly-greater keeps the first-seen value on ties.
	if counts[v] > m.count {
		m.count = counts[v]
		m.value = v
	}
}
