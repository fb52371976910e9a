// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"regexp"
	"strings"

	"github.com/pdiddy/citegraph/pkg/types"
)

// Candidate is the precomputed view of a raw record that metrics score.
// Building it once per record keeps the pairwise loop cheap.
type Candidate struct {
	Index       int
	RecordID    string
	Name        string
	Normalized  string
	Tokens      []string
	Affiliation string
	PubSet      map[string]bool
}

// Metric scores one aspect of similarity between two candidates in [0, 1].
// Implementations must be pure: the resolver calls them from multiple
// goroutines.
type Metric interface {
	Name() string
	Score(a, b Candidate) float64
}

// WeightedMetric pairs a Metric with its blend weight.
type WeightedMetric struct {
	Metric Metric
	Weight float64
}

// NameSimilarity compares normalized author names. The score is the better
// of an initial-aware token match (so "j smith" and "john smith" align) and
// a Levenshtein similarity (so "jon smith" and "john smith" stay close).
type NameSimilarity struct{}

func (NameSimilarity) Name() string { return "name" }

func (NameSimilarity) Score(a, b Candidate) float64 {
	if a.Normalized == "" || b.Normalized == "" {
		return 0
	}
	if a.Normalized == b.Normalized {
		return 1
	}
	token := tokenMatchScore(a.Tokens, b.Tokens)
	edit := editSimilarity(a.Normalized, b.Normalized)
	if token > edit {
		return token
	}
	return edit
}

// AffiliationMatch compares affiliation strings. Missing affiliations are
// uninformative and score the neutral 0.5 rather than penalizing the pair.
type AffiliationMatch struct{}

func (AffiliationMatch) Name() string { return "affiliation" }

func (AffiliationMatch) Score(a, b Candidate) float64 {
	if a.Affiliation == "" || b.Affiliation == "" {
		return 0.5
	}
	if a.Affiliation == b.Affiliation {
		return 1
	}
	return jaccard(strings.Fields(a.Affiliation), strings.Fields(b.Affiliation))
}

// CoauthorshipOverlap compares the publication id sets of two records.
// Records attached to the same publication are very likely the same person
// written two ways, since a paper rarely lists one author twice.
type CoauthorshipOverlap struct{}

func (CoauthorshipOverlap) Name() string { return "coauthorship" }

func (CoauthorshipOverlap) Score(a, b Candidate) float64 {
	if len(a.PubSet) == 0 || len(b.PubSet) == 0 {
		return 0
	}
	intersection := 0
	for id := range a.PubSet {
		if b.PubSet[id] {
			intersection++
		}
	}
	union := len(a.PubSet) + len(b.PubSet) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// DefaultMetrics returns the standard metric blend with weights from cfg.
func DefaultMetrics(cfg types.ResolverConfig) []WeightedMetric {
	return []WeightedMetric{
		{Metric: NameSimilarity{}, Weight: cfg.NameWeight},
		{Metric: AffiliationMatch{}, Weight: cfg.AffiliationWeight},
		{Metric: CoauthorshipOverlap{}, Weight: cfg.CoauthorWeight},
	}
}

// combinedScore blends the weighted metrics, renormalizing weights so they
// sum to 1. Metrics with non-positive weight are skipped.
func combinedScore(metrics []WeightedMetric, a, b Candidate) float64 {
	var total, sum float64
	for _, m := range metrics {
		if m.Weight <= 0 {
			continue
		}
		total += m.Weight
		sum += m.Weight * m.Metric.Score(a, b)
	}
	if total == 0 {
		return 0
	}
	return clamp01(sum / total)
}

var (
	honorificRE  = regexp.MustCompile(`(?i)^(mr|ms|mrs|dr|prof)\.?\s+`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// normalizeName lowercases a name, folds common Latin diacritics, strips
// honorific prefixes and punctuation, and collapses whitespace. The result
// is the matching and blocking key form of the name.
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = honorificRE.ReplaceAllString(name, "")
	name = foldDiacritics(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == ',', r == '-', r == '\'', r == ' ':
			b.WriteByte(' ')
		}
	}
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(b.String()), " ")
}

// diacriticFold maps accented Latin letters to their base letter. Wide
// enough for bibliographic names; anything outside the table passes
// through and is dropped by normalizeName's filter.
var diacriticFold = func() map[rune]rune {
	groups := map[rune]string{
		'a': "àáâãäåā",
		'c': "çćč",
		'e': "èéêëē",
		'i': "ìíîïī",
		'l': "ł",
		'n': "ñńň",
		'o': "òóôõöøō",
		's': "śš",
		'u': "ùúûüū",
		'y': "ýÿ",
		'z': "źżž",
	}
	fold := make(map[rune]rune)
	for base, accented := range groups {
		for _, r := range accented {
			fold[r] = base
		}
	}
	return fold
}()

func foldDiacritics(s string) string {
	return strings.Map(func(r rune) rune {
		if base, ok := diacriticFold[r]; ok {
			return base
		}
		return r
	}, s)
}

// tokenMatchScore aligns two normalized token lists. Tokens match when
// equal or when one is a single-letter initial of the other, so "j" pairs
// with "john". The score is the Dice coefficient of the best greedy
// alignment.
func tokenMatchScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	used := make([]bool, len(b))
	matches := 0
	for _, ta := range a {
		for j, tb := range b {
			if used[j] {
				continue
			}
			if tokensCompatible(ta, tb) {
				used[j] = true
				matches++
				break
			}
		}
	}
	return 2 * float64(matches) / float64(len(a)+len(b))
}

func tokensCompatible(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) == 1 && strings.HasPrefix(b, a) {
		return true
	}
	if len(b) == 1 && strings.HasPrefix(a, b) {
		return true
	}
	return false
}

// editSimilarity is 1 - normalized Levenshtein distance.
func editSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if lb := len([]rune(b)); lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes edit distance with the two-row dynamic program.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// jaccard computes set overlap between two token slices.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	intersection := 0
	seen := make(map[string]bool, len(b))
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if setA[t] {
			intersection++
		}
	}
	union := len(setA) + len(seen) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
