// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the citegraph pipeline.
package types

// PublicationStatus distinguishes catalogued publications from submissions
// that are still looking for reviewers.
type PublicationStatus string

const (
	StatusPublished PublicationStatus = "published"
	StatusIncoming  PublicationStatus = "incoming"
)

// RawAuthorRecord is a single author mention as it arrives from a record
// source, before entity resolution. Several records may describe the same
// person under different spellings.
type RawAuthorRecord struct {
	// RecordID is the source-assigned identifier for this mention. It is
	// unique within a dataset but carries no cross-source meaning.
	RecordID string `json:"record_id" yaml:"record_id"`

	// Name is the author name exactly as the source spelled it.
	Name string `json:"name" yaml:"name"`

	// Affiliation is the institution string attached to the mention, or ""
	// when the source omitted it.
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`

	// HIndex is the h-index the source reported for the mention, 0 if absent.
	HIndex int `json:"h_index,omitempty" yaml:"h_index,omitempty"`

	// ResearchSector is the coarse field label from the source (e.g.
	// "computer science"), or "" when absent.
	ResearchSector string `json:"research_sector,omitempty" yaml:"research_sector,omitempty"`

	// PublicationIDs lists the publications this mention is attached to.
	PublicationIDs []string `json:"publication_ids" yaml:"publication_ids"`
}

// Author is a resolved author entity. Resolution assigns the ID and merges
// the fields of every raw record that mapped to the entity; after that the
// entity is immutable except for InfluenceScore, which ranking fills in.
type Author struct {
	// ID is the canonical entity identifier, assigned at resolution time.
	ID string `json:"id" yaml:"id"`

	// Name is the display name, the longest variant seen across merged records.
	Name string `json:"name" yaml:"name"`

	// NameVariants lists every distinct source spelling, sorted.
	NameVariants []string `json:"name_variants,omitempty" yaml:"name_variants,omitempty"`

	// NormalizedName is the lowercased, diacritic-folded form used for
	// blocking and matching.
	NormalizedName string `json:"normalized_name" yaml:"normalized_name"`

	// Affiliation is the most frequent non-empty affiliation across merged
	// records.
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`

	// HIndex is the maximum h-index across merged records.
	HIndex int `json:"h_index,omitempty" yaml:"h_index,omitempty"`

	// ResearchSector is the most frequent non-empty sector across merged
	// records.
	ResearchSector string `json:"research_sector,omitempty" yaml:"research_sector,omitempty"`

	// PublicationIDs is the sorted union of publication ids across merged
	// records.
	PublicationIDs []string `json:"publication_ids" yaml:"publication_ids"`

	// SourceRecordIDs lists the raw record ids that were merged into this
	// entity, sorted.
	SourceRecordIDs []string `json:"source_record_ids" yaml:"source_record_ids"`

	// InfluenceScore is the ranking score annotated after influence
	// computation, 0 until then.
	InfluenceScore float64 `json:"influence_score,omitempty" yaml:"influence_score,omitempty"`
}

// Publication is a paper in the catalogue. AuthorIDs reference raw record
// ids on ingest and canonical Author ids once the graph is built.
type Publication struct {
	// ID is the source identifier for the publication.
	ID string `json:"id" yaml:"id"`

	// Title is the publication title.
	Title string `json:"title" yaml:"title"`

	// DOI is the registered document identifier, "" when unregistered.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// AuthorIDs lists the authors in source order.
	AuthorIDs []string `json:"author_ids" yaml:"author_ids"`

	// TopicIDs lists the topics the publication is about.
	TopicIDs []string `json:"topic_ids" yaml:"topic_ids"`

	// CitedPublicationIDs lists publications this one cites.
	CitedPublicationIDs []string `json:"cited_publication_ids,omitempty" yaml:"cited_publication_ids,omitempty"`

	// Status marks the publication as catalogued or as an incoming
	// submission awaiting review.
	Status PublicationStatus `json:"status" yaml:"status"`
}

// Topic is a subject label. Topics form a forest via ParentID.
type Topic struct {
	// ID is the source identifier for the topic.
	ID string `json:"id" yaml:"id"`

	// Name is the topic label. Sources that omit the label get "Not Available".
	Name string `json:"name" yaml:"name"`

	// ParentID is the broader topic, "" for roots.
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
}

// TopicNameUnavailable fills Topic.Name when the source has no label for it.
const TopicNameUnavailable = "Not Available"

// Dataset bundles everything a record source hands to the pipeline.
// Incoming submissions arrive as Publications with StatusIncoming.
type Dataset struct {
	Records      []RawAuthorRecord `json:"records" yaml:"records"`
	Publications []Publication     `json:"publications" yaml:"publications"`
	Topics       []Topic           `json:"topics" yaml:"topics"`
}

// MergeDecision classifies a scored record pair during entity resolution.
type MergeDecision string

const (
	DecisionMerge    MergeDecision = "merge"
	DecisionReview   MergeDecision = "review"
	DecisionDistinct MergeDecision = "distinct"
)

// CandidatePair is a scored pair of raw records from the same blocking
// group, reported for merge decisions and review queues.
type CandidatePair struct {
	// LeftRecordID and RightRecordID identify the pair; LeftRecordID sorts
	// before RightRecordID.
	LeftRecordID  string `json:"left_record_id" yaml:"left_record_id"`
	RightRecordID string `json:"right_record_id" yaml:"right_record_id"`

	// Score is the combined similarity in [0,1].
	Score float64 `json:"score" yaml:"score"`

	// Decision records which side of the thresholds the score fell on.
	Decision MergeDecision `json:"decision" yaml:"decision"`
}
