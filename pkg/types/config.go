package types

// ConcurrencyConfig holds shared settings for stages that fan work out to
// goroutines.
type ConcurrencyConfig struct {
	// Workers is the number of concurrent workers (default runtime.NumCPU()
	// when 0).
	Workers int `json:"workers" yaml:"workers"`
}

// ResolverConfig holds settings for the entity resolution stage.
type ResolverConfig struct {
	ConcurrencyConfig `yaml:",inline"`

	// MergeThreshold is the combined similarity at or above which a record
	// pair is merged (default 0.87).
	MergeThreshold float64 `json:"merge_threshold" yaml:"merge_threshold"`

	// ReviewFloor is the lower bound of the ambiguous band. Pairs scoring in
	// [ReviewFloor, MergeThreshold) are reported for review, not merged
	// (default 0.75).
	ReviewFloor float64 `json:"review_floor" yaml:"review_floor"`

	// NameWeight, AffiliationWeight, and CoauthorWeight blend the three
	// similarity metrics. They are renormalized to sum to 1
	// (defaults 0.6, 0.2, 0.2).
	NameWeight        float64 `json:"name_weight" yaml:"name_weight"`
	AffiliationWeight float64 `json:"affiliation_weight" yaml:"affiliation_weight"`
	CoauthorWeight    float64 `json:"coauthor_weight" yaml:"coauthor_weight"`
}

// RankNormalization selects how influence scores are scaled after the
// iteration loop.
type RankNormalization string

const (
	// NormalizeSum rescales scores to sum to 1.
	NormalizeSum RankNormalization = "sum"

	// NormalizeMax rescales scores so the highest is 1.
	NormalizeMax RankNormalization = "max"
)

// RankConfig holds settings for the influence ranking stage.
type RankConfig struct {
	ConcurrencyConfig `yaml:",inline"`

	// Damping is the probability of following an edge rather than jumping
	// to a random author (default 0.85).
	Damping float64 `json:"damping" yaml:"damping"`

	// Epsilon is the convergence bound on the largest per-author score
	// change between iterations (default 1e-6).
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`

	// MaxIterations bounds the iteration loop (default 100).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// CitationWeight scales citation-derived edges relative to co-authorship
	// edges when the two graphs are blended (default 1.0).
	CitationWeight float64 `json:"citation_weight" yaml:"citation_weight"`

	// Normalization selects the post-loop scaling: sum or max (default sum).
	Normalization RankNormalization `json:"normalization" yaml:"normalization"`
}

// RecommendConfig holds settings for the reviewer recommendation stage.
type RecommendConfig struct {
	// PoolSize is the number of reviewers to return (default 5).
	PoolSize int `json:"pool_size" yaml:"pool_size"`

	// COIHopWindow is the co-authorship distance treated as a conflict:
	// 1 excludes direct co-authors, 2 also excludes co-authors of
	// co-authors (default 1).
	COIHopWindow int `json:"coi_hop_window" yaml:"coi_hop_window"`

	// COIRecencyYears limits co-authorship conflicts to collaborations at
	// most this many years before the submission year. 0 means any
	// co-authorship counts regardless of age (default 0).
	COIRecencyYears int `json:"coi_recency_years" yaml:"coi_recency_years"`

	// ExcludeSharedAffiliation also treats candidates at the same
	// institution as a declared author as conflicted (default true).
	ExcludeSharedAffiliation bool `json:"exclude_shared_affiliation" yaml:"exclude_shared_affiliation"`

	// ParentTopicWeight is the fraction of each topic's weight smoothed up
	// to its parent topic when comparing distributions (default 0.15).
	ParentTopicWeight float64 `json:"parent_topic_weight" yaml:"parent_topic_weight"`
}

// SourceKind identifies the record source backend.
type SourceKind string

const (
	SourceCSV    SourceKind = "csv"
	SourceSQLite SourceKind = "sqlite"
)

// SourceConfig holds settings for the record source stage.
type SourceConfig struct {
	// Kind selects the backend: csv or sqlite.
	Kind SourceKind `json:"kind" yaml:"kind"`

	// DataDir is the directory holding the CSV files (authors.csv,
	// topics.csv, publications.csv, incoming_publications.csv).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// DatabasePath is the SQLite file for the sqlite backend.
	DatabasePath string `json:"database_path" yaml:"database_path"`
}

// GraphStoreConfig holds settings for the external graph database sink.
type GraphStoreConfig struct {
	// URI is the bolt endpoint (e.g. "bolt://localhost:7687").
	URI string `json:"uri" yaml:"uri"`

	// Username and Password authenticate against the database. Password is
	// normally supplied via .secrets/neo4j-password rather than config.
	Username string `json:"username" yaml:"username"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// Database is the target database name, "" for the server default.
	Database string `json:"database,omitempty" yaml:"database,omitempty"`

	// BatchSize is the number of rows per batched upsert (default 500).
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// CatalogConfig holds settings for the local run catalog.
type CatalogConfig struct {
	// DatabasePath is the SQLite file recording resolution runs, review
	// pairs, and influence snapshots (default "citegraph.db").
	DatabasePath string `json:"database_path" yaml:"database_path"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Source    SourceConfig     `json:"source" yaml:"source"`
	Resolver  ResolverConfig   `json:"resolver" yaml:"resolver"`
	Rank      RankConfig       `json:"rank" yaml:"rank"`
	Recommend RecommendConfig  `json:"recommend" yaml:"recommend"`
	Graph     GraphStoreConfig `json:"graph" yaml:"graph"`
	Catalog   CatalogConfig    `json:"catalog" yaml:"catalog"`
}
