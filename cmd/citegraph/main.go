// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the citegraph CLI.
// Each pipeline stage is a subcommand: resolve, rank, recommend, and
// load. The run command executes the whole pipeline in one pass.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citegraph/internal/secrets"
	"github.com/pdiddy/citegraph/internal/store"
	"github.com/pdiddy/citegraph/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the citegraph CLI.
var rootCmd = &cobra.Command{
	Use:   "citegraph",
	Short: "Resolve authors, rank influence, and recommend reviewers over a citation graph",
	Long: `citegraph builds a canonical bibliographic graph from raw records. It
resolves author mentions into canonical entities, ranks author influence
over the blended co-authorship and citation graph, recommends conflict-free
reviewers for incoming submissions, and loads the result into Neo4j.

Each stage is a subcommand: resolve, rank, recommend, and load. The run
command executes the whole pipeline in one pass.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./citegraph.yaml or ~/.config/citegraph/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("citegraph")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "citegraph"))
		}
	}

	viper.SetEnvPrefix("CITEGRAPH")
	viper.AutomaticEnv()

	// Numeric stage settings default downstream on zero; a true boolean
	// default has to be declared here.
	viper.SetDefault("recommend.exclude_shared_affiliation", true)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the stage configuration tree from the config
// file. Unset fields stay zero and each stage substitutes its documented
// default; command flags override individual fields afterwards.
func pipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Source: types.SourceConfig{
			Kind:         types.SourceKind(viper.GetString("source.kind")),
			DataDir:      viper.GetString("source.data_dir"),
			DatabasePath: viper.GetString("source.database_path"),
		},
		Resolver: types.ResolverConfig{
			ConcurrencyConfig: types.ConcurrencyConfig{Workers: viper.GetInt("resolver.workers")},
			MergeThreshold:    viper.GetFloat64("resolver.merge_threshold"),
			ReviewFloor:       viper.GetFloat64("resolver.review_floor"),
			NameWeight:        viper.GetFloat64("resolver.name_weight"),
			AffiliationWeight: viper.GetFloat64("resolver.affiliation_weight"),
			CoauthorWeight:    viper.GetFloat64("resolver.coauthor_weight"),
		},
		Rank: types.RankConfig{
			ConcurrencyConfig: types.ConcurrencyConfig{Workers: viper.GetInt("rank.workers")},
			Damping:           viper.GetFloat64("rank.damping"),
			Epsilon:           viper.GetFloat64("rank.epsilon"),
			MaxIterations:     viper.GetInt("rank.max_iterations"),
			CitationWeight:    viper.GetFloat64("rank.citation_weight"),
			Normalization:     types.RankNormalization(viper.GetString("rank.normalization")),
		},
		Recommend: types.RecommendConfig{
			PoolSize:                 viper.GetInt("recommend.pool_size"),
			COIHopWindow:             viper.GetInt("recommend.coi_hop_window"),
			COIRecencyYears:          viper.GetInt("recommend.coi_recency_years"),
			ExcludeSharedAffiliation: viper.GetBool("recommend.exclude_shared_affiliation"),
			ParentTopicWeight:        viper.GetFloat64("recommend.parent_topic_weight"),
		},
		Graph: types.GraphStoreConfig{
			URI:       viper.GetString("graph.uri"),
			Username:  viper.GetString("graph.username"),
			Password:  viper.GetString("graph.password"),
			Database:  viper.GetString("graph.database"),
			BatchSize: viper.GetInt("graph.batch_size"),
		},
		Catalog: types.CatalogConfig{
			DatabasePath: viper.GetString("catalog.database_path"),
		},
	}
}

// applySourceFlags folds the shared --input and --format flags into cfg.
// Without an explicit --format the backend is picked by input extension.
func applySourceFlags(cmd *cobra.Command, cfg *types.PipelineConfig) {
	input, _ := cmd.Flags().GetString("input")
	format, _ := cmd.Flags().GetString("format")

	if format != "" {
		cfg.Source.Kind = types.SourceKind(format)
	}
	if input == "" {
		return
	}
	kind := cfg.Source.Kind
	if format == "" {
		switch filepath.Ext(input) {
		case ".db", ".sqlite", ".sqlite3":
			kind = types.SourceSQLite
		default:
			kind = types.SourceCSV
		}
	}
	if kind == types.SourceSQLite {
		cfg.Source.Kind = types.SourceSQLite
		cfg.Source.DatabasePath = input
	} else {
		cfg.Source.Kind = types.SourceCSV
		cfg.Source.DataDir = input
	}
}

// openCatalog opens the run catalog, honoring a --catalog flag override.
func openCatalog(cmd *cobra.Command, cfg types.PipelineConfig) (*store.Catalog, error) {
	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		cfg.Catalog.DatabasePath = path
	}
	return store.OpenCatalog(cfg.Catalog)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
