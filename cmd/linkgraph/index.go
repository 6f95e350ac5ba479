package main

import (
	"fmt"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/linkgraph/cmd/linkgraph/internal/config"
	"github.com/recera/linkgraph/internal/cache"
	"github.com/recera/linkgraph/internal/indexer"
	"github.com/recera/linkgraph/pkg/linkindex"
)

func newIndexCommand(g *globalFlags) *cobra.Command {
	var content, output string
	var workers int
	var noCache bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the link index",
		Long:  `Scans every collection under the content directory and writes the link index.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(g)
			if content != "" {
				cfg.ContentDir = content
			}
			if output != "" {
				cfg.Output = output
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if noCache {
				cfg.CacheDir = "off"
			}
			return runIndex(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "Content directory (overrides contentDir)")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output path (overrides output)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel page parsers (0 = one per CPU)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Parse every page even if it is unchanged")

	return cmd
}

func runIndex(cmd *cobra.Command, cfg *config.Config) error {
	log.Printf("🔍 Indexing %s...", cfg.ContentDir)

	ix := newIndexer(cfg)
	artifact, stats, err := ix.Run(cmd.Context())
	if err != nil {
		return err
	}
	if err := linkindex.Write(cfg.Output, artifact); err != nil {
		return err
	}

	log.Printf("✅ %d pages, %d links → %s", artifact.Meta.TotalPages, artifact.Meta.TotalLinks, cfg.Output)
	log.Printf("  %d files, %d parsed, %d cached, %d skipped, %d drafts in %s",
		stats.Files, stats.Parsed, stats.Cached, stats.Failed, stats.Drafts, stats.Duration.Round(time.Millisecond))
	fmt.Fprintln(cmd.OutOrStdout(), cfg.Output)
	return nil
}

// newIndexer wires an indexer for cfg. The page cache is optional: a cache
// that cannot be opened only costs speed.
func newIndexer(cfg *config.Config) *indexer.Indexer {
	ix := &indexer.Indexer{
		Root:       cfg.ContentDir,
		Normalizer: cfg.Normalizer(),
		Workers:    cfg.Workers,
		Logger:     slog.Default(),
	}
	if cfg.CacheDisabled() {
		return ix
	}
	c, err := cache.New(cache.Config{Dir: cfg.CacheDir})
	if err != nil {
		log.Printf("⚠️  Failed to open page cache: %v (continuing without it)", err)
		return ix
	}
	ix.Cache = c
	return ix
}

// loadConfig reads linkgraph.yaml from the config directory. Relative paths
// in the file are relative to that directory.
func loadConfig(g *globalFlags) *config.Config {
	cfg, err := config.Load(g.configDir)
	if err != nil {
		log.Printf("⚠️  Failed to load %s: %v (using defaults)", config.FileName, err)
		cfg = config.DefaultConfig()
	}
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(g.configDir, *p)
		}
	}
	resolve(&cfg.ContentDir)
	resolve(&cfg.Output)
	if !cfg.CacheDisabled() {
		resolve(&cfg.CacheDir)
	}
	return cfg
}
