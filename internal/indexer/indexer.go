// Package indexer scans a content tree and produces the link artifact.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/recera/linkgraph/internal/cache"
	"github.com/recera/linkgraph/pkg/linkindex"
	"github.com/recera/linkgraph/pkg/pageid"
)

// Indexer turns a content directory into a link artifact.
type Indexer struct {
	Root       string
	Normalizer *pageid.Normalizer
	Workers    int          // parallel page parsers; <= 0 means GOMAXPROCS
	Cache      *cache.Cache // optional
	Logger     *slog.Logger
}

// Stats summarizes one run.
type Stats struct {
	Files    int
	Parsed   int
	Cached   int
	Failed   int
	Drafts   int
	Duration time.Duration
}

func (ix *Indexer) logger() *slog.Logger {
	if ix.Logger != nil {
		return ix.Logger
	}
	return slog.Default()
}

func (ix *Indexer) normalizer() *pageid.Normalizer {
	if ix.Normalizer != nil {
		return ix.Normalizer
	}
	return pageid.Default()
}

// Run discovers and parses every page, then builds the artifact. Pages that
// cannot be read or parsed are logged and skipped; only cancellation fails
// the run.
func (ix *Indexer) Run(ctx context.Context) (*linkindex.Artifact, Stats, error) {
	start := time.Now()
	n := ix.normalizer()
	log := ix.logger()

	if info, err := os.Stat(ix.Root); err != nil || !info.IsDir() {
		log.Warn("content root not found", "root", ix.Root)
	}

	sources := Discover(ix.Root, n.Collections(), log)
	pages, stats, err := ix.parseAll(ctx, n, sources)
	if err != nil {
		return nil, stats, err
	}

	for _, p := range pages {
		if p.Draft {
			stats.Drafts++
		}
	}

	if ix.Cache != nil {
		if err := ix.Cache.Flush(); err != nil {
			log.Warn("failed to persist page cache", "err", err)
		}
	}

	artifact := BuildGraph(pages)
	stats.Duration = time.Since(start)
	log.Info("link index built",
		"pages", artifact.Meta.TotalPages,
		"links", artifact.Meta.TotalLinks,
		"backlinkTargets", len(artifact.Backlinks),
		"cached", stats.Cached,
		"failed", stats.Failed,
		"duration", stats.Duration)
	return artifact, stats, nil
}

type result struct {
	page   Page
	ok     bool
	cached bool
}

func (ix *Indexer) parseAll(ctx context.Context, n *pageid.Normalizer, sources []Source) ([]Page, Stats, error) {
	workers := ix.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := ix.logger()
	results := make([]result, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, cached, err := ix.parseOne(n, src)
			if err != nil {
				log.Warn("skipping page", "path", src.Rel, "err", err)
				return nil
			}
			results[i] = result{page: page, ok: true, cached: cached}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{Files: len(sources)}, fmt.Errorf("indexing cancelled: %w", err)
	}

	stats := Stats{Files: len(sources)}
	pages := make([]Page, 0, len(sources))
	for _, r := range results {
		if !r.ok {
			stats.Failed++
			continue
		}
		if r.cached {
			stats.Cached++
		} else {
			stats.Parsed++
		}
		pages = append(pages, r.page)
	}
	return pages, stats, nil
}

// layoutKey folds the collection layout into cache keys, since it changes
// how links resolve.
func layoutKey(n *pageid.Normalizer) string {
	var b strings.Builder
	for _, c := range n.Collections() {
		base, _ := n.Base(c)
		b.WriteString(c + "=" + base + ";")
	}
	return b.String()
}

func (ix *Indexer) parseOne(n *pageid.Normalizer, src Source) (Page, bool, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return Page{}, false, fmt.Errorf("failed to read page: %w", err)
	}

	var key string
	if ix.Cache != nil {
		key = cache.Key(layoutKey(n)+src.Rel, data)
		var page Page
		if ix.Cache.GetJSON(key, &page) {
			return page, true, nil
		}
	}

	page, err := ParsePage(n, src, data)
	if err != nil {
		return Page{}, false, err
	}
	if ix.Cache != nil {
		if err := ix.Cache.PutJSON(key, src.Rel, page); err != nil {
			ix.logger().Debug("failed to cache page", "path", src.Rel, "err", err)
		}
	}
	return page, false, nil
}
