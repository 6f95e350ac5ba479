package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/recera/linkgraph/internal/indexer"
	"github.com/recera/linkgraph/pkg/linkindex"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before rebuilding.
const DefaultDebounce = 100 * time.Millisecond

// Watcher rebuilds the link index whenever markdown under the content root
// changes.
type Watcher struct {
	Indexer  *indexer.Indexer
	Output   string           // artifact path written after each rebuild
	Index    *linkindex.Index // invalidated after each rebuild; optional
	Hub      *Hub             // notified after each rebuild; optional
	Debounce time.Duration
	Logger   *slog.Logger

	watcher   *fsnotify.Watcher
	ready     chan struct{}
	readyOnce sync.Once
}

// NewWatcher creates a watcher; Run starts it.
func NewWatcher(ix *indexer.Indexer, output string, index *linkindex.Index, hub *Hub) *Watcher {
	return &Watcher{
		Indexer:  ix,
		Output:   output,
		Index:    index,
		Hub:      hub,
		Debounce: DefaultDebounce,
		ready:    make(chan struct{}),
	}
}

func (w *Watcher) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// Ready is closed once the content tree is being watched.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Rebuild runs the indexer once, writes the artifact, and notifies clients.
func (w *Watcher) Rebuild(ctx context.Context) (*linkindex.Artifact, error) {
	timer := prometheus.NewTimer(rebuildDuration)
	defer timer.ObserveDuration()

	artifact, stats, err := w.Indexer.Run(ctx)
	if err != nil {
		rebuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if err := linkindex.Write(w.Output, artifact); err != nil {
		rebuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	rebuildsTotal.WithLabelValues("ok").Inc()
	pagesParsed.WithLabelValues("parsed").Add(float64(stats.Parsed))
	pagesParsed.WithLabelValues("cached").Add(float64(stats.Cached))
	pagesParsed.WithLabelValues("failed").Add(float64(stats.Failed))
	pagesParsed.WithLabelValues("draft").Add(float64(stats.Drafts))
	indexPages.Set(float64(artifact.Meta.TotalPages))
	indexLinks.Set(float64(artifact.Meta.TotalLinks))
	if w.Index != nil {
		w.Index.Invalidate()
	}
	if w.Hub != nil {
		w.Hub.Broadcast(Message{
			Type:    "RELOAD",
			BuildID: artifact.Meta.BuildID,
			Pages:   artifact.Meta.TotalPages,
			Links:   artifact.Meta.TotalLinks,
		})
	}
	w.logger().Info("link index rebuilt",
		"output", w.Output,
		"pages", artifact.Meta.TotalPages,
		"parsed", stats.Parsed,
		"cached", stats.Cached,
		"duration", stats.Duration)
	return artifact, nil
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()
	w.watcher = fw

	if err := w.addTree(w.Indexer.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Indexer.Root, err)
	}
	w.readyOnce.Do(func() { close(w.ready) })

	debounce := time.NewTimer(0)
	<-debounce.C
	defer debounce.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				// new directories are watched as they appear
				if err := w.addTree(event.Name); err != nil {
					w.logger().Debug("not watching new path", "path", event.Name, "err", err)
				}
			}
			if !isRelevant(event) {
				continue
			}
			pending = true
			debounce.Reset(w.Debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger().Warn("watcher error", "err", err)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			if _, err := w.Rebuild(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger().Error("rebuild failed", "err", err)
			}
		}
	}
}

// addTree watches root and every directory below it. Hidden directories and
// node_modules are skipped. A root that is a regular file is ignored.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// isRelevant reports whether event can change the link index: any markdown
// file event, or a directory appearing or disappearing with pages inside.
func isRelevant(event fsnotify.Event) bool {
	ext := strings.ToLower(filepath.Ext(event.Name))
	if ext == ".md" || ext == ".mdx" {
		return true
	}
	return ext == "" && (event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename))
}
