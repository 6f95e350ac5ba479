package linkindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotLoaded is returned by Current when no artifact has been loaded yet.
var ErrNotLoaded = errors.New("link index not loaded")

// Loader produces an artifact.
type Loader interface {
	Load(ctx context.Context) (*Artifact, error)
}

// FileLoader reads an artifact from a JSON file.
type FileLoader struct {
	Path string
}

// Load implements Loader.
func (f FileLoader) Load(ctx context.Context) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read link index %s: %w", f.Path, err)
	}
	return Decode(data)
}

// StaticLoader hands out a fixed artifact.
type StaticLoader struct {
	Artifact *Artifact
}

// Load implements Loader.
func (s StaticLoader) Load(context.Context) (*Artifact, error) {
	if s.Artifact == nil {
		return Empty(), nil
	}
	return s.Artifact, nil
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*Artifact, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) (*Artifact, error) { return f(ctx) }

// Decode parses artifact JSON, filling in empty collections.
func Decode(data []byte) (*Artifact, error) {
	a := Empty()
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("failed to parse link index: %w", err)
	}
	if a.Backlinks == nil {
		a.Backlinks = map[string][]Backlink{}
	}
	if a.Graph.Nodes == nil {
		a.Graph.Nodes = []Node{}
	}
	if a.Graph.Links == nil {
		a.Graph.Links = []Link{}
	}
	return a, nil
}

// Write stores an artifact as indented JSON. The file is replaced atomically.
func Write(path string, a *Artifact) error {
	if a == nil {
		a = Empty()
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode link index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".link-index-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write link index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write link index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move link index into place: %w", err)
	}
	return nil
}

// Index serves queries from a lazily loaded artifact. The artifact is
// loaded on first use and kept until Invalidate is called.
type Index struct {
	mu       sync.RWMutex
	loadMu   sync.Mutex
	loader   Loader
	artifact *Artifact
	logger   *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used to report load failures.
func WithLogger(l *slog.Logger) Option {
	return func(i *Index) { i.logger = l }
}

// New creates an index backed by loader.
func New(loader Loader, opts ...Option) *Index {
	i := &Index{loader: loader, logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Load (re)reads the artifact from the loader and replaces the current one.
func (i *Index) Load(ctx context.Context) error {
	i.loadMu.Lock()
	defer i.loadMu.Unlock()

	a, err := i.loader.Load(ctx)
	if err != nil {
		return err
	}
	if a == nil {
		a = Empty()
	}
	i.mu.Lock()
	i.artifact = a
	i.mu.Unlock()
	return nil
}

// Invalidate drops the loaded artifact; the next query reloads it.
func (i *Index) Invalidate() {
	i.mu.Lock()
	i.artifact = nil
	i.mu.Unlock()
}

// Current returns the loaded artifact without triggering a load.
func (i *Index) Current() (*Artifact, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.artifact == nil {
		return nil, ErrNotLoaded
	}
	return i.artifact, nil
}

// Artifact returns the loaded artifact, loading it if needed. A failed load
// is logged and yields an empty artifact.
func (i *Index) Artifact(ctx context.Context) *Artifact {
	if a, err := i.Current(); err == nil {
		return a
	}
	if err := i.Load(ctx); err != nil {
		i.logger.Warn("link index unavailable", "err", err)
		return Empty()
	}
	if a, err := i.Current(); err == nil {
		return a
	}
	return Empty()
}

// Backlinks returns the pages linking to id.
func (i *Index) Backlinks(ctx context.Context, id string) []Backlink {
	return i.Artifact(ctx).BacklinksFor(id)
}

// Neighborhood returns the local graph around id.
func (i *Index) Neighborhood(ctx context.Context, id string, depth int) Graph {
	return i.Artifact(ctx).Neighborhood(id, depth)
}
