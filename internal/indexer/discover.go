package indexer

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Source is a content file found on disk.
type Source struct {
	Path       string // absolute or root-joined path
	Rel        string // path relative to the content root, slash separated
	Collection string
}

// Discover lists the content files of each collection under root. A file is
// any *.md or *.mdx directly inside the collection directory, or the
// index.md of an immediate sub-directory. Collections without a directory are
// skipped; other read errors are logged and the collection is skipped.
func Discover(root string, collections []string, logger *slog.Logger) []Source {
	if logger == nil {
		logger = slog.Default()
	}
	var out []Source
	for _, collection := range collections {
		dir := filepath.Join(root, collection)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("failed to read collection", "collection", collection, "err", err)
			}
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			var file string
			switch {
			case entry.IsDir():
				candidate := filepath.Join(dir, name, "index.md")
				if info, err := os.Stat(candidate); err != nil || info.IsDir() {
					continue
				}
				file = filepath.Join(name, "index.md")
			case strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".mdx"):
				file = name
			default:
				continue
			}
			out = append(out, Source{
				Path:       filepath.Join(dir, file),
				Rel:        filepath.ToSlash(filepath.Join(collection, file)),
				Collection: collection,
			})
		}
	}
	return out
}
