// Package pageid derives canonical page identifiers.
//
// Every component that turns a file name or a link href into a page id goes
// through this package, so ids computed at index time and ids computed at
// view time always agree.
package pageid

import (
	"path"
	"regexp"
	"strings"
)

// Collection maps a content collection to its URL base.
type Collection struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// DefaultCollections are the collections of the site layout linkgraph was
// built for.
var DefaultCollections = []Collection{
	{Name: "blog", URL: "/blog"},
	{Name: "notes", URL: "/notes"},
	{Name: "talks", URL: "/talks"},
	{Name: "uses", URL: "/uses"},
	{Name: "now", URL: "/now"},
	{Name: "changelog", URL: "/changelog"},
	{Name: "about", URL: "/about"},
	{Name: "homelab", URL: "/homelab"},
}

var datePrefix = regexp.MustCompile(`^\d{8}-(.+)$`)

// Normalizer resolves hrefs against a fixed set of collections. It is
// immutable after construction and safe for concurrent use.
type Normalizer struct {
	bases map[string]string
	names []string
}

// New creates a normalizer for the given collections. A collection with an
// empty URL is served under "/<name>".
func New(collections []Collection) *Normalizer {
	n := &Normalizer{bases: make(map[string]string, len(collections))}
	for _, c := range collections {
		if c.Name == "" {
			continue
		}
		base := c.URL
		if base == "" {
			base = "/" + c.Name
		}
		if !strings.HasPrefix(base, "/") {
			base = "/" + base
		}
		if len(base) > 1 {
			base = strings.TrimSuffix(base, "/")
		}
		if _, dup := n.bases[c.Name]; !dup {
			n.names = append(n.names, c.Name)
		}
		n.bases[c.Name] = base
	}
	return n
}

// Default returns a normalizer over DefaultCollections.
func Default() *Normalizer {
	return New(DefaultCollections)
}

// Collections returns the known collection names in configuration order.
func (n *Normalizer) Collections() []string {
	out := make([]string, len(n.names))
	copy(out, n.names)
	return out
}

// Base returns the URL base of a collection.
func (n *Normalizer) Base(collection string) (string, bool) {
	b, ok := n.bases[collection]
	return b, ok
}

// Slug applies the canonical segment transform: a trailing markdown
// extension and a leading YYYYMMDD- date prefix are removed.
func Slug(segment string) string {
	s := segment
	for {
		next := strings.TrimSuffix(strings.TrimSuffix(s, ".mdx"), ".md")
		if m := datePrefix.FindStringSubmatch(next); m != nil {
			next = m[1]
		}
		if next == s {
			return s
		}
		s = next
	}
}

// slugLast applies Slug to the final segment of a slash separated path.
func slugLast(p string) string {
	i := strings.LastIndex(p, "/")
	return p[:i+1] + Slug(p[i+1:])
}

// Normalize resolves href, found in a page of sourceCollection, to a
// canonical page id. It reports false when the target cannot be determined.
// Normalize is idempotent: normalizing a returned id yields the same id.
func (n *Normalizer) Normalize(href, sourceCollection string) (string, bool) {
	p := href
	if i := strings.IndexAny(p, "#?"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if p == "" {
		return "", false
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	p = slugLast(p)

	switch {
	case strings.HasPrefix(p, "../"):
		for strings.HasPrefix(p, "../") {
			p = p[3:]
		}
		coll, rest, found := strings.Cut(p, "/")
		base, ok := n.bases[coll]
		if !ok || !found || rest == "" {
			return "", false
		}
		return clean(join(base, rest)), true

	case strings.HasPrefix(p, "./"):
		base, ok := n.bases[sourceCollection]
		if !ok {
			return "", false
		}
		rest := strings.TrimLeft(p[2:], "/")
		if rest == "" {
			return "", false
		}
		return clean(join(base, rest)), true

	case strings.HasPrefix(p, "/"):
		return clean(p), true

	case !strings.Contains(p, "/"):
		base, ok := n.bases[sourceCollection]
		if !ok {
			return "", false
		}
		return clean(join(base, p)), true
	}
	return "", false
}

// clean collapses dot segments and repeated slashes, then reapplies Slug in
// case a parent reference exposed a new final segment.
func clean(p string) string {
	return slugLast(path.Clean(p))
}

// FromFilename returns the id of the page stored in filename within
// collection. An index file stands for the collection root.
func (n *Normalizer) FromFilename(filename, collection string) string {
	base, ok := n.bases[collection]
	if !ok {
		base = "/" + collection
	}
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if stem := strings.TrimSuffix(strings.TrimSuffix(name, ".mdx"), ".md"); stem == "index" {
		return base
	}
	return join(base, Slug(name))
}

func join(base, rest string) string {
	if base == "/" {
		return "/" + rest
	}
	return base + "/" + rest
}
