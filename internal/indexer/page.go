package indexer

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/recera/linkgraph/pkg/pageid"
)

// Page is the parsed form of one content file.
type Page struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Collection string   `json:"collection"`
	Draft      bool     `json:"draft,omitempty"`
	Links      []string `json:"links"`
}

// Frontmatter holds the fields the indexer reads from a page header.
type Frontmatter struct {
	Title string `yaml:"title"`
	Draft bool   `yaml:"draft"`
}

var fence = []byte("---")

// SplitFrontmatter separates a leading YAML block delimited by --- lines from
// the body. Content without an opening fence is all body.
func SplitFrontmatter(data []byte) (header, body []byte) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	first, rest, ok := cutLine(data)
	if !ok || !bytes.Equal(bytes.TrimSpace(first), fence) {
		return nil, data
	}
	offset := 0
	for remaining := rest; len(remaining) > 0; {
		line, next, _ := cutLine(remaining)
		if bytes.Equal(bytes.TrimSpace(line), fence) {
			return rest[:offset], next
		}
		offset += len(remaining) - len(next)
		remaining = next
	}
	// unterminated header
	return nil, data
}

func cutLine(b []byte) (line, rest []byte, ok bool) {
	if len(b) == 0 {
		return nil, nil, false
	}
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return bytes.TrimSuffix(b[:i], []byte("\r")), b[i+1:], true
	}
	return b, nil, true
}

// ParsePage reads the frontmatter and outbound links of one content file.
func ParsePage(n *pageid.Normalizer, src Source, data []byte) (Page, error) {
	header, body := SplitFrontmatter(data)
	var fm Frontmatter
	if len(header) > 0 {
		if err := yaml.Unmarshal(header, &fm); err != nil {
			return Page{}, fmt.Errorf("invalid frontmatter in %s: %w", src.Rel, err)
		}
	}

	name := path.Base(src.Rel)
	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title = strings.TrimSuffix(strings.TrimSuffix(name, ".mdx"), ".md")
		if title == "index" {
			if dir := path.Base(path.Dir(src.Rel)); dir != src.Collection {
				title = dir
			}
		}
	}

	id := n.FromFilename(name, src.Collection)
	if name == "index.md" {
		if dir := path.Base(path.Dir(src.Rel)); dir != src.Collection {
			id = n.FromFilename(dir, src.Collection)
		}
	}

	return Page{
		ID:         id,
		Title:      title,
		Collection: src.Collection,
		Draft:      fm.Draft,
		Links:      n.PageLinks(string(body), src.Collection),
	}, nil
}
