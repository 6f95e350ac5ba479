package indexer

import (
	"time"

	"github.com/google/uuid"

	"github.com/recera/linkgraph/pkg/linkindex"
)

// BuildGraph assembles the link artifact from parsed pages. Drafts are left
// out. When two pages share an id the first one wins. Edges are kept only
// when the target is a known page, once per source and target, and the
// backlink index is derived from exactly those edges.
func BuildGraph(pages []Page) *linkindex.Artifact {
	a := linkindex.Empty()

	byID := make(map[string]Page, len(pages))
	var order []Page
	for _, p := range pages {
		if p.Draft || p.ID == "" {
			continue
		}
		if _, dup := byID[p.ID]; dup {
			continue
		}
		byID[p.ID] = p
		order = append(order, p)
		a.Graph.Nodes = append(a.Graph.Nodes, linkindex.Node{
			ID:         p.ID,
			Title:      p.Title,
			Collection: p.Collection,
		})
	}

	for _, p := range order {
		seen := make(map[string]bool, len(p.Links))
		for _, target := range p.Links {
			if seen[target] {
				continue
			}
			seen[target] = true
			if _, known := byID[target]; !known {
				continue
			}
			a.Graph.Links = append(a.Graph.Links, linkindex.Link{Source: p.ID, Target: target})
			a.Backlinks[target] = append(a.Backlinks[target], linkindex.Backlink{
				Source:     p.ID,
				Title:      p.Title,
				Collection: p.Collection,
			})
		}
	}

	a.Meta = linkindex.Meta{
		GeneratedAt: time.Now().UTC(),
		TotalPages:  len(a.Graph.Nodes),
		TotalLinks:  len(a.Graph.Links),
		BuildID:     uuid.NewString(),
	}
	return a
}
