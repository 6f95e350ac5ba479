// Package linkindex holds the link artifact produced at build time and the
// queries served from it: backlinks and local neighborhoods.
package linkindex

import "time"

// Node is a content page in the graph.
type Node struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Collection string `json:"collection"`
}

// Link is a directed reference from one page to another.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Backlink describes a page that links to the page being queried.
type Backlink struct {
	Source     string `json:"source"`
	Title      string `json:"title"`
	Collection string `json:"collection"`
}

// Graph is a node list plus the links between those nodes.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Meta describes the indexing run that produced an artifact.
type Meta struct {
	GeneratedAt time.Time `json:"generatedAt"`
	TotalPages  int       `json:"totalPages"`
	TotalLinks  int       `json:"totalLinks"`
	BuildID     string    `json:"buildId,omitempty"`
}

// Artifact is the serialized output of the indexer.
type Artifact struct {
	Backlinks map[string][]Backlink `json:"backlinks"`
	Graph     Graph                 `json:"graph"`
	Meta      Meta                  `json:"meta"`
}

// Empty returns an artifact with no pages. It serializes with empty, not
// null, collections.
func Empty() *Artifact {
	return &Artifact{
		Backlinks: map[string][]Backlink{},
		Graph:     Graph{Nodes: []Node{}, Links: []Link{}},
	}
}

// Embed is the per-view payload a host page hands to the viewer.
type Embed struct {
	Current string `json:"current"`
	Graph   Graph  `json:"graph"`
}
