package linkindex

import (
	"encoding/json"
	"strings"
)

// BacklinksFor returns the pages linking to id. The result is never nil.
func (a *Artifact) BacklinksFor(id string) []Backlink {
	if a == nil {
		return []Backlink{}
	}
	src := a.Backlinks[id]
	out := make([]Backlink, len(src))
	copy(out, src)
	return out
}

// Neighborhood returns the subgraph of g within depth hops of id, treating
// links as undirected for traversal. It contains every visited node in visit
// order and every link of g whose endpoints were both visited. A negative
// depth means 1. An id absent from g yields an empty graph.
func Neighborhood(g Graph, id string, depth int) Graph {
	if depth < 0 {
		depth = 1
	}
	byID := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := byID[n.ID]; !dup {
			byID[n.ID] = n
		}
	}
	start, ok := byID[id]
	if !ok {
		return Graph{Nodes: []Node{}, Links: []Link{}}
	}

	adjacency := make(map[string][]string)
	for _, l := range g.Links {
		adjacency[l.Source] = append(adjacency[l.Source], l.Target)
		adjacency[l.Target] = append(adjacency[l.Target], l.Source)
	}

	type item struct {
		id   string
		dist int
	}
	visited := map[string]bool{id: true}
	nodes := []Node{start}
	queue := []item{{id, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.dist >= depth {
			continue
		}
		for _, next := range adjacency[cur.id] {
			if visited[next] {
				continue
			}
			n, known := byID[next]
			if !known {
				continue
			}
			visited[next] = true
			nodes = append(nodes, n)
			queue = append(queue, item{next, cur.dist + 1})
		}
	}

	links := []Link{}
	for _, l := range g.Links {
		if visited[l.Source] && visited[l.Target] {
			links = append(links, l)
		}
	}
	return Graph{Nodes: nodes, Links: links}
}

// Neighborhood is Neighborhood over the artifact's graph.
func (a *Artifact) Neighborhood(id string, depth int) Graph {
	if a == nil {
		return Graph{Nodes: []Node{}, Links: []Link{}}
	}
	return Neighborhood(a.Graph, id, depth)
}

// ParseEmbed decodes a per-view payload. Both the full embed form and a bare
// graph are accepted. Missing, malformed or node-less input reports false.
func ParseEmbed(raw string) (Embed, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Embed{}, false
	}
	var probe struct {
		Current string          `json:"current"`
		Graph   json.RawMessage `json:"graph"`
		Nodes   []Node          `json:"nodes"`
		Links   []Link          `json:"links"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return Embed{}, false
	}
	e := Embed{Current: probe.Current, Graph: Graph{Nodes: probe.Nodes, Links: probe.Links}}
	if len(probe.Graph) > 0 {
		if err := json.Unmarshal(probe.Graph, &e.Graph); err != nil {
			return Embed{}, false
		}
	}
	if len(e.Graph.Nodes) == 0 {
		return Embed{}, false
	}
	if e.Graph.Links == nil {
		e.Graph.Links = []Link{}
	}
	return e, true
}
