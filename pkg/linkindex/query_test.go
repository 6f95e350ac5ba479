package linkindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain() *Artifact {
	return &Artifact{
		Backlinks: map[string][]Backlink{
			"B": {{Source: "A", Title: "Page A", Collection: "blog"}},
			"C": {{Source: "B", Title: "Page B", Collection: "notes"}},
		},
		Graph: Graph{
			Nodes: []Node{
				{ID: "A", Title: "Page A", Collection: "blog"},
				{ID: "B", Title: "Page B", Collection: "notes"},
				{ID: "C", Title: "Page C", Collection: "talks"},
			},
			Links: []Link{{Source: "A", Target: "B"}, {Source: "B", Target: "C"}},
		},
	}
}

func ids(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestBacklinksChain(t *testing.T) {
	a := chain()

	assert.Equal(t, []Backlink{{Source: "B", Title: "Page B", Collection: "notes"}}, a.BacklinksFor("C"))

	none := a.BacklinksFor("A")
	require.NotNil(t, none)
	assert.Empty(t, none)

	assert.Empty(t, a.BacklinksFor("missing"))

	var nilArtifact *Artifact
	assert.NotNil(t, nilArtifact.BacklinksFor("A"))
}

func TestNeighborhoodChain(t *testing.T) {
	a := chain()

	g := a.Neighborhood("B", 1)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, ids(g.Nodes))
	assert.Equal(t, a.Graph.Links, g.Links)

	g = a.Neighborhood("A", 1)
	assert.Equal(t, []string{"A", "B"}, ids(g.Nodes))
	assert.Equal(t, []Link{{Source: "A", Target: "B"}}, g.Links)

	g = a.Neighborhood("A", 2)
	assert.Equal(t, []string{"A", "B", "C"}, ids(g.Nodes))
	assert.Len(t, g.Links, 2)
}

func TestNeighborhoodDepthZero(t *testing.T) {
	g := chain().Neighborhood("B", 0)
	assert.Equal(t, []string{"B"}, ids(g.Nodes))
	assert.Empty(t, g.Links)
	assert.NotNil(t, g.Links)
}

func TestNeighborhoodAbsent(t *testing.T) {
	g := chain().Neighborhood("Z", 3)
	assert.Equal(t, Graph{Nodes: []Node{}, Links: []Link{}}, g)
}

func TestNeighborhoodTraversesInbound(t *testing.T) {
	// C is only reachable from B through an inbound edge
	g := chain().Neighborhood("C", 1)
	assert.Equal(t, []string{"C", "B"}, ids(g.Nodes))
	assert.Equal(t, []Link{{Source: "B", Target: "C"}}, g.Links)
}

func TestNeighborhoodNegativeDepthDefaultsToOne(t *testing.T) {
	g := chain().Neighborhood("A", -1)
	assert.Equal(t, []string{"A", "B"}, ids(g.Nodes))
}

func TestNeighborhoodIncludesInducedLinks(t *testing.T) {
	g := Graph{
		Nodes: []Node{{ID: "hub"}, {ID: "x"}, {ID: "y"}},
		Links: []Link{{Source: "hub", Target: "x"}, {Source: "hub", Target: "y"}, {Source: "x", Target: "y"}},
	}
	sub := Neighborhood(g, "hub", 1)
	assert.Len(t, sub.Links, 3)
}

func TestParseEmbed(t *testing.T) {
	e, ok := ParseEmbed(`{"current":"/blog/a","graph":{"nodes":[{"id":"/blog/a","title":"A","collection":"blog"}],"links":[]}}`)
	require.True(t, ok)
	assert.Equal(t, "/blog/a", e.Current)
	assert.Len(t, e.Graph.Nodes, 1)

	e, ok = ParseEmbed(`{"nodes":[{"id":"x"}]}`)
	require.True(t, ok)
	assert.Equal(t, []Link{}, e.Graph.Links)

	for _, raw := range []string{"", "   ", "{", `{"nodes":[],"links":[]}`, `{"graph":{"nodes":"nope"}}`, "null"} {
		_, ok := ParseEmbed(raw)
		assert.False(t, ok, "input %q", raw)
	}
}
