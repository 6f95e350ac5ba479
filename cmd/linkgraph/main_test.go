package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/linkgraph/cmd/linkgraph/internal/config"
	"github.com/recera/linkgraph/pkg/graphviewer"
	"github.com/recera/linkgraph/pkg/linkindex"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

// project lays out a site with its own linkgraph.yaml.
func project(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, dir, "linkgraph.yaml", `
contentDir: content
output: dist/link-index.json
cacheDir: .cache
collections:
  - name: blog
  - name: notes
  - name: talks
graph:
  seed: 7
`)
	writeFile(t, dir, "content/blog/20240713-my-post.md", "---\ntitle: My Post\n---\nSee [B](../notes/20240101-x.md).\n")
	writeFile(t, dir, "content/notes/20240101-x.md", "---\ntitle: X\n---\nOn to [C](/talks/c).\n")
	writeFile(t, dir, "content/talks/c.md", "---\ntitle: C\n---\n")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIndexThenQuery(t *testing.T) {
	dir := project(t)

	out, err := run(t, "index", "--config", dir)
	require.NoError(t, err)
	indexPath := filepath.Join(dir, "dist", "link-index.json")
	assert.Equal(t, indexPath+"\n", out)
	assert.FileExists(t, indexPath)
	assert.DirExists(t, filepath.Join(dir, ".cache", "pages"))

	out, err = run(t, "backlinks", "notes/x", "-C", dir)
	require.NoError(t, err)
	var backlinks []linkindex.Backlink
	require.NoError(t, json.Unmarshal([]byte(out), &backlinks))
	assert.Equal(t, []linkindex.Backlink{{Source: "/blog/my-post", Title: "My Post", Collection: "blog"}}, backlinks)

	out, err = run(t, "neighborhood", "/blog/my-post", "--depth", "2", "-C", dir)
	require.NoError(t, err)
	var g linkindex.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Links, 2)

	out, err = run(t, "embed", "/talks/c/", "-C", dir)
	require.NoError(t, err)
	e, ok := linkindex.ParseEmbed(out)
	require.True(t, ok)
	assert.Equal(t, "/talks/c", e.Current)
	assert.Len(t, e.Graph.Nodes, 2)

	out, err = run(t, "snapshot", "/notes/x", "--width", "300", "--height", "150", "-C", dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" width="300" height="150"`))

	svgPath := filepath.Join(dir, "x.svg")
	_, err = run(t, "snapshot", "/notes/x", "-o", svgPath, "-C", dir)
	require.NoError(t, err)
	data, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `width="600" height="300"`)
}

func TestQueryErrors(t *testing.T) {
	dir := project(t)

	_, err := run(t, "backlinks", "/notes/x", "-C", dir)
	assert.ErrorContains(t, err, "linkgraph index")

	_, err = run(t, "index", "--config", dir, "--no-cache")
	require.NoError(t, err)

	_, err = run(t, "embed", "/ghost", "-C", dir)
	assert.ErrorContains(t, err, "not in the link index")

	_, err = run(t, "backlinks", "-C", dir)
	assert.Error(t, err)
}

func TestIndexFlagsOverrideConfig(t *testing.T) {
	dir := project(t)
	out := filepath.Join(t.TempDir(), "idx.json")

	_, err := run(t, "index", "-C", dir, "--content", filepath.Join(dir, "content"), "--out", out, "--workers", "1", "--no-cache")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	a, err := linkindex.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Meta.TotalPages)
	assert.NoDirExists(t, filepath.Join(dir, ".cache"))

	got, err := run(t, "backlinks", "/talks/c", "-C", dir, "--index", out)
	require.NoError(t, err)
	assert.Contains(t, got, `"source": "/notes/x"`)
}

func TestGraphOptionsDrift(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Nil(t, graphOptions(cfg).Drift)

	cfg.Graph.Seed = 3
	cfg.Graph.Drift = "noise"
	opts := graphOptions(cfg)
	assert.Equal(t, uint64(3), opts.Seed)
	assert.IsType(t, &graphviewer.NoiseDrift{}, opts.Drift)
}

func TestPageArg(t *testing.T) {
	assert.Equal(t, "/blog/a", pageArg("blog/a"))
	assert.Equal(t, "/blog/a", pageArg(" /blog/a/ "))
	assert.Equal(t, "/", pageArg("/"))
}
