package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/linkgraph/internal/indexer"
	"github.com/recera/linkgraph/pkg/graphviewer"
	"github.com/recera/linkgraph/pkg/linkindex"
)

func chainArtifact() *linkindex.Artifact {
	return indexer.BuildGraph([]indexer.Page{
		{ID: "/blog/a", Title: "A", Collection: "blog", Links: []string{"/notes/b"}},
		{ID: "/notes/b", Title: "B", Collection: "notes", Links: []string{"/talks/c"}},
		{ID: "/talks/c", Title: "C", Collection: "talks"},
	})
}

func newTestServer(t *testing.T, a *linkindex.Artifact) (*Server, *httptest.Server) {
	t.Helper()
	s := New(linkindex.New(linkindex.StaticLoader{Artifact: a}), Config{Graph: graphviewer.Options{Seed: 1}})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestServeIndexWithETag(t *testing.T) {
	a := chainArtifact()
	_, ts := newTestServer(t, a)

	resp := get(t, ts.URL+"/link-index.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	etag := resp.Header.Get("ETag")
	assert.Equal(t, `"`+a.Meta.BuildID+`"`, etag)

	var got linkindex.Artifact
	decode(t, resp, &got)
	assert.Equal(t, a.Graph, got.Graph)

	resp = get(t, ts.URL+"/link-index.json", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	resp = get(t, ts.URL+"/link-index.json", "If-None-Match", `"stale"`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeBacklinks(t *testing.T) {
	_, ts := newTestServer(t, chainArtifact())

	resp := get(t, ts.URL+"/api/backlinks?id=/talks/c")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got []linkindex.Backlink
	decode(t, resp, &got)
	assert.Equal(t, []linkindex.Backlink{{Source: "/notes/b", Title: "B", Collection: "notes"}}, got)

	// missing leading slash is accepted
	resp = get(t, ts.URL+"/api/backlinks?id=notes/b")
	decode(t, resp, &got)
	assert.Len(t, got, 1)

	resp = get(t, ts.URL+"/api/backlinks?id=/blog/a")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(body))

	resp = get(t, ts.URL+"/api/backlinks")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeNeighborhood(t *testing.T) {
	_, ts := newTestServer(t, chainArtifact())

	var g linkindex.Graph
	resp := get(t, ts.URL+"/api/neighborhood?id=/blog/a")
	decode(t, resp, &g)
	assert.Len(t, g.Nodes, 2)

	resp = get(t, ts.URL+"/api/neighborhood?id=/blog/a&depth=2")
	decode(t, resp, &g)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Links, 2)

	resp = get(t, ts.URL+"/api/neighborhood?id=/ghost")
	decode(t, resp, &g)
	assert.Empty(t, g.Nodes)
	assert.NotNil(t, g.Links)

	for _, bad := range []string{"x", "-1", "1.5"} {
		resp = get(t, ts.URL+"/api/neighborhood?id=/blog/a&depth="+bad)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}
}

func TestServeEmbed(t *testing.T) {
	_, ts := newTestServer(t, chainArtifact())

	resp := get(t, ts.URL+"/api/embed?id=/notes/b")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var e linkindex.Embed
	decode(t, resp, &e)
	assert.Equal(t, "/notes/b", e.Current)
	assert.Len(t, e.Graph.Nodes, 3)

	resp = get(t, ts.URL+"/api/embed?id=/ghost")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeSnapshot(t *testing.T) {
	_, ts := newTestServer(t, chainArtifact())

	resp := get(t, ts.URL+"/api/snapshot.svg?id=/notes/b&width=400&height=200")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), `<svg xmlns="http://www.w3.org/2000/svg" width="400" height="200"`))
	assert.Equal(t, 3, strings.Count(string(body), "<circle "))

	for _, q := range []string{"width=0", "height=abc", "width=NaN"} {
		resp = get(t, ts.URL+"/api/snapshot.svg?id=/notes/b&"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
	resp = get(t, ts.URL+"/api/snapshot.svg?id=/ghost")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, chainArtifact())
	resp, err := http.Post(ts.URL+"/api/backlinks?id=/a", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	_, ts := newTestServer(t, chainArtifact())
	notFound := testutil.ToFloat64(requestsTotal.WithLabelValues("embed", "404"))
	ok := testutil.ToFloat64(requestsTotal.WithLabelValues("backlinks", "200"))

	get(t, ts.URL+"/api/embed?id=/ghost")
	get(t, ts.URL+"/api/backlinks?id=/notes/b")

	assert.Equal(t, notFound+1, testutil.ToFloat64(requestsTotal.WithLabelValues("embed", "404")))
	assert.Equal(t, ok+1, testutil.ToFloat64(requestsTotal.WithLabelValues("backlinks", "200")))

	resp := get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `linkgraph_http_requests_total{code="404",route="embed"}`)
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/livereload"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestLiveReloadHub(t *testing.T) {
	s, ts := newTestServer(t, chainArtifact())
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(Message{Type: "HELLO"}))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "ACK", msg.Type)

	require.Eventually(t, func() bool { return s.Hub().Len() == 1 }, time.Second, 10*time.Millisecond)
	s.Hub().Broadcast(Message{Type: "RELOAD", BuildID: "b1", Pages: 3})
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, Message{Type: "RELOAD", BuildID: "b1", Pages: 3}, msg)

	conn.Close()
	require.Eventually(t, func() bool { return s.Hub().Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	s, ts := newTestServer(t, chainArtifact())
	conn := dial(t, ts)
	require.Eventually(t, func() bool { return s.Hub().Len() == 1 }, time.Second, 10*time.Millisecond)

	s.Hub().Close()
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Equal(t, 0, s.Hub().Len())
}

func TestListenAndServeShutsDownOnCancel(t *testing.T) {
	s := New(linkindex.New(linkindex.StaticLoader{}), Config{})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}

func writePage(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestWatcherRebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "link-index.json")
	writePage(t, root, "blog/a.md", "---\ntitle: A\n---\nhello\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0755))

	index := linkindex.New(linkindex.FileLoader{Path: out})
	s := New(index, Config{})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	w := NewWatcher(&indexer.Indexer{Root: root}, out, index, s.Hub())
	w.Debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := w.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, index.Artifact(ctx).Meta.TotalPages)
	assert.Equal(t, 1.0, testutil.ToFloat64(indexPages))

	conn := dial(t, ts)
	require.Eventually(t, func() bool { return s.Hub().Len() == 1 }, time.Second, 10*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	<-w.Ready()

	writePage(t, root, "notes/b.md", "---\ntitle: B\n---\nsee [a](/blog/a)\n")
	writePage(t, root, "blog/ignored.txt", "nope")

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "RELOAD", msg.Type)
	assert.NotEmpty(t, msg.BuildID)

	require.Eventually(t, func() bool {
		a := index.Artifact(ctx)
		return a.Meta.TotalPages == 2 && len(a.Graph.Links) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, []linkindex.Link{{Source: "/notes/b", Target: "/blog/a"}}, index.Artifact(ctx).Graph.Links)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcherRunTwice(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(&indexer.Indexer{Root: root}, filepath.Join(t.TempDir(), "idx.json"), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	require.NotPanics(t, func() { assert.NoError(t, w.Run(ctx)) })
	<-w.Ready()
}

func TestIsRelevant(t *testing.T) {
	assert.True(t, isRelevant(fsnotify.Event{Name: "a/b.md", Op: fsnotify.Write}))
	assert.True(t, isRelevant(fsnotify.Event{Name: "a/B.MDX", Op: fsnotify.Create}))
	assert.False(t, isRelevant(fsnotify.Event{Name: "a/b.txt", Op: fsnotify.Write}))
	assert.True(t, isRelevant(fsnotify.Event{Name: "a/notes", Op: fsnotify.Remove}))
	assert.False(t, isRelevant(fsnotify.Event{Name: "a/notes", Op: fsnotify.Chmod}))
}
