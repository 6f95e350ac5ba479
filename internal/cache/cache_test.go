package cache

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	Title string   `json:"title"`
	Links []string `json:"links"`
}

func TestCache_GetPut(t *testing.T) {
	c, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)

	key := Key("blog/a.md", []byte("# A"))
	require.NoError(t, c.Put(key, "blog/a.md", []byte("payload")))

	data, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "payload", string(data))

	_, ok = c.Get("missing")
	assert.False(t, ok)

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 1, s.Entries)
}

func TestKey_ChangesWithContentAndPath(t *testing.T) {
	a := Key("blog/a.md", []byte("one"))
	assert.Equal(t, a, Key("blog/a.md", []byte("one")))
	assert.NotEqual(t, a, Key("blog/a.md", []byte("two")))
	assert.NotEqual(t, a, Key("notes/a.md", []byte("one")))
	assert.Len(t, a, 64)
}

func TestCache_JSONRoundTrip(t *testing.T) {
	c, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)

	want := page{Title: "Hello", Links: []string{"/blog/b"}}
	require.NoError(t, c.PutJSON("k", "blog/a.md", want))

	var got page
	require.True(t, c.GetJSON("k", &got))
	assert.Equal(t, want, got)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	c, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, c.Put("k", "x.md", []byte("{not json")))

	var got page
	assert.False(t, c.GetJSON("k", &got))
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Stats().Hits)
}

func TestCache_MissingFileIsMiss(t *testing.T) {
	c, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, c.Put("k", "x.md", []byte("data")))
	require.NoError(t, os.Remove(c.path("k")))

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCache_PersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, c.Put("k", "x.md", []byte("data")))
	require.NoError(t, c.Flush())

	reopened, err := New(Config{Dir: dir})
	require.NoError(t, err)
	data, ok := reopened.Get("k")
	require.True(t, ok)
	assert.Equal(t, "data", string(data))
}

func TestCache_CorruptIndexStartsFresh(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.indexPath(), []byte("garbage"), 0644))

	reopened, err := New(Config{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Stats().Entries)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New(Config{Dir: t.TempDir(), MaxEntries: 2})
	require.NoError(t, err)

	require.NoError(t, c.Put("old", "a.md", []byte("a")))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, c.Put("mid", "b.md", []byte("b")))
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("old")
	require.True(t, ok)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, c.Put("new", "c.md", []byte("c")))

	_, ok = c.Get("mid")
	assert.False(t, ok)
	_, ok = c.Get("old")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_DeleteAndClear(t *testing.T) {
	c, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, c.Put("a", "a.md", []byte("a")))
	require.NoError(t, c.Put("b", "b.md", []byte("b")))

	require.NoError(t, c.Delete("a"))
	require.NoError(t, c.Delete("a"))
	_, ok := c.Get("a")
	assert.False(t, ok)

	require.NoError(t, c.Clear())
	assert.Equal(t, Stats{}, c.Stats())
	_, ok = c.Get("b")
	assert.False(t, ok)
}
