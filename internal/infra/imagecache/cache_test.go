package imagecache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageServer(t *testing.T, hits *int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		w.Write([]byte("image-bytes-" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCache_FetchesOnce(t *testing.T) {
	var hits int64
	srv := newImageServer(t, &hits)

	c, err := New(t.TempDir(), 8)
	require.NoError(t, err)

	url := srv.URL + "/cover.jpg"
	ctx := context.Background()

	first, err := c.Get(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes-/cover.jpg"), first)

	second, err := c.Get(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestCache_DiskSurvivesRestart(t *testing.T) {
	var hits int64
	srv := newImageServer(t, &hits)
	dir := t.TempDir()
	url := srv.URL + "/cover.jpg"
	ctx := context.Background()

	c1, err := New(dir, 8)
	require.NoError(t, err)
	_, err = c1.Get(ctx, url)
	require.NoError(t, err)

	// A fresh cache over the same directory serves from disk.
	c2, err := New(dir, 8)
	require.NoError(t, err)
	data, err := c2.Get(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes-/cover.jpg"), data)

	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestCache_DistinctURLsDistinctEntries(t *testing.T) {
	var hits int64
	srv := newImageServer(t, &hits)

	c, err := New(t.TempDir(), 8)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := c.Get(ctx, srv.URL+"/a.jpg")
	require.NoError(t, err)
	b, err := c.Get(ctx, srv.URL+"/b.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, int64(2), atomic.LoadInt64(&hits))
}

func TestCache_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	c, err := New(t.TempDir(), 8)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), srv.URL+"/missing.jpg")
	assert.Error(t, err)
}

func TestCache_Prune(t *testing.T) {
	var hits int64
	srv := newImageServer(t, &hits)
	dir := t.TempDir()

	c, err := New(dir, 8)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), srv.URL+"/old.jpg")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// Age the entry past the cutoff.
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, entries[0].Name()), stale, stale))

	require.NoError(t, c.Prune(24*time.Hour))

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNew_PrunesStaleEntriesOnConstruction(t *testing.T) {
	var hits int64
	srv := newImageServer(t, &hits)
	dir := t.TempDir()

	c1, err := New(dir, 8)
	require.NoError(t, err)
	_, err = c1.Get(context.Background(), srv.URL+"/old.jpg")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	stale := time.Now().Add(-31 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, entries[0].Name()), stale, stale))

	_, err = New(dir, 8)
	require.NoError(t, err)

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
