package cache

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(t.TempDir(), map[string]ContentTypeInfo{
		"image/png": {Precache: true},
		"text/html": {Precache: false},
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_NeedsCaching(t *testing.T) {
	c := newTestCache(t)

	assert.True(t, c.NeedsCaching(&contentmodel.Item{ContentType: "image/png"}, "file:///a.png"))
	assert.False(t, c.NeedsCaching(&contentmodel.Item{ContentType: "text/html"}, "file:///a.html"))
	assert.False(t, c.NeedsCaching(&contentmodel.Item{ContentType: "application/unknown"}, "file:///a.bin"))
}

func TestCache_ResolveFallsBackToPrefixSplit(t *testing.T) {
	c := newTestCache(t)

	info, ok := c.Resolve("image/png")
	require.True(t, ok)
	assert.True(t, info.Precache)

	c2, err := New(t.TempDir(), DefaultContentTypes())
	require.NoError(t, err)
	defer c2.Close()

	info, ok = c2.Resolve("application/pdf; charset=binary")
	require.True(t, ok)
	assert.True(t, info.Precache)

	info, ok = c2.Resolve("image/jpeg")
	require.True(t, ok)
	assert.True(t, info.Precache)

	_, ok = c2.Resolve("application/unknown")
	assert.False(t, ok)
}

func TestCache_IsCachedFalseWhenFileAbsent(t *testing.T) {
	c := newTestCache(t)
	assert.False(t, c.IsCached(&contentmodel.Item{}, "file:///missing.png", false))
}

func TestCache_DownloadsFileSource(t *testing.T) {
	c := newTestCache(t)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "source.png")
	require.NoError(t, os.WriteFile(srcPath, []byte("image-bytes"), 0o644))

	uri := "file://" + srcPath
	item := &contentmodel.Item{ContentType: "image/png"}

	path, err := c.Cache(item, uri, false)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
	assert.True(t, c.IsCached(item, uri, false))
}

func TestCache_DownloadsHTTPSource(t *testing.T) {
	c := newTestCache(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote-bytes"))
	}))
	defer srv.Close()

	item := &contentmodel.Item{ContentType: "image/png"}
	path, err := c.Cache(item, srv.URL+"/a.png", false)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "remote-bytes", string(data))
}

func TestCache_HTTPNonOKStatusIsRetryableURLError(t *testing.T) {
	c := newTestCache(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := c.Cache(&contentmodel.Item{ContentType: "image/png"}, srv.URL+"/a.png", false)
	require.Error(t, err)
	var urlErr *CachingURLError
	assert.ErrorAs(t, err, &urlErr)
}

func TestCache_StrictIsCachedRequiresMatchingHashOrURI(t *testing.T) {
	c := newTestCache(t)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "source.png")
	require.NoError(t, os.WriteFile(srcPath, []byte("image-bytes"), 0o644))
	uri := "file://" + srcPath

	item := &contentmodel.Item{ContentType: "image/png"}
	_, err := c.Cache(item, uri, false)
	require.NoError(t, err)

	assert.True(t, c.IsCached(item, uri, true))

	otherItem := &contentmodel.Item{
		ContentType: "image/png",
		RequiresFiles: []contentmodel.RequiresFile{
			{Hashes: map[string]string{"sha1": "doesnotmatch"}},
		},
	}
	assert.False(t, c.IsCached(otherItem, "file:///unrelated.png", true))
}

func TestCache_DownloadingReportsStagingFile(t *testing.T) {
	c := newTestCache(t)
	uri := "file:///a.png"

	assert.False(t, c.Downloading(uri))
	require.NoError(t, os.WriteFile(c.downloadingPath(uri), []byte("x"), 0o644))
	assert.True(t, c.Downloading(uri))
}

func TestCacheName_StripsExtensionBeforeHashingAndReappendsIt(t *testing.T) {
	name := cacheName("http://example.com/path/a.png")
	assert.True(t, strings.HasSuffix(name, ".png"))

	// A different base name with the same extension must not collide.
	other := cacheName("http://example.com/path/b.png")
	assert.NotEqual(t, name, other)

	// Two URIs identical but for their extension share the same sha1
	// base (only the name before the final dot is hashed) and differ
	// only in the re-appended suffix.
	sumOf := func(n string) string { return strings.TrimSuffix(n, filepath.Ext(n)) }
	jpg := cacheName("http://example.com/path/a.jpg")
	assert.Equal(t, sumOf(name), sumOf(jpg))
	assert.NotEqual(t, name, jpg)

	// Files without an extension hash the whole URI and get no suffix.
	noExt := cacheName("http://example.com/path/readme")
	assert.False(t, strings.Contains(filepath.Base(noExt), "."))
}

func TestCache_RefreshForcesRedownload(t *testing.T) {
	c := newTestCache(t)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "source.png")
	require.NoError(t, os.WriteFile(srcPath, []byte("v1"), 0o644))
	uri := "file://" + srcPath
	item := &contentmodel.Item{ContentType: "image/png"}

	path, err := c.Cache(item, uri, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(srcPath, []byte("v2-longer"), 0o644))
	path2, err := c.Cache(item, uri, true)
	require.NoError(t, err)
	assert.Equal(t, path, path2)

	data, err := os.ReadFile(path2)
	require.NoError(t, err)
	assert.Equal(t, "v2-longer", string(data))
}
