package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/metrics"
)

var bucketHashes = []byte("hashes")

// ContentTypeInfo describes how a known content type should be cached and
// rendered: whether it must be fetched to local disk before display
// (Precache), which renderer handler module displays it and whether that
// handler wants a filesystem Path or a URI (Module/ParamType), whether the
// content streams rather than loading once (Stream), and whether the
// display manager must tear down and restart the renderer on every
// presentation rather than leaving a still-current one on screen
// (RestartRenderer).
type ContentTypeInfo struct {
	Precache        bool
	Module          string
	ParamType       string
	Stream          bool
	RestartRenderer bool
}

// Cache stores downloaded content under dir, named by the sha1 of the
// extension-stripped source URI plus its original extension, and tracks
// each cached file's known hashes and URIs in a bbolt-backed index so
// IsCached can do strict verification without re-reading the file from
// disk.
type Cache struct {
	dir        string
	knownTypes map[string]ContentTypeInfo
	index      *bolt.DB
}

// New opens (creating if absent) a content cache rooted at dir, backed by
// an index database at dir/cache_index.db.
func New(dir string, knownTypes map[string]ContentTypeInfo) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir %s: %w", dir, err)
	}

	db, err := bolt.Open(filepath.Join(dir, "cache_index.db"), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: open index: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHashes)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create index bucket: %w", err)
	}

	return &Cache{dir: dir, knownTypes: knownTypes, index: db}, nil
}

// Close releases the index database.
func (c *Cache) Close() error {
	return c.index.Close()
}

// NeedsCaching reports whether item's content type resolves to a known
// type flagged precache. Callers that walk a content tree are
// responsible for skipping inline items before calling this; it has no
// notion of inline vs. remote on its own.
func (c *Cache) NeedsCaching(item *contentmodel.Item, uri string) bool {
	if item == nil || uri == "" {
		return false
	}
	info, ok := c.Resolve(item.ContentType)
	return ok && info.Precache
}

// Resolve looks up contentType's ContentTypeInfo. An exact match wins;
// failing that, the type is tried split on ';' then on '/' (so
// "application/pdf; charset=..." and "image/png" both resolve through a
// registry keyed on "application/pdf" and "image" respectively) before
// giving up.
func (c *Cache) Resolve(contentType string) (ContentTypeInfo, bool) {
	if info, ok := c.knownTypes[contentType]; ok {
		return info, true
	}
	for _, sep := range []byte{';', '/'} {
		if idx := strings.IndexByte(contentType, sep); idx >= 0 {
			if info, ok := c.knownTypes[contentType[:idx]]; ok {
				return info, true
			}
		}
	}
	return ContentTypeInfo{}, false
}

// DefaultContentTypes returns the built-in content-type registry: which
// renderer family handles a type and whether its content should be
// precached before display. Types are recognized either by a full MIME
// type or its top-level prefix (e.g. "image" covers every image/*).
func DefaultContentTypes() map[string]ContentTypeInfo {
	return map[string]ContentTypeInfo{
		"application/pdf": {Module: "image", ParamType: "path", Precache: true},
		"image":           {Module: "image", ParamType: "path", Precache: true},
		"text":            {Module: "web", ParamType: "uri", Precache: false},
		"video":           {Module: "video", ParamType: "uri", Precache: true, RestartRenderer: true},
		"video/vnd.vlc":   {Module: "video", ParamType: "uri", Precache: false, Stream: true, RestartRenderer: true},
		"video/quicktime": {Module: "video", ParamType: "uri", Precache: true, RestartRenderer: true},
	}
}

// cachedPath returns the final on-disk path a fully-downloaded uri
// occupies; downloadingPath is its in-progress staging path.
func (c *Cache) cachedPath(uri string) string {
	return filepath.Join(c.dir, cacheName(uri))
}

// LocalPath returns the on-disk path uri would occupy once cached,
// whether or not it's there yet; callers that need to know it's actually
// present should check IsCached first.
func (c *Cache) LocalPath(uri string) string {
	return c.cachedPath(uri)
}

func (c *Cache) downloadingPath(uri string) string {
	return c.cachedPath(uri) + ".download"
}

// Downloading reports whether uri currently has a .download staging file
// in progress.
func (c *Cache) Downloading(uri string) bool {
	_, err := os.Stat(c.downloadingPath(uri))
	return err == nil
}

// IsCached reports whether uri's content is present on disk. In strict
// mode it additionally requires that the cached file's recorded hash
// list contains one of item's declared hashes, or the URI itself; a
// strict mismatch removes the stale file so it doesn't linger.
func (c *Cache) IsCached(item *contentmodel.Item, uri string, strict bool) bool {
	strictness := "loose"
	if strict {
		strictness = "strict"
	}

	path := c.cachedPath(uri)
	if _, err := os.Stat(path); err != nil {
		metrics.CacheHitsTotal.WithLabelValues(strictness, "miss").Inc()
		return false
	}
	if !strict {
		metrics.CacheHitsTotal.WithLabelValues(strictness, "hit").Inc()
		return true
	}

	rec, ok := c.lookupRecord(uri)
	if ok {
		if rec.URIs[uri] {
			metrics.CacheHitsTotal.WithLabelValues(strictness, "hit").Inc()
			return true
		}
		wanted := declaredHashes(item)
		for algo, digest := range wanted {
			if rec.Hashes[algo] == digest {
				metrics.CacheHitsTotal.WithLabelValues(strictness, "hit").Inc()
				return true
			}
		}
	}

	// The file on disk doesn't match what we expect to find there
	// (stale content from a prior URI that hashed to the same name, or
	// an index we never recorded). Remove it so the next Cache call
	// re-downloads instead of silently serving wrong content.
	os.Remove(path)
	metrics.CacheHitsTotal.WithLabelValues(strictness, "miss").Inc()
	return false
}

func declaredHashes(item *contentmodel.Item) map[string]string {
	if item == nil {
		return nil
	}
	for _, rf := range item.RequiresFiles {
		if len(rf.Hashes) > 0 {
			return rf.Hashes
		}
	}
	return nil
}

// cacheName splits uri into a base and extension the way splitExt does,
// hashes the base with sha1, and re-appends the extension so the cached
// file keeps a recognizable suffix on disk.
func cacheName(uri string) string {
	base, ext := splitExt(uri)
	sum := sha1.Sum([]byte(base))
	return hex.EncodeToString(sum[:]) + ext
}

// splitExt mirrors os.path.splitext: the extension is the trailing
// ".ext" of the final path segment, provided that segment has a
// non-empty name before the dot (so "a.png" splits, ".bashrc" doesn't).
func splitExt(uri string) (base, ext string) {
	slash := strings.LastIndexByte(uri, '/')
	name := uri
	prefix := ""
	if slash >= 0 {
		prefix = uri[:slash+1]
		name = uri[slash+1:]
	}

	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 {
		return uri, ""
	}
	return prefix + name[:dot], name[dot:]
}
