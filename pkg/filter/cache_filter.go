package filter

import (
	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/cache"
	"github.com/cuemby/yarelycore/pkg/contentmodel"
)

// CacheFilter drops every remote item that needs caching but has not
// been cached yet. It never triggers caching itself -- that is a
// separate background concern -- it only decides what can play right
// now. Items that don't need caching (inline content, web applications)
// are always kept.
type CacheFilter struct {
	cache *cache.Cache
	log   zerolog.Logger
}

// NewCacheFilter builds a CacheFilter backed by c.
func NewCacheFilter(c *cache.Cache, log zerolog.Logger) *CacheFilter {
	return &CacheFilter{cache: c, log: log}
}

func (f *CacheFilter) Name() string { return "CacheFilter" }

func (f *CacheFilter) FilterCDS(set *contentmodel.Set) *contentmodel.Set {
	return PruneDepthFirst(set, func(item *contentmodel.Item, _ []contentmodel.Constraint) bool {
		if len(item.RequiresFiles) == 0 {
			return true
		}
		uri := item.RequiresFiles[0].PrimaryURI()
		if !f.cache.NeedsCaching(item, uri) {
			return true
		}
		// Loose match: we only care that the file is present on disk,
		// not that its hash matches -- a strict check here would make
		// every scheduling pass wait on re-verifying every cached file.
		if f.cache.IsCached(item, uri, false) {
			return true
		}
		f.log.Debug().Str("uri", uri).Msg("not cached yet, dropping from this pass")
		return false
	})
}
