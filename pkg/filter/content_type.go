package filter

import (
	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/cache"
	"github.com/cuemby/yarelycore/pkg/contentmodel"
)

// ContentTypeFilter drops every item whose content type no renderer is
// registered for. It reuses the cache's content-type registry (the same
// one NeedsCaching resolves against) rather than keeping a second copy
// of the supported-type list.
type ContentTypeFilter struct {
	cache *cache.Cache
	log   zerolog.Logger
}

// NewContentTypeFilter builds a ContentTypeFilter that resolves content
// types against c's registry.
func NewContentTypeFilter(c *cache.Cache, log zerolog.Logger) *ContentTypeFilter {
	return &ContentTypeFilter{cache: c, log: log}
}

func (f *ContentTypeFilter) Name() string { return "ContentTypeFilter" }

func (f *ContentTypeFilter) FilterCDS(set *contentmodel.Set) *contentmodel.Set {
	return PruneDepthFirst(set, func(item *contentmodel.Item, _ []contentmodel.Constraint) bool {
		if _, ok := f.cache.Resolve(item.ContentType); ok {
			return true
		}
		f.log.Debug().Str("content_type", item.ContentType).Msg("unrecognized content type")
		return false
	})
}
