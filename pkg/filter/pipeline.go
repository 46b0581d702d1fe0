package filter

import (
	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/cache"
	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/contextstore"
)

// Filter is one step of the pipeline: given a content descriptor set, it
// returns a narrowed copy, or nil when nothing in it is still eligible.
type Filter interface {
	Name() string
	FilterCDS(set *contentmodel.Set) *contentmodel.Set
}

// Pipeline runs a fixed sequence of Filters, feeding one step's output
// into the next. It stops early the moment a step returns nil, since
// every later step would have nothing left to narrow.
type Pipeline struct {
	filters []Filter
	log     zerolog.Logger
}

// NewPipeline builds a Pipeline that runs filters in the given order.
func NewPipeline(log zerolog.Logger, filters ...Filter) *Pipeline {
	return &Pipeline{filters: filters, log: log}
}

// NewDefaultPipeline builds the fixed six-step pipeline pipeline.py's
// DEFAULT_FILTERS names: playability gates (touch input, content type,
// cache) first, then Tacita personalization, then calendar constraints,
// then priority last so it only ever narrows what already cleared every
// earlier gate. WebContentStatusFilter is left out, matching the
// source's own commented-out entry.
func NewDefaultPipeline(store *contextstore.Store, c *cache.Cache, log zerolog.Logger) *Pipeline {
	return NewPipeline(log,
		NewTouchInputFilter(store, log),
		NewContentTypeFilter(c, log),
		NewCacheFilter(c, log),
		NewTacitaFilter(store, log),
		NewConstraintsAreMetFilter(log),
		NewPriorityFilter(log),
	)
}

// FilterCDS runs every step of the pipeline in order and returns whatever
// content descriptor set (possibly nil) the last step produced.
func (p *Pipeline) FilterCDS(set *contentmodel.Set) *contentmodel.Set {
	current := set
	for _, f := range p.filters {
		if current == nil {
			break
		}
		p.log.Debug().
			Str("filter", f.Name()).
			Int("items", CountItems(current)).
			Msg("starting filter")

		current = f.FilterCDS(current)

		if current == nil {
			p.log.Debug().Str("filter", f.Name()).Msg("no eligible items remain")
			break
		}
		p.log.Debug().
			Str("filter", f.Name()).
			Int("items", CountItems(current)).
			Msg("filter done")
	}
	return current
}
