package filter

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/contextstore"
)

// TacitaContentTriggerThreshold bounds how stale a recorded content
// trigger can be and still drive personalization.
const TacitaContentTriggerThreshold = 30 * time.Second

// TacitaFilter narrows the CDS to whatever content a recent personalized
// content trigger requested, provided that content was actually offered
// in this CDS. Unlike TouchInputFilter's exact-XML match, a content
// trigger is matched by source URI prefix (the trigger names a URI or
// URI family, not one exact serialized item).
type TacitaFilter struct {
	store     *contextstore.Store
	threshold time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewTacitaFilter builds a TacitaFilter reading recent content triggers
// from store.
func NewTacitaFilter(store *contextstore.Store, log zerolog.Logger) *TacitaFilter {
	return &TacitaFilter{store: store, threshold: TacitaContentTriggerThreshold, now: time.Now, log: log}
}

func (f *TacitaFilter) Name() string { return "TacitaFilter" }

func (f *TacitaFilter) FilterCDS(set *contentmodel.Set) *contentmodel.Set {
	requested := f.requestedSourceURIs()
	if len(requested) == 0 {
		return set
	}

	filtered := PruneDepthFirst(set, func(item *contentmodel.Item, _ []contentmodel.Constraint) bool {
		return matchesAnyURIPrefix(item, requested)
	})
	if filtered == nil {
		f.log.Info().Msg("content trigger not part of original CDS, ignoring it")
		return set
	}
	return filtered
}

func matchesAnyURIPrefix(item *contentmodel.Item, requested map[string]bool) bool {
	for _, rf := range item.RequiresFiles {
		if len(rf.Sources) == 0 {
			continue
		}
		uri := rf.Sources[0].URI
		for want := range requested {
			if strings.HasPrefix(uri, want) {
				return true
			}
		}
	}
	return false
}

// requestedSourceURIs returns the first source URI of every requires-file
// named by the most recent content trigger within the threshold,
// recursing into a recorded content-set's leaves if the trigger wasn't a
// bare content-item.
func (f *TacitaFilter) requestedSourceURIs() map[string]bool {
	records, err := f.store.GetLatestByType(contextstore.TypeContentTrigger, 1)
	if err != nil || len(records) == 0 {
		return nil
	}
	rec := records[0]
	if f.now().Sub(rec.Created) > f.threshold {
		return nil
	}
	return sourceURIsFromXML(rec.ContentItemXML)
}

func sourceURIsFromXML(raw string) map[string]bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	collect := func(items []*contentmodel.Item) map[string]bool {
		out := make(map[string]bool)
		for _, item := range items {
			for _, rf := range item.RequiresFiles {
				if len(rf.Sources) > 0 {
					out[rf.Sources[0].URI] = true
				}
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	if item, err := contentmodel.ParseContentItem(raw); err == nil {
		return collect([]*contentmodel.Item{item})
	}
	if set, err := contentmodel.ParseCDS(raw); err == nil {
		return collect(Items(set))
	}
	return nil
}
