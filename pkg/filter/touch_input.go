package filter

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/contextstore"
)

// TouchInputTimeThreshold bounds how stale a recorded touch_input can be
// and still gate scheduling: older than this, it's ignored.
const TouchInputTimeThreshold = 5 * time.Second

// TouchInputFilter narrows the CDS down to whatever item a recent touch
// input requested, if that item was actually offered in the first
// place. With no recent touch input, or a touch target that isn't part
// of this CDS, the set passes through unchanged.
type TouchInputFilter struct {
	store     *contextstore.Store
	threshold time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewTouchInputFilter builds a TouchInputFilter reading recent touch
// input from store.
func NewTouchInputFilter(store *contextstore.Store, log zerolog.Logger) *TouchInputFilter {
	return &TouchInputFilter{store: store, threshold: TouchInputTimeThreshold, now: time.Now, log: log}
}

func (f *TouchInputFilter) Name() string { return "TouchInputFilter" }

func (f *TouchInputFilter) FilterCDS(set *contentmodel.Set) *contentmodel.Set {
	target := f.recentTouchItemXML()
	if target == "" {
		return set
	}
	target = normalizeXMLWhitespace(target)

	filtered := PruneDepthFirst(set, func(item *contentmodel.Item, _ []contentmodel.Constraint) bool {
		return normalizeXMLWhitespace(item.RawXML) == target
	})
	if filtered == nil {
		f.log.Info().Msg("touch input not part of original CDS, ignoring it")
		return set
	}
	return filtered
}

// normalizeXMLWhitespace collapses every run of whitespace to a single
// space and trims the ends, so a canonically re-marshaled item (the CDS
// leaf's RawXML) compares equal to the same element's verbatim wire text
// (the sensor's recorded touch target) despite differing insignificant
// whitespace between tags and attributes.
func normalizeXMLWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// recentTouchItemXML returns the raw XML of the item a touch input
// within the threshold requested, or "" if there isn't one. A recorded
// content-set (rather than a bare content-item) is unwrapped to its
// first leaf item, matching the source's "touch input is the set's
// first child" behavior.
func (f *TouchInputFilter) recentTouchItemXML() string {
	records, err := f.store.GetLatestByType(contextstore.TypeTouchInput, 1)
	if err != nil || len(records) == 0 {
		return ""
	}
	rec := records[0]
	if f.now().Sub(rec.Created) > f.threshold {
		return ""
	}
	return firstLeafXML(rec.ContentItemXML)
}

// firstLeafXML parses raw as a content-item (returning it verbatim) or a
// content-set (returning its first leaf item's raw XML). Empty or
// unparseable input yields "".
func firstLeafXML(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if item, err := contentmodel.ParseContentItem(raw); err == nil {
		return item.RawXML
	}
	if set, err := contentmodel.ParseCDS(raw); err == nil {
		if items := Items(set); len(items) > 0 {
			return items[0].RawXML
		}
	}
	return ""
}
