package filter

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/yarelycore/pkg/cache"
	"github.com/cuemby/yarelycore/pkg/contentmodel"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(t.TempDir(), cache.DefaultContentTypes())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestContentTypeFilter_DropsUnsupportedTypes(t *testing.T) {
	c := newTestCache(t)
	f := NewContentTypeFilter(c, zerolog.Nop())

	set := &contentmodel.Set{
		Children: []contentmodel.Node{
			&contentmodel.Item{ContentType: "image/png"},
			&contentmodel.Item{ContentType: "application/x-unknown"},
		},
	}

	filtered := f.FilterCDS(set)
	require.NotNil(t, filtered)
	items := Items(filtered)
	require.Len(t, items, 1)
	assert.Equal(t, "image/png", items[0].ContentType)
}

func TestContentTypeFilter_AllUnsupportedYieldsNil(t *testing.T) {
	c := newTestCache(t)
	f := NewContentTypeFilter(c, zerolog.Nop())

	set := &contentmodel.Set{
		Children: []contentmodel.Node{
			&contentmodel.Item{ContentType: "application/x-unknown"},
		},
	}

	assert.Nil(t, f.FilterCDS(set))
}
