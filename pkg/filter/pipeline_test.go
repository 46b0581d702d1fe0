package filter

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
)

type fixedResultFilter struct {
	name   string
	result *contentmodel.Set
	called bool
}

func (f *fixedResultFilter) Name() string { return f.name }

func (f *fixedResultFilter) FilterCDS(*contentmodel.Set) *contentmodel.Set {
	f.called = true
	return f.result
}

func TestPipeline_FeedsOneStepsOutputIntoTheNext(t *testing.T) {
	narrowed := &contentmodel.Set{Children: []contentmodel.Node{&contentmodel.Item{ContentType: "image/png"}}}
	step1 := &fixedResultFilter{name: "step1", result: narrowed}
	step2 := &fixedResultFilter{name: "step2", result: narrowed}

	p := NewPipeline(zerolog.Nop(), step1, step2)
	result := p.FilterCDS(&contentmodel.Set{})

	assert.True(t, step1.called)
	assert.True(t, step2.called)
	assert.Same(t, narrowed, result)
}

func TestPipeline_StopsEarlyWhenAStepEmptiesTheSet(t *testing.T) {
	step1 := &fixedResultFilter{name: "step1", result: nil}
	step2 := &fixedResultFilter{name: "step2", result: &contentmodel.Set{}}

	p := NewPipeline(zerolog.Nop(), step1, step2)
	result := p.FilterCDS(&contentmodel.Set{})

	assert.True(t, step1.called)
	assert.False(t, step2.called, "a later step must not run once the set is empty")
	assert.Nil(t, result)
}

func TestNewDefaultPipeline_RunsAllSixFiltersInOrder(t *testing.T) {
	store := newContextStoreForTest(t)
	c := newTestCache(t)

	p := NewDefaultPipeline(store, c, zerolog.Nop())
	require.Len(t, p.filters, 6)

	names := make([]string, len(p.filters))
	for i, f := range p.filters {
		names[i] = f.Name()
	}
	assert.Equal(t, []string{
		"TouchInputFilter", "ContentTypeFilter", "CacheFilter",
		"TacitaFilter", "ConstraintsAreMetFilter", "PriorityFilter",
	}, names)
}
