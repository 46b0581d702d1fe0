package scheduling

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/contextstore"
	"github.com/cuemby/yarelycore/pkg/filter"
	"github.com/cuemby/yarelycore/pkg/lottery"
)

type fakeDisplay struct {
	mu       sync.Mutex
	active   map[Position]*contentmodel.Item
	since    map[Position]time.Time
	shown    []*contentmodel.Item
	removed  []Position
	removeAll int
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{active: map[Position]*contentmodel.Item{}, since: map[Position]time.Time{}}
}

func (d *fakeDisplay) DisplayItem(item *contentmodel.Item, layout *Layout, position Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active[position] = item
	d.since[position] = time.Now()
	d.shown = append(d.shown, item)
}

func (d *fakeDisplay) ActiveItem(position Position) (*contentmodel.Item, time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	item, ok := d.active[position]
	if !ok {
		return nil, time.Time{}, false
	}
	return item, d.since[position], true
}

func (d *fakeDisplay) RemoveItem(position Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.active, position)
	d.removed = append(d.removed, position)
}

func (d *fakeDisplay) RemoveItems() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = map[Position]*contentmodel.Item{}
	d.removeAll++
}

type fakePower struct {
	mu        sync.Mutex
	extendedBy []time.Duration
}

func (p *fakePower) ExtendKeepAlive(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extendedBy = append(p.extendedBy, d)
}

type fakeCacheQueue struct {
	mu       sync.Mutex
	enqueued []string
}

func (c *fakeCacheQueue) Enqueue(item *contentmodel.Item, uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enqueued = append(c.enqueued, uri)
}

func newTestManager(t *testing.T) (*Manager, *fakeDisplay, *fakePower, *fakeCacheQueue) {
	t.Helper()
	store, err := contextstore.NewStore(t.TempDir() + "/context.db")
	require.NoError(t, err)

	pipeline := filter.NewPipeline(zerolog.Nop())
	scheduler := lottery.NewScheduler(zerolog.Nop(), DefaultContentDuration)
	display := newFakeDisplay()
	power := &fakePower{}
	cacheQueue := &fakeCacheQueue{}

	m := NewManager(pipeline, scheduler, display, power, cacheQueue, store, nil, zerolog.Nop())
	return m, display, power, cacheQueue
}

func itemWithDuration(id string, seconds float64) *contentmodel.Item {
	item := &contentmodel.Item{
		ContentType: "image/png",
		RawXML:      `<content-item id="` + id + `"/>`,
	}
	if seconds > 0 {
		item.ConstraintSet = []contentmodel.Constraint{contentmodel.PreferredDurationConstraint{Seconds: seconds}}
	}
	return item
}

func TestManager_UpdateDedupesByValueNotPointer(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	setA := &contentmodel.Set{Children: []contentmodel.Node{itemWithDuration("1", 3)}}
	setB := &contentmodel.Set{Children: []contentmodel.Node{itemWithDuration("1", 3)}}

	assert.True(t, m.update(setA))
	assert.False(t, m.update(setB))
}

func TestManager_ItemSchedulingRemovesEverythingWhenCdsIsEmpty(t *testing.T) {
	m, display, _, _ := newTestManager(t)
	m.mu.Lock()
	m.cds = &contentmodel.Set{}
	m.mu.Unlock()

	m.itemScheduling()

	assert.Equal(t, 1, display.removeAll)
}

func TestManager_ItemSchedulingDisplaysTheWinningItem(t *testing.T) {
	m, display, power, _ := newTestManager(t)
	item := itemWithDuration("1", 5)
	m.mu.Lock()
	m.cds = &contentmodel.Set{Children: []contentmodel.Node{item}}
	m.mu.Unlock()

	m.itemScheduling()

	require.Len(t, display.shown, 1)
	assert.Equal(t, item, display.shown[0])
	require.Len(t, power.extendedBy, 1)
	assert.Equal(t, 5*time.Second+DisplayAdditionalKeepAlive, power.extendedBy[0])
}

func TestManager_ItemSchedulingKeepsShowingTheSameItemWhileTimeRemains(t *testing.T) {
	m, display, _, _ := newTestManager(t)
	item := itemWithDuration("1", 30)
	display.active[PositionMain] = item
	display.since[PositionMain] = time.Now()

	m.mu.Lock()
	m.cds = &contentmodel.Set{Children: []contentmodel.Node{item}}
	m.mu.Unlock()

	m.itemScheduling()

	assert.Empty(t, display.shown, "should not re-present an item that still has time left")
}

func TestManager_ItemSchedulingRepresentsTheSameItemOnceItsTimeExpires(t *testing.T) {
	m, display, _, _ := newTestManager(t)
	item := itemWithDuration("1", 1)
	display.active[PositionMain] = item
	display.since[PositionMain] = time.Now().Add(-2 * time.Second)

	m.mu.Lock()
	m.cds = &contentmodel.Set{Children: []contentmodel.Node{item}}
	m.mu.Unlock()

	m.itemScheduling()

	require.Len(t, display.shown, 1)
	assert.Equal(t, item, display.shown[0])
}

func TestManager_ItemSchedulingReportsAPageviewForAnItemWithNoDuration(t *testing.T) {
	m, display, _, _ := newTestManager(t)
	item := itemWithDuration("1", 0)
	display.active[PositionMain] = item
	display.since[PositionMain] = time.Now()

	m.mu.Lock()
	m.cds = &contentmodel.Set{Children: []contentmodel.Node{item}}
	m.mu.Unlock()

	m.itemScheduling()

	assert.Empty(t, display.shown)
	records, err := m.store.GetLatestByType(contextstore.TypePageview, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, item.RawXML, records[0].ContentItemXML)
}

func TestManager_CacheCdsEnqueuesEveryItemsSourceUri(t *testing.T) {
	m, _, _, cacheQueue := newTestManager(t)
	item := &contentmodel.Item{
		ContentType:   "image/png",
		RequiresFiles: []contentmodel.RequiresFile{{Sources: []contentmodel.Source{{URI: "http://example.com/a.png"}}}},
	}
	set := &contentmodel.Set{Children: []contentmodel.Node{item}}

	m.cacheCDS(set)

	assert.Equal(t, []string{"http://example.com/a.png"}, cacheQueue.enqueued)
}

func TestManager_MaybeInitTouchButtonOnlyFiresWhenBothTouchItemsArePresent(t *testing.T) {
	m, display, _, _ := newTestManager(t)
	button := &contentmodel.Item{ContentType: touchButtonContentType}
	set := &contentmodel.Set{Children: []contentmodel.Node{button}}

	m.maybeInitTouchButton(set)
	assert.Empty(t, display.shown)

	appSelection := &contentmodel.Item{ContentType: touchAppSelectionContentType}
	set.Children = append(set.Children, appSelection)

	m.maybeInitTouchButton(set)
	require.Len(t, display.shown, 1)
	assert.Same(t, button, display.shown[0])
}

func TestSerializer_DropsExcessConcurrentCallersAndRunsOneQueuedRerun(t *testing.T) {
	var s serializer
	var mu sync.Mutex
	var runs int
	release := make(chan struct{})
	started := make(chan struct{}, 10)

	fn := func() {
		started <- struct{}{}
		<-release
		mu.Lock()
		runs++
		mu.Unlock()
	}

	s.run(fn)
	<-started // first execution is in flight

	// Three more callers arrive while the first is running: only one
	// rerun should end up queued, the rest discarded.
	s.run(fn)
	s.run(fn)
	s.run(fn)

	release <- struct{}{} // let the first execution finish
	<-started             // the queued rerun starts
	release <- struct{}{} // let it finish too

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, runs)
}
