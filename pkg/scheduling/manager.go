package scheduling

import (
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/contextstore"
	"github.com/cuemby/yarelycore/pkg/filter"
	"github.com/cuemby/yarelycore/pkg/lottery"
	"github.com/cuemby/yarelycore/pkg/metrics"
)

// Position identifies a slot on the display: the single main-content slot,
// or one of the two touch-overlay slots. The source keys these by an
// arbitrary hashable (0 for main content, a string for each overlay); here
// they're unified into one string-based type.
type Position string

const (
	PositionMain              Position = "main"
	PositionTouchButton       Position = "touch_interaction_button"
	PositionTouchAppSelection Position = "touch_interaction_app_selection"
)

const (
	// DefaultContentDuration is used when an item carries no
	// PreferredDurationConstraint.
	DefaultContentDuration = 15 * time.Second
	// NoItemRetryDelay is how soon item_scheduling reruns when the filtered
	// CDS is empty or the scheduler returned nothing to show.
	NoItemRetryDelay = 5 * time.Second
	// DisplayAdditionalKeepAlive pads the display-power keep-alive beyond
	// the item's own duration.
	DisplayAdditionalKeepAlive = 20 * time.Second
	// TouchAppSelectionTimeout is how long the touch-selection overlay
	// stays up before auto-hiding.
	TouchAppSelectionTimeout = 10 * time.Second
	// touchButtonContentType / touchAppSelectionContentType name the two
	// content types whose joint presence in a CDS turns on the touch
	// button overlay.
	touchButtonContentType       = "text/html; touch_button"
	touchAppSelectionContentType = "text/html; touch_app_selection"
	// numberOfItemsToSchedule matches the source's own scope: only ever one
	// item is requested per cycle.
	numberOfItemsToSchedule = 1
	// touchButtonLayoutWidth/Height and touchInputLayoutMargin size and
	// position the touch button overlay, tuned for a 1920x1080 display.
	touchButtonLayoutWidth  = 200
	touchButtonLayoutHeight = 130
	touchInputLayoutMargin  = 20
	displayResolutionWidth  = 1920
)

// Layout positions a renderer's window, in the "x_y_width_height" scheme
// the display manager's renderer subprocesses understand.
type Layout struct {
	X, Y, Width, Height int
	WindowLevelIncrease int
}

// Display is the subset of the Display Manager the Scheduling Manager
// drives: showing an item at a position, reading back what's currently
// active there, and tearing a position down.
type Display interface {
	DisplayItem(item *contentmodel.Item, layout *Layout, position Position)
	ActiveItem(position Position) (item *contentmodel.Item, since time.Time, ok bool)
	RemoveItem(position Position)
	RemoveItems()
}

// PowerController extends the display's keep-alive window so the screen
// doesn't blank or sleep while content is still due to be shown.
type PowerController interface {
	ExtendKeepAlive(d time.Duration)
}

// CacheQueue offers a content item's source URI up for caching;
// *cache.Manager satisfies this.
type CacheQueue interface {
	Enqueue(item *contentmodel.Item, uri string)
}

// PlatformFacade is pinged once per item-scheduling cycle, mirroring the
// source's idle/fullscreen watchdog call to the native platform layer. No
// implementation ships here -- that facade is out of scope -- but the
// Scheduling Manager still calls it every cycle if one is wired in.
type PlatformFacade interface {
	Ping()
}

// Manager is the Scheduling Manager (§4.9): it owns the current content
// descriptor set, narrows it through the filter pipeline, asks the lottery
// scheduler what to show next, and drives the Display Manager and the
// per-item reschedule timer.
type Manager struct {
	pipeline  *filter.Pipeline
	scheduler *lottery.Scheduler
	display   Display
	power     PowerController
	cacheMgr  CacheQueue
	store     *contextstore.Store
	platform  PlatformFacade
	log       zerolog.Logger

	updates chan *contentmodel.Set
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu  sync.Mutex
	cds *contentmodel.Set

	schedule serializer

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewManager wires a Manager around its collaborators. platform may be nil
// when no platform watchdog is available.
func NewManager(
	pipeline *filter.Pipeline,
	scheduler *lottery.Scheduler,
	display Display,
	power PowerController,
	cacheMgr CacheQueue,
	store *contextstore.Store,
	platform PlatformFacade,
	log zerolog.Logger,
) *Manager {
	return &Manager{
		pipeline:  pipeline,
		scheduler: scheduler,
		display:   display,
		power:     power,
		cacheMgr:  cacheMgr,
		store:     store,
		platform:  platform,
		log:       log.With().Str("component", "scheduling.manager").Logger(),
		updates:   make(chan *contentmodel.Set, 16),
		stopCh:    make(chan struct{}),
	}
}

// Enqueue forwards a freshly reassembled content descriptor set from the
// Context & Constraints parser. It implements contextstore.CDSQueue.
func (m *Manager) Enqueue(set *contentmodel.Set) {
	select {
	case m.updates <- set:
		metrics.SchedulingQueueDepth.Inc()
	case <-m.stopCh:
	}
}

// Start launches the main loop.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.run()
}

// Stop signals the main loop to exit and waits for it.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	m.stopTimer()
}

// run is the main loop: it drains updates and, for every CDS that differs
// from the one already in hand, re-caches, re-schedules, and re-checks the
// touch button overlay.
func (m *Manager) run() {
	defer m.wg.Done()
	for {
		select {
		case set := <-m.updates:
			metrics.SchedulingQueueDepth.Dec()
			if !m.update(set) {
				continue
			}
			m.cacheCDS(set)
			m.ItemScheduling()
			m.maybeInitTouchButton(set)
		case <-m.stopCh:
			return
		}
	}
}

// update replaces the stored CDS if it differs from set, reporting whether
// it did. Value equality (not pointer identity) is what matters here,
// since the filter pipeline and parser each produce their own tree copies.
func (m *Manager) update(set *contentmodel.Set) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reflect.DeepEqual(m.cds, set) {
		return false
	}
	m.cds = set
	return true
}

// cacheCDS offers every leaf item's first source URI to the cache queue.
func (m *Manager) cacheCDS(set *contentmodel.Set) {
	for _, item := range filter.Items(set) {
		for _, rf := range item.RequiresFiles {
			if len(rf.Sources) == 0 {
				continue
			}
			m.cacheMgr.Enqueue(item, rf.PrimaryURI())
		}
	}
}

// ItemScheduling runs item scheduling, serialized so at most one execution
// is in flight and at most one rerun is queued behind it. It implements
// contextstore.Scheduler.
func (m *Manager) ItemScheduling() {
	m.schedule.run(m.itemScheduling)
}

// itemScheduling is the nine-step selection algorithm (§4.9): cancel any
// pending timer, filter, ask the lottery scheduler for a winner, and either
// keep showing the active item or present the new one -- always rescheduling
// itself before returning.
func (m *Manager) itemScheduling() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SchedulingCycleDuration)

	if m.platform != nil {
		m.platform.Ping()
	}

	m.stopTimer()

	m.mu.Lock()
	cds := m.cds
	m.mu.Unlock()

	filtered := m.pipeline.FilterCDS(cds)
	if filtered == nil {
		m.display.RemoveItems()
		m.rescheduleAfter(NoItemRetryDelay)
		return
	}

	winners := m.scheduler.GetItemsToSchedule(filtered, numberOfItemsToSchedule)
	if len(winners) == 0 {
		m.rescheduleAfter(NoItemRetryDelay)
		return
	}
	newItem := winners[0]
	duration := itemDuration(newItem)

	m.power.ExtendKeepAlive(duration + DisplayAdditionalKeepAlive)

	if activeItem, activeSince, ok := m.display.ActiveItem(PositionMain); ok && sameItem(activeItem, newItem) {
		if !hasPreferredDuration(newItem) {
			m.reportPageview(activeItem)
			m.rescheduleAfter(DefaultContentDuration)
			return
		}

		remaining := duration - time.Since(activeSince)
		if remaining > 0 {
			m.rescheduleAfter(remaining)
			return
		}
		// Duration elapsed: fall through and re-present the same item.
	}

	m.display.DisplayItem(newItem, nil, PositionMain)
	m.rescheduleAfter(duration)
}

// maybeInitTouchButton (re)shows the touch button overlay if set carries
// both required touch content items and the overlay isn't already up.
func (m *Manager) maybeInitTouchButton(set *contentmodel.Set) {
	if set == nil {
		return
	}
	if active, _, ok := m.display.ActiveItem(PositionTouchButton); ok && active != nil {
		return
	}

	button := itemByContentType(set, touchButtonContentType)
	appSelection := itemByContentType(set, touchAppSelectionContentType)
	if button == nil || appSelection == nil {
		return
	}

	layoutWidth, layoutHeight := touchButtonLayoutWidth, touchButtonLayoutHeight
	layout := &Layout{
		X:                   displayResolutionWidth - layoutWidth - touchInputLayoutMargin,
		Y:                   touchInputLayoutMargin,
		Width:               layoutWidth,
		Height:              layoutHeight,
		WindowLevelIncrease: 1,
	}
	m.display.DisplayItem(button, layout, PositionTouchButton)
}

// InitiateTouchSelection shows the touch app-selection overlay, above the
// touch button, auto-hiding after TouchAppSelectionTimeout. It implements
// contextstore.TouchSelector.
func (m *Manager) InitiateTouchSelection() {
	m.mu.Lock()
	set := m.cds
	m.mu.Unlock()

	appSelection := itemByContentType(set, touchAppSelectionContentType)
	if appSelection == nil {
		return
	}

	layoutWidth := displayResolutionWidth - touchInputLayoutMargin*2
	layout := &Layout{
		X:                   displayResolutionWidth - layoutWidth - touchInputLayoutMargin,
		Y:                   touchInputLayoutMargin,
		Width:               layoutWidth,
		Height:              touchButtonLayoutHeight,
		WindowLevelIncrease: 2,
	}
	m.display.DisplayItem(appSelection, layout, PositionTouchAppSelection)

	time.AfterFunc(TouchAppSelectionTimeout, func() {
		m.display.RemoveItem(PositionTouchAppSelection)
	})
}

// ReportPageview records a pageview for item in the context store. It
// satisfies pkg/display's PageviewReporter interface, so the Display
// Manager can report a pageview once a renderer's fade-in completes
// without holding a reference back to *Manager's private state.
func (m *Manager) ReportPageview(item *contentmodel.Item) {
	m.reportPageview(item)
}

// reportPageview records a pageview for item in the context store, so the
// recency-based lottery allocator and any other consumer can see it.
func (m *Manager) reportPageview(item *contentmodel.Item) {
	if item == nil {
		return
	}
	if _, err := m.store.AddContext(contextstore.TypePageview, item.RawXML); err != nil {
		m.log.Warn().Err(err).Msg("failed to record pageview")
	}
}

func (m *Manager) rescheduleAfter(d time.Duration) {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	m.timer = time.AfterFunc(d, m.ItemScheduling)
}

func (m *Manager) stopTimer() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
}

// sameItem compares by RawXML, since the filter pipeline deep-copies the
// tree on every run and invalidates pointer identity between cycles.
func sameItem(a, b *contentmodel.Item) bool {
	if a == nil || b == nil {
		return false
	}
	return a.RawXML == b.RawXML
}

func hasPreferredDuration(item *contentmodel.Item) bool {
	for _, c := range item.ConstraintSet {
		if _, ok := c.(contentmodel.PreferredDurationConstraint); ok {
			return true
		}
	}
	return false
}

func itemDuration(item *contentmodel.Item) time.Duration {
	for _, c := range item.ConstraintSet {
		if pd, ok := c.(contentmodel.PreferredDurationConstraint); ok {
			return time.Duration(pd.Seconds * float64(time.Second))
		}
	}
	return DefaultContentDuration
}

func itemByContentType(n contentmodel.Node, contentType string) *contentmodel.Item {
	for _, item := range filter.Items(n) {
		if item.ContentType == contentType {
			return item
		}
	}
	return nil
}
