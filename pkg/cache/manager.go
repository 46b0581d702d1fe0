package cache

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/metrics"
)

// DefaultWorkerCount is the number of goroutines draining the caching
// queue, matching §4.5's default pool size.
const DefaultWorkerCount = 5

// RetryDelay is how long a CachingURLError parks an item before it is
// re-enqueued.
const RetryDelay = 5 * time.Minute

// job is one item queued to be cached.
type job struct {
	item *contentmodel.Item
	uri  string
}

// Manager drains an in-memory queue of items to cache with a pool of
// worker goroutines. The queue holds at most 4096 items; Enqueue blocks
// while it is full, until a worker takes an item or Stop is called. Each
// worker skips an item already cached or
// currently downloading, and re-enqueues after RetryDelay on a
// CachingURLError.
type Manager struct {
	cache   *Cache
	queue   chan job
	workers int
	log     zerolog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewManager wires a Manager around cache with the default worker count.
func NewManager(cache *Cache, logger zerolog.Logger) *Manager {
	return &Manager{
		cache:   cache,
		queue:   make(chan job, 4096),
		workers: DefaultWorkerCount,
		log:     logger.With().Str("component", "cache.manager").Logger(),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker pool.
func (m *Manager) Start() {
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
}

// Stop signals every worker to drain and return, and waits for them.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// Enqueue adds item to the caching queue if it isn't already cached or
// downloading.
func (m *Manager) Enqueue(item *contentmodel.Item, uri string) {
	if m.cache.IsCached(item, uri, false) || m.cache.Downloading(uri) {
		return
	}
	select {
	case m.queue <- job{item: item, uri: uri}:
		metrics.CacheQueueDepth.Inc()
	case <-m.stopCh:
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case j := <-m.queue:
			metrics.CacheQueueDepth.Dec()
			m.process(j)
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) process(j job) {
	if m.cache.Downloading(j.uri) || m.cache.IsCached(j.item, j.uri, false) {
		return
	}
	if !m.cache.NeedsCaching(j.item, j.uri) {
		return
	}

	timer := metrics.NewTimer()
	_, err := m.cache.Cache(j.item, j.uri, false)
	timer.ObserveDuration(metrics.CacheDownloadDuration)

	if err == nil {
		metrics.CacheDownloadsTotal.WithLabelValues("ok").Inc()
		return
	}

	if _, isURLErr := err.(*CachingURLError); isURLErr {
		metrics.CacheDownloadsTotal.WithLabelValues("retry").Inc()
		m.log.Warn().Err(err).Str("uri", j.uri).Msg("caching failed, retrying after backoff")
		time.AfterFunc(RetryDelay, func() { m.Enqueue(j.item, j.uri) })
		return
	}

	metrics.CacheDownloadsTotal.WithLabelValues("error").Inc()
	m.log.Error().Err(err).Str("uri", j.uri).Msg("caching failed with non-retryable error")
}
