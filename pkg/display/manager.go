package display

import (
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/cache"
	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/metrics"
	"github.com/cuemby/yarelycore/pkg/scheduling"
	"github.com/cuemby/yarelycore/pkg/token"
	"github.com/cuemby/yarelycore/pkg/xmlwire"
)

// FadingAnimationDuration is how long a newly-loaded renderer's window is
// given to fade in before it's marked visible and its predecessor at the
// same position is torn down.
const FadingAnimationDuration = 2500 * time.Millisecond

// RendererKillTimeout bounds how long a SIGTERM'd renderer has to exit
// before it is sent SIGKILL, mirroring pkg/procmanager's KillTermTimeout.
const RendererKillTimeout = 5 * time.Second

// rendererModuleNamespace prefixes the renderer handler module name (e.g.
// "image", "video", "web") to form the fully qualified module the starter
// script is told to run.
const rendererModuleNamespace = "yarely.content.rendering.handlers."

// ErrRendererUnavailable is returned when a content item has no usable
// source URI, or needs a local cached copy that isn't there yet.
var ErrRendererUnavailable = errors.New("display: no renderable source available for item")

// Spawner starts a renderer subprocess and returns its *exec.Cmd once
// running. The default implementation runs binary via os/exec; tests
// substitute a fake.
type Spawner func(binary string, args []string) (*exec.Cmd, error)

func defaultSpawner(binary string, args []string) (*exec.Cmd, error) {
	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// SchedulingTrigger re-runs item selection after a renderer fails to
// prepare its content, without Manager holding a direct reference back to
// *scheduling.Manager (the cyclic-ownership redesign note, spec.md §9).
type SchedulingTrigger interface {
	ItemScheduling()
}

// PageviewReporter records that an item became visible on screen.
type PageviewReporter interface {
	ReportPageview(item *contentmodel.Item)
}

// renderer tracks one spawned renderer subprocess: the position and item
// it was started for, its registration/visibility state, and the process
// itself.
type renderer struct {
	id          string
	spawnToken  string
	position    scheduling.Position
	item        *contentmodel.Item
	cmd         *exec.Cmd
	params      xmlwire.ParamsBody
	registered  bool
	visible     bool
	activeSince time.Time
}

// Manager is the Display Manager (§4.10): it maintains a renderers
// dictionary keyed by renderer-uuid, starting, registering, and fading
// between renderer subprocesses per position.
type Manager struct {
	starterPath  string
	rendererAddr string
	spawn        Spawner
	cache        *cache.Cache
	tokens       *token.Manager
	trigger      SchedulingTrigger
	pageviews    PageviewReporter
	log          zerolog.Logger

	mu           sync.RWMutex
	renderers    map[string]*renderer // by renderer uuid
	bySpawnToken map[string]*renderer

	bus *xmlwire.Bus
}

// NewManager builds a Manager. starterPath is the module-starter script
// every renderer subprocess is launched through; rendererAddr is the RPC
// address renderers are told to dial back to.
func NewManager(
	starterPath, rendererAddr string,
	spawn Spawner,
	c *cache.Cache,
	trigger SchedulingTrigger,
	pageviews PageviewReporter,
	log zerolog.Logger,
) *Manager {
	if spawn == nil {
		spawn = defaultSpawner
	}
	return &Manager{
		starterPath:  starterPath,
		rendererAddr: rendererAddr,
		spawn:        spawn,
		cache:        c,
		tokens:       token.NewManager(),
		trigger:      trigger,
		pageviews:    pageviews,
		log:          log.With().Str("component", "display.manager").Logger(),
		renderers:    make(map[string]*renderer),
		bySpawnToken: make(map[string]*renderer),
	}
}

// Start binds the renderer reply endpoint (§6's fixed renderer RPC port)
// and begins serving register/finished_loading/preparation_failed
// requests in the background.
func (m *Manager) Start(addr string) error {
	bus, err := xmlwire.Listen(addr, m.handleRequest, m.log)
	if err != nil {
		return err
	}
	m.bus = bus
	return nil
}

// Stop shuts down the reply endpoint and tears down every renderer.
func (m *Manager) Stop() {
	if m.bus != nil {
		m.bus.Stop()
	}
	m.RemoveItems()
}

func (m *Manager) handleRequest(req xmlwire.Request) xmlwire.Reply {
	switch {
	case req.Register != nil:
		return m.handleRegister(req.Register)
	case req.FinishedLoading != nil:
		return m.handleFinishedLoading(req.FinishedLoading)
	case req.PreparationFailed != nil:
		return m.handlePreparationFailed(req.PreparationFailed)
	default:
		return xmlwire.Reply{Error: &xmlwire.ErrorBody{Message: "unrecognized renderer request"}}
	}
}

// DisplayItem implements scheduling.Display. If item is already the
// visible one at position and its content type's renderer doesn't need
// restarting, this is a no-op; otherwise a new renderer is spawned in the
// background and replaces whatever was there once it finishes loading.
func (m *Manager) DisplayItem(item *contentmodel.Item, layout *scheduling.Layout, position scheduling.Position) {
	if item == nil {
		return
	}
	info, ok := m.cache.Resolve(item.ContentType)
	if !ok {
		metrics.RendererFailuresTotal.WithLabelValues("unknown_content_type").Inc()
		m.log.Error().Str("content_type", item.ContentType).Msg("no renderer registered for content type")
		return
	}

	if active, _, ok := m.ActiveItem(position); ok && sameItem(active, item) && !info.RestartRenderer {
		m.log.Debug().Str("position", string(position)).Msg("item already at position, leaving it")
		return
	}

	go m.startRenderer(item, layout, position, info)
}

func (m *Manager) startRenderer(item *contentmodel.Item, layout *scheduling.Layout, position scheduling.Position, info cache.ContentTypeInfo) {
	uri, err := m.resolveURI(item, info)
	if err != nil {
		metrics.RendererFailuresTotal.WithLabelValues("resolve").Inc()
		m.log.Error().Err(err).Str("content_type", item.ContentType).Msg("failed to resolve renderer source")
		return
	}

	spawnToken, err := m.tokens.IssueSpawnToken()
	if err != nil {
		m.log.Error().Err(err).Msg("failed to issue renderer spawn token")
		return
	}

	id := uuid.NewString()
	module := rendererModuleNamespace + info.Module
	args := []string{"-m", module, "--uuid", id, m.rendererAddr}

	cmd, err := m.spawn(m.starterPath, args)
	if err != nil {
		metrics.RendererFailuresTotal.WithLabelValues("spawn").Inc()
		m.log.Error().Err(err).Str("module", module).Msg("failed to spawn renderer")
		return
	}
	metrics.RendererStartsTotal.Inc()

	rec := &renderer{
		id:         id,
		spawnToken: spawnToken,
		position:   position,
		item:       item,
		cmd:        cmd,
		params:     rendererParams(info, uri, layout),
	}

	m.mu.Lock()
	m.renderers[id] = rec
	m.bySpawnToken[spawnToken] = rec
	metrics.RenderersTotal.WithLabelValues("pending").Inc()
	m.mu.Unlock()
}

func rendererParams(info cache.ContentTypeInfo, uri string, layout *scheduling.Layout) xmlwire.ParamsBody {
	settings := []xmlwire.KeyValue{{Key: info.ParamType, Value: uri}}
	if layout != nil {
		settings = append(settings,
			xmlwire.KeyValue{Key: "layout_style", Value: "x_y_width_height"},
			xmlwire.KeyValue{Key: "layout_x", Value: strconv.Itoa(layout.X)},
			xmlwire.KeyValue{Key: "layout_y", Value: strconv.Itoa(layout.Y)},
			xmlwire.KeyValue{Key: "layout_width", Value: strconv.Itoa(layout.Width)},
			xmlwire.KeyValue{Key: "layout_height", Value: strconv.Itoa(layout.Height)},
		)
		if layout.WindowLevelIncrease != 0 {
			settings = append(settings, xmlwire.KeyValue{
				Key: "layout_window_level_increase", Value: strconv.Itoa(layout.WindowLevelIncrease),
			})
		}
	}
	return xmlwire.ParamsBody{Settings: settings}
}

// resolveURI finds the URI to hand a renderer: the cached local path if
// the content type precaches (raising ErrRendererUnavailable if that
// cached copy isn't there), converted to a file:// URI if the renderer
// wants a URI rather than a path.
func (m *Manager) resolveURI(item *contentmodel.Item, info cache.ContentTypeInfo) (string, error) {
	if len(item.RequiresFiles) == 0 || len(item.RequiresFiles[0].Sources) == 0 {
		return "", ErrRendererUnavailable
	}
	uri := item.RequiresFiles[0].PrimaryURI()

	if info.Precache {
		if !m.cache.IsCached(item, uri, false) {
			return "", ErrRendererUnavailable
		}
		uri = m.cache.LocalPath(uri)
	}

	if info.ParamType == "uri" && !hasKnownScheme(uri) {
		uri = "file://" + uri
	}
	return uri, nil
}

func hasKnownScheme(uri string) bool {
	for _, scheme := range []string{"http", "udp", "file", "rtmp"} {
		if strings.HasPrefix(uri, scheme) {
			return true
		}
	}
	return false
}

// handleRegister authenticates a renderer's one-off spawn token, marks it
// registered, and replies with its rotating token and bootstrap params.
// An unrecognized spawn token is logged as a possible spoof attempt and
// rejected, matching pkg/procmanager's handling of the same case.
func (m *Manager) handleRegister(body *xmlwire.RegisterBody) xmlwire.Reply {
	current, err := m.tokens.Register(body.SpawnToken)
	if err != nil {
		m.log.Warn().Msg("renderer register with unknown spawn token, possible spoof attempt")
		return xmlwire.Reply{Error: &xmlwire.ErrorBody{Message: "unknown spawn token"}}
	}

	m.mu.Lock()
	rec, ok := m.bySpawnToken[body.SpawnToken]
	if ok {
		rec.registered = true
		delete(m.bySpawnToken, body.SpawnToken)
	}
	m.mu.Unlock()
	if !ok {
		return xmlwire.Reply{Error: &xmlwire.ErrorBody{Message: "no pending renderer for spawn token"}}
	}

	params := rec.params
	params.Token = current
	return xmlwire.Reply{Params: &params}
}

// handleFinishedLoading schedules the renderer's fade-in: after
// FadingAnimationDuration it becomes the visible renderer at its
// position (stopping whatever else was registered there) and a pageview
// is reported for its item.
func (m *Manager) handleFinishedLoading(ref *xmlwire.RendererRef) xmlwire.Reply {
	m.mu.RLock()
	rec, ok := m.renderers[ref.RendererUUID]
	m.mu.RUnlock()
	if !ok {
		m.log.Warn().Str("renderer_uuid", ref.RendererUUID).Msg("finished_loading from unknown renderer")
		return xmlwire.Reply{Ack: &xmlwire.AckBody{}}
	}

	time.AfterFunc(FadingAnimationDuration, func() {
		m.makeVisible(rec)
		if m.pageviews != nil {
			m.pageviews.ReportPageview(rec.item)
		}
	})
	return xmlwire.Reply{Ack: &xmlwire.AckBody{}}
}

// makeVisible marks rec visible and stops/removes every other registered
// renderer at the same position, matching _set_renderer_visible's
// single-visible-renderer-per-position invariant.
func (m *Manager) makeVisible(rec *renderer) {
	m.mu.Lock()
	rec.visible = true
	rec.activeSince = time.Now()
	metrics.RenderersTotal.WithLabelValues("pending").Dec()
	metrics.RenderersTotal.WithLabelValues("visible").Inc()

	var toStop []*renderer
	for id, other := range m.renderers {
		if other == rec || other.position != rec.position || !other.registered {
			continue
		}
		toStop = append(toStop, other)
		delete(m.renderers, id)
	}
	m.mu.Unlock()

	for _, other := range toStop {
		metrics.RenderersTotal.WithLabelValues("visible").Dec()
		m.stopRenderer(other)
	}
}

// handlePreparationFailed stops and drops the failed renderer and
// triggers a fresh round of item scheduling so another item gets a
// chance, per spec.md §4.10.
func (m *Manager) handlePreparationFailed(ref *xmlwire.RendererRef) xmlwire.Reply {
	m.mu.Lock()
	rec, ok := m.renderers[ref.RendererUUID]
	if ok {
		delete(m.renderers, ref.RendererUUID)
	}
	m.mu.Unlock()

	if ok {
		m.log.Error().Str("renderer_uuid", ref.RendererUUID).Msg("renderer failed to prepare content")
		metrics.RendererFailuresTotal.WithLabelValues("preparation").Inc()
		m.stopRenderer(rec)
	}
	if m.trigger != nil {
		go m.trigger.ItemScheduling()
	}
	return xmlwire.Reply{Ack: &xmlwire.AckBody{}}
}

// ActiveItem implements scheduling.Display.
func (m *Manager) ActiveItem(position scheduling.Position) (*contentmodel.Item, time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.renderers {
		if r.position == position && r.visible {
			return r.item, r.activeSince, true
		}
	}
	return nil, time.Time{}, false
}

// RemoveItem implements scheduling.Display: it stops every renderer at
// position, visible or not.
func (m *Manager) RemoveItem(position scheduling.Position) {
	m.mu.Lock()
	var toStop []*renderer
	for id, r := range m.renderers {
		if r.position == position {
			toStop = append(toStop, r)
			delete(m.renderers, id)
		}
	}
	m.mu.Unlock()

	for _, r := range toStop {
		if r.visible {
			metrics.RenderersTotal.WithLabelValues("visible").Dec()
		} else {
			metrics.RenderersTotal.WithLabelValues("pending").Dec()
		}
		m.stopRenderer(r)
	}
}

// RemoveItems implements scheduling.Display: it tears down every tracked
// renderer at every position.
func (m *Manager) RemoveItems() {
	m.mu.Lock()
	all := make([]*renderer, 0, len(m.renderers))
	for _, r := range m.renderers {
		all = append(all, r)
	}
	m.renderers = make(map[string]*renderer)
	m.bySpawnToken = make(map[string]*renderer)
	m.mu.Unlock()

	for _, r := range all {
		if r.visible {
			metrics.RenderersTotal.WithLabelValues("visible").Dec()
		} else {
			metrics.RenderersTotal.WithLabelValues("pending").Dec()
		}
		m.stopRenderer(r)
	}
}

// stopRenderer SIGTERMs rec's subprocess, escalating to SIGKILL if it
// hasn't exited within RendererKillTimeout.
func (m *Manager) stopRenderer(rec *renderer) {
	if rec.cmd == nil || rec.cmd.Process == nil {
		return
	}
	go func() {
		_ = rec.cmd.Process.Signal(syscall.SIGTERM)

		exited := make(chan struct{})
		go func() {
			_ = rec.cmd.Wait()
			close(exited)
		}()

		select {
		case <-exited:
			return
		case <-time.After(RendererKillTimeout):
		}

		_ = rec.cmd.Process.Signal(syscall.SIGKILL)
	}()
}

func sameItem(a, b *contentmodel.Item) bool {
	if a == nil || b == nil {
		return false
	}
	return a.RawXML == b.RawXML
}
