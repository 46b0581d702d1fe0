package procmanager

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/metrics"
	"github.com/cuemby/yarelycore/pkg/token"
)

const (
	// SubprocessCheckInterval is the sweep tick rate for erroneous-state
	// detection.
	SubprocessCheckInterval = 500 * time.Millisecond
	// RegistrationTimeout bounds how long a spawned subprocess has to
	// register before it's considered failed.
	RegistrationTimeout = 10 * time.Second
	// CheckinTimeout bounds how long a registered subprocess may go
	// without a ping before it's considered failed.
	CheckinTimeout = 5 * time.Second
	// RestartDelay is the pause before respawning a failed subprocess.
	RestartDelay = 2 * time.Second
	// FailedLimit is the consecutive-failure count that triggers a full
	// transport re-initialization rather than a plain restart.
	FailedLimit = 5
	// RestartSleep is the pause the Manager takes before resuming after a
	// full re-initialization.
	RestartSleep = 10 * time.Second
	// KillTermTimeout bounds how long a SIGTERM'd subprocess has to exit
	// before it is sent SIGKILL.
	KillTermTimeout = 5 * time.Second
)

// Spawner starts argv and returns the *exec.Cmd once it's running, with
// its stderr written to stderr. The default implementation runs the
// binary named in the HandlerStub; tests substitute a fake.
type Spawner func(binary string, args []string, stderr io.Writer) (*exec.Cmd, error)

// Manager supervises a dictionary of HandlerStubs: for each registered
// kind it may run zero or more instances, each tracked by a
// SubprocessRecord, restarted on failure and torn down on request.
type Manager struct {
	registry   *Registry
	tokens     *token.Manager
	requestURL string
	spawn      Spawner
	log        zerolog.Logger

	mu          sync.Mutex
	records     map[string]*SubprocessRecord // by record ID
	bySpawn     map[string]string            // spawn token -> record ID
	byToken     map[string]string            // current token -> record ID
	failedCount int
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// New returns a Manager that spawns subprocesses via spawn (pass nil for
// the default os/exec-backed spawner) and authenticates them with
// requestURL as the ZMQ-style request address handed to each subprocess.
func New(registry *Registry, requestURL string, spawn Spawner, logger zerolog.Logger) *Manager {
	if spawn == nil {
		spawn = defaultSpawner
	}
	return &Manager{
		registry:   registry,
		tokens:     token.NewManager(),
		requestURL: requestURL,
		spawn:      spawn,
		log:        logger.With().Str("component", "procmanager").Logger(),
		records:    make(map[string]*SubprocessRecord),
		bySpawn:    make(map[string]string),
		byToken:    make(map[string]string),
		stopCh:     make(chan struct{}),
	}
}

func defaultSpawner(binary string, args []string, stderr io.Writer) (*exec.Cmd, error) {
	cmd := exec.Command(binary, args...)
	pipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	go func() {
		scanner := bufio.NewScanner(pipe)
		for scanner.Scan() {
			_, _ = stderr.Write(scanner.Bytes())
		}
	}()
	return cmd, nil
}

// StartInstance spawns one new instance of kind and returns its record
// ID. The caller's URI manager specialization calls this once per
// incoming URI; single-instance Managers call it once at startup.
func (m *Manager) StartInstance(kind string, extraArgs ...string) (string, error) {
	stub, err := m.registry.Lookup(kind)
	if err != nil {
		return "", err
	}

	spawnToken, err := m.tokens.IssueSpawnToken()
	if err != nil {
		return "", fmt.Errorf("procmanager: issue spawn token: %w", err)
	}

	binary, args := stub.Command(m.requestURL, spawnToken, extraArgs...)

	id := uuid.NewString()
	stderr := newStderrLogWriter(m.log, kind, id)
	cmd, err := m.spawn(binary, args, stderr)
	if err != nil {
		return "", fmt.Errorf("procmanager: spawn %s: %w", kind, err)
	}

	rec := newSubprocessRecord(id, kind, spawnToken, cmd, extraArgs)

	m.mu.Lock()
	m.records[id] = rec
	m.bySpawn[spawnToken] = id
	m.mu.Unlock()

	go m.awaitExit(rec)

	metrics.HandlersTotal.WithLabelValues(kind, StatePending.String()).Inc()
	m.log.Info().Str("kind", kind).Str("record_id", id).Msg("spawned handler subprocess")
	return id, nil
}

func (m *Manager) awaitExit(rec *SubprocessRecord) {
	err := rec.Cmd.Wait()
	rec.exitErr = err
	rec.exitedAt = time.Now()
	close(rec.exited)
}

// HandleRegister consumes spawnToken and, if it matches a pending
// record, mints a fresh rotating token and returns it with the stub's
// configured settings. An unknown spawn token is a spoof attempt: it is
// logged and rejected without reply content the caller can act on.
func (m *Manager) HandleRegister(spawnToken, kind string) (current string, settings map[string]string, err error) {
	m.mu.Lock()
	id, ok := m.bySpawn[spawnToken]
	m.mu.Unlock()
	if !ok {
		m.log.Warn().Str("kind", kind).Msg("register with unknown spawn token, possible spoof attempt")
		return "", nil, fmt.Errorf("procmanager: unknown spawn token")
	}

	current, err = m.tokens.Register(spawnToken)
	if err != nil {
		return "", nil, fmt.Errorf("procmanager: %w", err)
	}

	stub, err := m.registry.Lookup(kind)
	if err != nil {
		return "", nil, err
	}

	m.mu.Lock()
	rec := m.records[id]
	rec.Token = current
	rec.Registered = true
	rec.RegisteredAt = time.Now()
	delete(m.bySpawn, spawnToken)
	m.byToken[current] = id
	if m.failedCount > 0 {
		m.failedCount--
	}
	m.mu.Unlock()

	m.log.Info().Str("kind", kind).Str("record_id", id).Msg("handler registered")
	return current, stub.Settings, nil
}

// CheckToken reports whether currentToken is a live, registered token —
// the check_handler_token guard every non-register verb must pass.
func (m *Manager) CheckToken(currentToken string) bool {
	return m.tokens.Check(currentToken)
}

// RecordCheckin stamps the liveness time for the record owning
// currentToken, in response to a ping or any other authenticated verb.
func (m *Manager) RecordCheckin(currentToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byToken[currentToken]; ok {
		if rec, ok := m.records[id]; ok {
			rec.LastCheckin = time.Now()
		}
	}
}

// RunSweepLoop runs the erroneous-state detection sweep every
// SubprocessCheckInterval until Stop is called.
func (m *Manager) RunSweepLoop() {
	ticker := time.NewTicker(SubprocessCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) sweep() {
	now := time.Now()

	m.mu.Lock()
	var failed []*SubprocessRecord
	for _, rec := range m.records {
		if rec.erroneous(now, RegistrationTimeout, CheckinTimeout) {
			failed = append(failed, rec)
		}
	}
	m.mu.Unlock()

	for _, rec := range failed {
		m.handleFailure(rec)
	}
}

func (m *Manager) handleFailure(rec *SubprocessRecord) {
	m.log.Warn().Str("kind", rec.Kind).Str("record_id", rec.ID).Msg("handler entered erroneous state, stopping")
	m.stopRecord(rec)

	m.mu.Lock()
	delete(m.records, rec.ID)
	delete(m.bySpawn, rec.SpawnToken)
	delete(m.byToken, rec.Token)
	m.failedCount++
	count := m.failedCount
	m.mu.Unlock()

	metrics.HandlerRestartsTotal.WithLabelValues(rec.Kind, "erroneous_state").Inc()

	if count > FailedLimit {
		m.reinitialize()
		return
	}

	kind, extraArgs := rec.Kind, rec.ExtraArgs
	time.AfterFunc(RestartDelay, func() {
		if _, err := m.StartInstance(kind, extraArgs...); err != nil {
			m.log.Error().Err(err).Str("kind", kind).Msg("failed to restart handler")
		}
	})
}

// reinitialize tears down every tracked subprocess and resets
// failed-count to 0 after RestartSleep, mirroring the source's
// whole-transport re-init once the failure limit is exceeded.
func (m *Manager) reinitialize() {
	m.log.Error().Msg("failed-count exceeded limit, re-initializing transport")
	metrics.HandlerReinitsTotal.WithLabelValues("all").Inc()

	m.mu.Lock()
	all := make([]*SubprocessRecord, 0, len(m.records))
	for _, rec := range m.records {
		all = append(all, rec)
	}
	m.records = make(map[string]*SubprocessRecord)
	m.bySpawn = make(map[string]string)
	m.byToken = make(map[string]string)
	m.mu.Unlock()

	for _, rec := range all {
		m.stopRecord(rec)
	}

	time.Sleep(RestartSleep)

	m.mu.Lock()
	m.failedCount = 0
	m.mu.Unlock()
}

// stopRecord gracefully terminates rec: SIGTERM, wait KillTermTimeout, then
// SIGKILL if it's still alive.
func (m *Manager) stopRecord(rec *SubprocessRecord) {
	rec.ExplicitStop = true
	if rec.Cmd.Process == nil {
		return
	}

	_ = rec.Cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-rec.exited:
		return
	case <-time.After(KillTermTimeout):
	}

	_ = rec.Cmd.Process.Signal(syscall.SIGKILL)

	select {
	case <-rec.exited:
	case <-time.After(KillTermTimeout):
		m.log.Error().Str("record_id", rec.ID).Msg("handler still alive after SIGKILL")
	}
}

// StopAll stops every tracked subprocess and halts the sweep loop.
func (m *Manager) StopAll() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})

	m.mu.Lock()
	all := make([]*SubprocessRecord, 0, len(m.records))
	for _, rec := range m.records {
		all = append(all, rec)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, rec := range all {
		wg.Add(1)
		go func(r *SubprocessRecord) {
			defer wg.Done()
			m.stopRecord(r)
		}(rec)
	}
	wg.Wait()
}
