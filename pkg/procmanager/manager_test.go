package procmanager

import (
	"io"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSpawner spawns a real, short-lived sleep process so Cmd.Process and
// Cmd.Wait behave like a real subprocess without depending on any
// out-of-tree binary.
func fakeSpawner(sleepFor string) Spawner {
	return func(binary string, args []string, stderr io.Writer) (*exec.Cmd, error) {
		cmd := exec.Command("sleep", sleepFor)
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return cmd, nil
	}
}

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.Register(HandlerStub{Kind: "file", Binary: "file-handler", Settings: map[string]string{"refresh_rate": "300"}})
	return r
}

func TestManager_StartInstanceAndRegister(t *testing.T) {
	mgr := New(newTestRegistry(), "tcp://127.0.0.1:55345", fakeSpawner("5"), zerolog.Nop())
	defer mgr.StopAll()

	id, err := mgr.StartInstance("file")
	require.NoError(t, err)

	mgr.mu.Lock()
	rec := mgr.records[id]
	spawnToken := rec.SpawnToken
	mgr.mu.Unlock()
	require.NotEmpty(t, spawnToken)

	current, settings, err := mgr.HandleRegister(spawnToken, "file")
	require.NoError(t, err)
	assert.NotEmpty(t, current)
	assert.Equal(t, "300", settings["refresh_rate"])
	assert.True(t, mgr.CheckToken(current))
}

func TestManager_RegisterWithUnknownSpawnTokenFails(t *testing.T) {
	mgr := New(newTestRegistry(), "tcp://127.0.0.1:55345", fakeSpawner("5"), zerolog.Nop())
	defer mgr.StopAll()

	_, _, err := mgr.HandleRegister("not-a-real-token", "file")
	assert.Error(t, err)
}

func TestManager_SweepFailsUnregisteredPastRegistrationTimeout(t *testing.T) {
	mgr := New(newTestRegistry(), "tcp://127.0.0.1:55345", fakeSpawner("5"), zerolog.Nop())
	defer mgr.StopAll()

	id, err := mgr.StartInstance("file")
	require.NoError(t, err)

	mgr.mu.Lock()
	mgr.records[id].StartedAt = time.Now().Add(-2 * RegistrationTimeout)
	mgr.mu.Unlock()

	mgr.sweep()

	mgr.mu.Lock()
	_, stillTracked := mgr.records[id]
	failedCount := mgr.failedCount
	mgr.mu.Unlock()

	assert.False(t, stillTracked)
	assert.Equal(t, 1, failedCount)
}

func TestManager_SweepFailsOnStaleCheckin(t *testing.T) {
	mgr := New(newTestRegistry(), "tcp://127.0.0.1:55345", fakeSpawner("5"), zerolog.Nop())
	defer mgr.StopAll()

	id, err := mgr.StartInstance("file")
	require.NoError(t, err)

	mgr.mu.Lock()
	rec := mgr.records[id]
	rec.Registered = true
	rec.RegisteredAt = time.Now().Add(-2 * CheckinTimeout)
	rec.LastCheckin = rec.RegisteredAt
	mgr.mu.Unlock()

	mgr.sweep()

	mgr.mu.Lock()
	_, stillTracked := mgr.records[id]
	mgr.mu.Unlock()
	assert.False(t, stillTracked)
}

func TestManager_RecentCheckinIsNotErroneous(t *testing.T) {
	mgr := New(newTestRegistry(), "tcp://127.0.0.1:55345", fakeSpawner("5"), zerolog.Nop())
	defer mgr.StopAll()

	id, err := mgr.StartInstance("file")
	require.NoError(t, err)

	mgr.mu.Lock()
	rec := mgr.records[id]
	rec.Registered = true
	rec.RegisteredAt = time.Now()
	rec.LastCheckin = time.Now()
	mgr.mu.Unlock()

	mgr.sweep()

	mgr.mu.Lock()
	_, stillTracked := mgr.records[id]
	mgr.mu.Unlock()
	assert.True(t, stillTracked)
}

func TestRegistry_LookupUnknownKind(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("missing")
	assert.Error(t, err)
}

func TestURIManager_EnsureHandlerDedupesByURI(t *testing.T) {
	registry := NewRegistry()
	registry.Register(HandlerStub{Kind: "http", Binary: "http-handler"})
	mgr := New(registry, "tcp://127.0.0.1:55345", fakeSpawner("5"), zerolog.Nop())
	defer mgr.StopAll()

	um := NewURIManager(mgr)

	id1, err := um.EnsureHandler("http://example.com/feed.xml")
	require.NoError(t, err)

	id2, err := um.EnsureHandler("http://example.com/feed.xml")
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
}

func TestURIManager_RejectsURIWithoutScheme(t *testing.T) {
	mgr := New(newTestRegistry(), "tcp://127.0.0.1:55345", fakeSpawner("5"), zerolog.Nop())
	defer mgr.StopAll()
	um := NewURIManager(mgr)

	_, err := um.EnsureHandler("not-a-uri")
	assert.Error(t, err)
}
