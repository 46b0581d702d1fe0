package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
)

func TestManager_EnqueueSkipsAlreadyCachedItem(t *testing.T) {
	c := newTestCache(t)
	uri := "file:///already-cached.png"
	require.NoError(t, os.WriteFile(c.cachedPath(uri), []byte("x"), 0o644))

	m := NewManager(c, zerolog.Nop())
	m.Enqueue(&contentmodel.Item{ContentType: "image/png"}, uri)

	select {
	case <-m.queue:
		t.Fatal("already-cached item should not have been enqueued")
	default:
	}
}

func TestManager_ProcessesQueuedItemEndToEnd(t *testing.T) {
	c := newTestCache(t)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "source.png")
	require.NoError(t, os.WriteFile(srcPath, []byte("payload"), 0o644))
	uri := "file://" + srcPath

	m := NewManager(c, zerolog.Nop())
	m.Start()
	defer m.Stop()

	m.Enqueue(&contentmodel.Item{ContentType: "image/png"}, uri)

	require.Eventually(t, func() bool {
		return c.IsCached(&contentmodel.Item{ContentType: "image/png"}, uri, false)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_StopWaitsForWorkersToExit(t *testing.T) {
	c := newTestCache(t)
	m := NewManager(c, zerolog.Nop())
	m.Start()
	m.Stop()
	assert.True(t, true)
}
