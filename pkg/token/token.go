// Package token issues and validates the rotating security tokens that
// authenticate Handler subprocesses to their owning Manager.
//
// Every Handler is spawned with a one-off registration token on its command
// line (see the Subprocess CLI in the wire spec). That token authenticates
// exactly one message — register — and is discarded afterwards in favor of a
// freshly minted rotating token delivered in the register reply. Manager
// keeps both tokens around only long enough to complete the handoff.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Registration pairs a one-off spawn token with the fresh rotating token
// issued to the handler once it registers.
type Registration struct {
	SpawnToken   string
	CurrentToken string
	IssuedAt     time.Time
	RegisteredAt time.Time
	Registered   bool
}

// Manager tracks the one-off spawn token and current rotating token for
// every handler subprocess a procmanager.Manager has started.
type Manager struct {
	mu        sync.RWMutex
	byCurrent map[string]*Registration
	bySpawn   map[string]*Registration
}

// NewManager creates an empty token manager.
func NewManager() *Manager {
	return &Manager{
		byCurrent: make(map[string]*Registration),
		bySpawn:   make(map[string]*Registration),
	}
}

// IssueSpawnToken generates a fresh one-off token for a handler about to be
// spawned and records it pending registration.
func (m *Manager) IssueSpawnToken() (string, error) {
	spawn, err := generate()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.bySpawn[spawn] = &Registration{
		SpawnToken: spawn,
		IssuedAt:   time.Now(),
	}
	return spawn, nil
}

// Register looks up the pending registration by its one-off spawn token; if
// found, mints a fresh rotating token, records it, and returns it. The spawn
// token is consumed — it cannot be reused to authenticate anything else. A
// spoofed or unknown spawn token returns ErrUnknownSpawnToken.
func (m *Manager) Register(spawnToken string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.bySpawn[spawnToken]
	if !ok {
		return "", ErrUnknownSpawnToken
	}
	delete(m.bySpawn, spawnToken)

	current, err := generate()
	if err != nil {
		return "", err
	}

	reg.CurrentToken = current
	reg.Registered = true
	reg.RegisteredAt = time.Now()
	m.byCurrent[current] = reg

	return current, nil
}

// Rotate issues a fresh rotating token in place of an existing one, for
// managers that choose to re-rotate tokens periodically rather than only at
// registration. Returns ErrUnknownToken if the current token is not tracked.
func (m *Manager) Rotate(currentToken string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.byCurrent[currentToken]
	if !ok {
		return "", ErrUnknownToken
	}

	next, err := generate()
	if err != nil {
		return "", err
	}

	delete(m.byCurrent, currentToken)
	reg.CurrentToken = next
	m.byCurrent[next] = reg

	return next, nil
}

// Check reports whether token is the current, valid rotating token for some
// registered handler. Used as the check_handler_token guard on every verb
// other than register.
func (m *Manager) Check(currentToken string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byCurrent[currentToken]
	return ok
}

// Revoke forgets a token entirely, e.g. when its handler subprocess is torn
// down by the Manager's stop escalation.
func (m *Manager) Revoke(currentToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byCurrent, currentToken)
}

func generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
