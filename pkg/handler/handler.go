// Package handler implements the supervised child-process side of the RPC
// bus: a Handler registers with its Manager using a one-off spawn token,
// receives a rotating token and bootstrap parameters, and then either
// pings periodically to prove liveness or — for Pull-handlers — runs a
// read-and-report loop on a backoff-governed schedule.
package handler

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/xmlwire"
)

// SubprocessCheckinInterval is how often a Handler that would otherwise be
// silent emits a ping — the sole liveness signal its Manager watches for.
const SubprocessCheckinInterval = 3 * time.Second

// RegistrationTimeout bounds how long a Handler waits for its register
// reply before treating registration as failed.
const RegistrationTimeout = 10 * time.Second

// Base is the common state and registration flow every concrete Handler
// embeds: a request socket to the Manager, the one-off spawn token it was
// launched with, and the rotating token + settings it receives back.
type Base struct {
	Kind string

	sock       *xmlwire.Socket
	spawnToken string
	token      string
	settings   xmlwire.ParamsBody
	log        zerolog.Logger

	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewBase dials the Manager at addr and returns an unregistered Base.
func NewBase(kind, addr, spawnToken string, logger zerolog.Logger) (*Base, error) {
	sock, err := xmlwire.Dial(addr, logger)
	if err != nil {
		return nil, fmt.Errorf("handler: dial manager: %w", err)
	}
	return &Base{
		Kind:       kind,
		sock:       sock,
		spawnToken: spawnToken,
		log:        logger.With().Str("component", "handler").Str("kind", kind).Logger(),
		stopCh:     make(chan struct{}),
	}, nil
}

// Register sends the one-off registration request and, on success, stores
// the rotating token and settings dictionary from the params reply.
// Failure to complete within RegistrationTimeout is fatal to the Handler.
func (b *Base) Register() error {
	type result struct {
		reply xmlwire.Reply
		err   error
	}
	done := make(chan result, 1)

	go func() {
		reply, err := b.sock.Send(xmlwire.Request{
			Register: &xmlwire.RegisterBody{SpawnToken: b.spawnToken, Kind: b.Kind},
		})
		done <- result{reply, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("handler: register: %w", r.err)
		}
		if r.reply.Params == nil {
			return fmt.Errorf("handler: register: manager did not reply with params")
		}
		b.mu.Lock()
		b.token = r.reply.Params.Token
		b.settings = *r.reply.Params
		b.mu.Unlock()
		b.log.Info().Msg("registered with manager")
		return nil
	case <-time.After(RegistrationTimeout):
		return fmt.Errorf("handler: registration timed out after %s", RegistrationTimeout)
	}
}

// Setting returns a bootstrap parameter delivered in the params reply.
func (b *Base) Setting(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings.Get(key)
}

// Token returns the current rotating token used to authenticate every
// non-register message.
func (b *Base) Token() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

// Ping sends one liveness ping using the current rotating token.
func (b *Base) Ping() bool {
	return b.sock.Ping(b.Token())
}

// RunCheckinLoop emits a ping every SubprocessCheckinInterval until Stop is
// called. Concrete handlers that have their own traffic (e.g. a
// Pull-handler mid-read) don't need this running continuously, but running
// it unconditionally is harmless — an extra ping is not an error, and it
// guarantees the sole liveness signal keeps flowing even during a long
// idle stretch between scheduled reads.
func (b *Base) RunCheckinLoop() {
	ticker := time.NewTicker(SubprocessCheckinInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !b.Ping() {
				b.log.Warn().Msg("checkin ping failed")
			}
		case <-b.stopCh:
			return
		}
	}
}

// Stop signals RunCheckinLoop (and any Pull-handler read loop) to exit and
// closes the underlying socket.
func (b *Base) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		_ = b.sock.Close()
	})
}

// StopChan exposes the stop signal so embedding handlers can select on it
// alongside their own timers.
func (b *Base) StopChan() <-chan struct{} {
	return b.stopCh
}

// Send authenticates req with the current rotating token and forwards it
// to the Manager, returning the reply.
func (b *Base) Send(req xmlwire.Request) (xmlwire.Reply, error) {
	req.Token = b.Token()
	return b.sock.Send(req)
}
