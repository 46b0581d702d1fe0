package xmlwire

import (
	"encoding/xml"
	"net"
	"sync"

	"github.com/rs/zerolog"
)

// RequestHandler processes one decoded Request and returns the Reply to
// send back. Implementations run on the connection's own goroutine — the
// actor owns its socket for the lifetime of that connection, matching the
// source's one-actor-per-endpoint thread model.
type RequestHandler func(req Request) Reply

// Bus is the server-side actor of one RPC endpoint: it listens on a fixed
// local TCP port and, for every accepted connection, enforces the same
// strict request/reply pairing the client Socket expects — one decode, one
// dispatch, one encode, repeat until the connection closes.
type Bus struct {
	listener net.Listener
	handler  RequestHandler
	log      zerolog.Logger

	mu      sync.Mutex
	stopped bool
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
}

// Listen opens a Bus on addr (host:port, typically 127.0.0.1:<fixed port>
// per §6) and begins serving connections in the background. Call Stop to
// shut it down.
func Listen(addr string, handler RequestHandler, logger zerolog.Logger) (*Bus, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	b := &Bus{
		listener: ln,
		handler:  handler,
		conns:    make(map[net.Conn]struct{}),
		log:      logger.With().Str("component", "xmlwire.bus").Str("addr", addr).Logger(),
	}
	b.wg.Add(1)
	go b.acceptLoop()
	return b, nil
}

func (b *Bus) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			b.mu.Lock()
			stopped := b.stopped
			b.mu.Unlock()
			if stopped {
				return
			}
			b.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		b.wg.Add(1)
		go b.serve(conn)
	}
}

func (b *Bus) serve(conn net.Conn) {
	defer b.wg.Done()
	defer conn.Close()

	b.mu.Lock()
	b.conns[conn] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.conns, conn)
		b.mu.Unlock()
	}()

	dec := xml.NewDecoder(conn)
	enc := xml.NewEncoder(conn)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}

		reply := b.handler(req)
		if err := enc.Encode(reply); err != nil {
			b.log.Warn().Err(err).Msg("failed to encode reply, closing connection")
			return
		}
	}
}

// Stop closes the listener and waits for in-flight connections to finish
// their current request/reply cycle.
func (b *Bus) Stop() error {
	b.mu.Lock()
	b.stopped = true
	for conn := range b.conns {
		_ = conn.Close()
	}
	b.mu.Unlock()

	err := b.listener.Close()
	b.wg.Wait()
	return err
}

// Addr returns the bound local address, useful when Listen was given port
// 0 for tests.
func (b *Bus) Addr() net.Addr {
	return b.listener.Addr()
}
