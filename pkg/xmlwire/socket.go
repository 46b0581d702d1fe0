package xmlwire

import (
	"encoding/xml"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRequestTimeout matches ZMQ_REQUEST_TIMEOUT_MSEC from the wire
// spec: how long a requester waits for a reply before discarding the
// socket and reconnecting.
const DefaultRequestTimeout = 1000 * time.Millisecond

// Socket is the client-side actor of one RPC endpoint: it owns a single TCP
// connection and enforces strict request/reply pairing over it. A caller
// must finish waiting for one reply before issuing the next Send — Socket
// does not pipeline.
//
// On a reply timeout, Socket discards the underlying connection, dials a
// fresh one, and retransmits the same outstanding request exactly once more
// before giving up and returning the timeout error to the caller.
type Socket struct {
	addr    string
	timeout time.Duration
	log     zerolog.Logger

	mu   sync.Mutex
	conn net.Conn
	dec  *xml.Decoder
}

// Dial opens a Socket to addr (host:port). The connection is lazy in the
// sense that a dial failure at Send time triggers exactly the same
// discard-and-reconnect path as a reply timeout would.
func Dial(addr string, logger zerolog.Logger) (*Socket, error) {
	s := &Socket{
		addr:    addr,
		timeout: DefaultRequestTimeout,
		log:     logger.With().Str("component", "xmlwire.socket").Str("addr", addr).Logger(),
	}
	if err := s.reconnect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Socket) reconnect() error {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
		s.dec = nil
	}

	conn, err := net.DialTimeout("tcp", s.addr, s.timeout)
	if err != nil {
		return fmt.Errorf("xmlwire: dial %s: %w", s.addr, err)
	}
	s.conn = conn
	s.dec = xml.NewDecoder(conn)
	return nil
}

// Send transmits req and blocks for its paired reply, retrying once across
// a fresh socket on timeout. It is safe to call from one goroutine at a
// time; concurrent callers must serialize (the wire spec enforces at most
// one outstanding request per socket).
func (s *Socket) Send(req Request) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.sendOnce(req)
	if err == nil {
		return reply, nil
	}

	s.log.Warn().Err(err).Msg("reply timeout, discarding socket and retransmitting")
	if rerr := s.reconnect(); rerr != nil {
		return Reply{}, rerr
	}

	return s.sendOnce(req)
}

func (s *Socket) sendOnce(req Request) (Reply, error) {
	if s.conn == nil {
		if err := s.reconnect(); err != nil {
			return Reply{}, err
		}
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return Reply{}, fmt.Errorf("xmlwire: set write deadline: %w", err)
	}
	enc := xml.NewEncoder(s.conn)
	if err := enc.Encode(req); err != nil {
		return Reply{}, fmt.Errorf("xmlwire: encode request: %w", err)
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		return Reply{}, fmt.Errorf("xmlwire: set read deadline: %w", err)
	}
	var reply Reply
	if err := s.dec.Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("xmlwire: decode reply: %w", err)
	}

	return reply, nil
}

// Close releases the underlying connection.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.dec = nil
	return err
}

// Ping sends a liveness ping and reports whether a pong came back within
// the socket's timeout.
func (s *Socket) Ping(token string) bool {
	reply, err := s.Send(Request{Token: token, Ping: &PingBody{}})
	return err == nil && reply.Pong != nil
}
