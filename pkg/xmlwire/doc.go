/*
Package xmlwire implements the RPC bus connecting Handlers, the Managers
that supervise them, and Renderers to the Display Manager: an XML-framed
request/reply transport over plain TCP.

# Wire Format

Every message is either a <request token="…"> or <reply token="…"> element
wrapping exactly one verb child: ping/pong, register/params,
subscription_update, sensor_update, finished_loading, preparation_failed,
display_on, or an error reply. Token is empty only on a register request,
which authenticates with the one-off spawn token carried in its own body
instead.

# Client: Socket

Socket owns one TCP connection and enforces strict request/reply pairing —
callers must wait for a reply before sending the next request. A reply
timeout (DefaultRequestTimeout, matching ZMQ_REQUEST_TIMEOUT_MSEC) discards
the connection, dials a fresh one, and retransmits the same request exactly
once before surfacing the error.

# Server: Bus

Bus listens on a fixed local TCP port (see pkg/config.RPCConfig for the
five assigned ports) and runs one goroutine per accepted connection, each
decoding a Request, invoking the supplied RequestHandler, and encoding its
Reply — the "actor owns the socket" model, translated from the ZMQ
thread-per-endpoint design note into one goroutine per TCP connection.

# Usage

	bus, _ := xmlwire.Listen("127.0.0.1:55343", func(req xmlwire.Request) xmlwire.Reply {
		switch {
		case req.Register != nil:
			return xmlwire.Reply{Params: &xmlwire.ParamsBody{Token: "...", Settings: nil}}
		case req.Ping != nil:
			return xmlwire.Reply{Token: req.Token, Pong: &xmlwire.PongBody{}}
		default:
			return xmlwire.Reply{Token: req.Token, Error: &xmlwire.ErrorBody{Message: "unknown verb"}}
		}
	}, log.Logger)
	defer bus.Stop()

	sock, _ := xmlwire.Dial("127.0.0.1:55343", log.Logger)
	defer sock.Close()
	sock.Ping("token")
*/
package xmlwire
