package main

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/xmlwire"
)

// powerClient implements scheduling.PowerController over the RPC bus: it
// tells the native Display Controller process to keep the physical panel
// powered until a deadline, re-sent every time the Scheduling Manager
// extends the keep-alive window.
type powerClient struct {
	sock *xmlwire.Socket
	log  zerolog.Logger
}

// newPowerClient dials the Display Controller's reply address. A dial
// failure is logged and degrades to a no-op client rather than failing
// startup -- the playout engine still runs, it just can't keep an idle
// display awake.
func newPowerClient(addr string, log zerolog.Logger) *powerClient {
	sock, err := xmlwire.Dial(addr, log)
	if err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("display controller unavailable, power keep-alive disabled")
		return &powerClient{log: log}
	}
	return &powerClient{sock: sock, log: log}
}

// ExtendKeepAlive implements scheduling.PowerController.
func (c *powerClient) ExtendKeepAlive(d time.Duration) {
	if c.sock == nil {
		return
	}
	until := time.Now().Add(d).Unix()
	if _, err := c.sock.Send(xmlwire.Request{DisplayOn: &xmlwire.DisplayOn{Until: until}}); err != nil {
		c.log.Warn().Err(err).Msg("failed to extend display keep-alive")
	}
}
