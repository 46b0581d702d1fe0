package handler

import (
	"time"

	"github.com/cuemby/yarelycore/pkg/xmlwire"
)

// DefaultWindow is the retry backoff window a Pull-handler starts from
// after a read failure, and resets to after a successful read.
const DefaultWindow = 60 * time.Second

// Reader fetches the latest content for a Pull-handler's source. It
// returns the raw payload text on success.
type Reader interface {
	Read() (string, error)
}

// PullHandler runs a refresh-rate driven read loop: read immediately on
// start, then on a schedule. A failed read retries at a window that
// doubles each consecutive failure, capped at the configured refresh
// rate; any success resets the window and returns to the refresh-rate
// schedule.
type PullHandler struct {
	*Base
	URI         string
	RefreshRate time.Duration
	reader      Reader

	// window is the current failure backoff, doubling (capped at
	// RefreshRate) on each consecutive read failure.
	window time.Duration
	// nextDelay is what the loop actually waits: RefreshRate after a
	// success, window after a failure.
	nextDelay time.Duration
}

// NewPullHandler wraps a registered Base with a read loop over reader,
// reporting fetched payloads as subscription_update requests tagged with
// uri.
func NewPullHandler(base *Base, uri string, refreshRate time.Duration, reader Reader) *PullHandler {
	return &PullHandler{
		Base:        base,
		URI:         uri,
		RefreshRate: refreshRate,
		reader:      reader,
		window:      DefaultWindow,
		nextDelay:   0, // immediate first read
	}
}

// Run performs the immediate first read, then loops: schedule the next
// read at RefreshRate on success, or at the current (doubling, capped)
// window on failure, until Stop is called.
func (p *PullHandler) Run() {
	p.readAndReport()

	timer := time.NewTimer(p.nextDelay)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			p.readAndReport()
			timer.Reset(p.nextDelay)
		case <-p.StopChan():
			return
		}
	}
}

func (p *PullHandler) readAndReport() {
	body, err := p.reader.Read()
	if err != nil {
		p.onFailure()
		return
	}
	p.onSuccess()

	_, _ = p.Send(xmlwire.Request{
		SubscriptionUpdate: &xmlwire.SubscriptionUpdate{URI: p.URI, Body: body},
	})
}

func (p *PullHandler) onFailure() {
	next := p.window * 2
	if next > p.RefreshRate {
		next = p.RefreshRate
	}
	p.window = next
	p.nextDelay = p.window
}

func (p *PullHandler) onSuccess() {
	p.window = DefaultWindow
	p.nextDelay = p.RefreshRate
}
