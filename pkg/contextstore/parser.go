package contextstore

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/xmlwire"
)

// touchButtonPushPayload is the body a sensor_update carries when it's
// asking for the touch-selection overlay rather than reporting ordinary
// context, e.g. <touch_input>touch_button_push</touch_input>.
type touchButtonPushPayload struct {
	XMLName xml.Name `xml:"touch_input"`
	Text    string   `xml:",chardata"`
}

// subscriptionUpdateEnvelope is the <subscription-update uri=…> wrapper
// pkg/subscription.Wrap produces around the reassembled tree. Its innerxml
// is exactly the wrapped <content-set> document, unparsed.
type subscriptionUpdateEnvelope struct {
	XMLName xml.Name `xml:"subscription-update"`
	Inner   string   `xml:",innerxml"`
}

// unwrapSubscriptionUpdate strips a <subscription-update> envelope down to
// the bare <content-set> document ParseCDS expects, matching the source's
// XMLSubscriptionParser(msg_elem) unwrap step. A body that isn't wrapped
// (e.g. already a bare content-set) passes through unchanged.
func unwrapSubscriptionUpdate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "<subscription-update") {
		return raw, nil
	}
	var envelope subscriptionUpdateEnvelope
	if err := xml.Unmarshal([]byte(raw), &envelope); err != nil {
		return "", fmt.Errorf("contextstore: unwrap subscription-update: %w", err)
	}
	return strings.TrimSpace(envelope.Inner), nil
}

const touchButtonPush = "touch_button_push"

// CDSQueue receives a reassembled content descriptor set forwarded from a
// subscription update, for the Scheduling Manager to pick up.
type CDSQueue interface {
	Enqueue(set *contentmodel.Set)
}

// TouchSelector starts the touch-selection overlay flow.
type TouchSelector interface {
	InitiateTouchSelection()
}

// Scheduler re-runs item selection; ItemScheduling is expected to be
// cheap to call repeatedly and safe to call concurrently with itself.
type Scheduler interface {
	ItemScheduling()
}

// Parser is the Context & Constraints parser (§4.6): it answers the two
// RPC endpoints the Subscription Manager and sensor sources call, and
// wakes the Scheduling Manager whenever new context or content arrives.
type Parser struct {
	store     *Store
	cds       CDSQueue
	touch     TouchSelector
	scheduler Scheduler
	log       zerolog.Logger

	subBus    *xmlwire.Bus
	sensorBus *xmlwire.Bus
}

// NewParser builds a Parser bound to store and the given collaborators.
func NewParser(store *Store, cds CDSQueue, touch TouchSelector, scheduler Scheduler, log zerolog.Logger) *Parser {
	return &Parser{store: store, cds: cds, touch: touch, scheduler: scheduler, log: log}
}

// Start binds the subscription-update and sensor-update reply endpoints
// to their configured ports (§6's fixed local RPC ports) and begins
// serving requests in the background.
func (p *Parser) Start(subscriptionAddr, sensorAddr string) error {
	subBus, err := xmlwire.Listen(subscriptionAddr, p.HandleSubscriptionUpdate, p.log)
	if err != nil {
		return fmt.Errorf("contextstore: listen subscription reply: %w", err)
	}
	sensorBus, err := xmlwire.Listen(sensorAddr, p.HandleSensorUpdate, p.log)
	if err != nil {
		subBus.Stop()
		return fmt.Errorf("contextstore: listen sensor reply: %w", err)
	}
	p.subBus = subBus
	p.sensorBus = sensorBus
	return nil
}

// Stop shuts down both reply endpoints.
func (p *Parser) Stop() {
	if p.subBus != nil {
		p.subBus.Stop()
	}
	if p.sensorBus != nil {
		p.sensorBus.Stop()
	}
}

// HandleSubscriptionUpdate answers a subscription_update request: it
// parses the forwarded CDS and enqueues it for the Scheduling Manager. A
// parse failure is logged and dropped — the reply is still a pong, never
// an error, matching the source's "FIXME: do we want to do something
// more if parsed_cds is None?" left as a no-op.
func (p *Parser) HandleSubscriptionUpdate(req xmlwire.Request) xmlwire.Reply {
	if req.SubscriptionUpdate == nil {
		return xmlwire.Reply{Error: &xmlwire.ErrorBody{Message: "missing subscription_update body"}}
	}

	body, err := unwrapSubscriptionUpdate(req.SubscriptionUpdate.Body)
	if err != nil {
		p.log.Error().Err(err).Str("uri", req.SubscriptionUpdate.URI).Msg("unwrapping forwarded cds failed")
		return xmlwire.Reply{Pong: &xmlwire.PongBody{}}
	}

	set, err := contentmodel.ParseCDS(body)
	if err != nil {
		p.log.Error().Err(err).Str("uri", req.SubscriptionUpdate.URI).Msg("parsing forwarded cds failed")
		return xmlwire.Reply{Pong: &xmlwire.PongBody{}}
	}

	p.cds.Enqueue(set)
	return xmlwire.Reply{Pong: &xmlwire.PongBody{}}
}

// HandleSensorUpdate answers a sensor_update request. A touch-button-push
// payload starts the touch-selection overlay and never touches the
// context store. Every other sensor update is written to the context
// store (an unsupported context type is logged, not surfaced as an RPC
// error) and unconditionally triggers a re-run of item scheduling in the
// background, regardless of whether the context write itself succeeded.
func (p *Parser) HandleSensorUpdate(req xmlwire.Request) xmlwire.Reply {
	if req.SensorUpdate == nil {
		return xmlwire.Reply{Error: &xmlwire.ErrorBody{Message: "missing sensor_update body"}}
	}

	if isTouchButtonPush(req.SensorUpdate) {
		go p.touch.InitiateTouchSelection()
		return xmlwire.Reply{Pong: &xmlwire.PongBody{}}
	}

	var itemXML string
	if item, err := contentmodel.ParseContentItem(req.SensorUpdate.Body); err == nil {
		itemXML = item.RawXML
	} else {
		p.log.Warn().Err(err).Str("event", req.SensorUpdate.Event).Msg("sensor update body isn't a content item")
		itemXML = req.SensorUpdate.Body
	}

	if _, err := p.store.AddContext(ContextType(req.SensorUpdate.Event), itemXML); err != nil {
		if errors.Is(err, ErrUnsupportedContextType) {
			p.log.Error().Str("context_type", req.SensorUpdate.Event).Msg("trying to write unsupported sensor update")
		} else {
			p.log.Error().Err(err).Msg("writing sensor update to context store failed")
		}
	}

	go p.scheduler.ItemScheduling()

	return xmlwire.Reply{Pong: &xmlwire.PongBody{}}
}

func isTouchButtonPush(update *xmlwire.SensorUpdate) bool {
	if update.Event != string(TypeTouchInput) {
		return false
	}
	body := strings.TrimSpace(update.Body)
	if body == "" {
		return false
	}
	var payload touchButtonPushPayload
	if err := xml.Unmarshal([]byte(body), &payload); err != nil {
		return false
	}
	return strings.TrimSpace(payload.Text) == touchButtonPush
}
