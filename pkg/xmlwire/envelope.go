// Package xmlwire implements the RPC bus: an XML-framed request/reply
// transport over TCP, with token authentication (save for the one-off
// register verb), ping/pong liveness, and per-socket strict request/reply
// pairing with timeout-triggered reconnect and retransmission.
package xmlwire

import "encoding/xml"

// Request is the envelope every outbound RPC message is wrapped in. Exactly
// one of the verb fields is populated; Token is empty only for a register
// request, which authenticates with the one-off spawn token carried in its
// RegisterBody instead.
type Request struct {
	XMLName            xml.Name             `xml:"request"`
	Token              string               `xml:"token,attr"`
	Ping               *PingBody            `xml:"ping"`
	Register           *RegisterBody        `xml:"register"`
	SubscriptionUpdate *SubscriptionUpdate  `xml:"subscription_update"`
	SensorUpdate       *SensorUpdate        `xml:"sensor_update"`
	FinishedLoading    *RendererRef         `xml:"finished_loading"`
	PreparationFailed  *RendererRef         `xml:"preparation_failed"`
	DisplayOn          *DisplayOn           `xml:"display_on"`
}

// Reply is the envelope every inbound response is wrapped in. Exactly one
// of the verb fields is populated.
type Reply struct {
	XMLName xml.Name   `xml:"reply"`
	Token   string     `xml:"token,attr"`
	Pong    *PongBody  `xml:"pong"`
	Params  *ParamsBody `xml:"params"`
	Error   *ErrorBody `xml:"error"`
	Ack     *AckBody   `xml:"ack"`
}

// PingBody carries no fields; its presence on a Request is the whole
// message.
type PingBody struct{}

// PongBody carries no fields; its presence on a Reply is the whole message.
type PongBody struct{}

// AckBody is a generic empty success acknowledgement, used for verbs whose
// reply carries no payload (finished_loading, preparation_failed,
// display_on).
type AckBody struct{}

// RegisterBody is the one-off registration request a freshly spawned
// Handler or Renderer sends, authenticated by the spawn token on the
// command line rather than the Token attribute (which is empty on a
// register request).
type RegisterBody struct {
	SpawnToken string `xml:"spawn_token,attr"`
	Kind       string `xml:"kind,attr"`
}

// ParamsBody is the register reply: a fresh rotating token plus a flat
// key/value settings dictionary (refresh rate, layout, URI, and so on —
// whatever the specific Handler/Renderer kind needs at bootstrap).
type ParamsBody struct {
	Token    string    `xml:"token,attr"`
	Settings []KeyValue `xml:"param"`
}

// KeyValue is one entry of a ParamsBody's settings dictionary.
type KeyValue struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// Get returns the value for key, and whether it was present.
func (p ParamsBody) Get(key string) (string, bool) {
	for _, kv := range p.Settings {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// SubscriptionUpdate carries a fetched CDS payload for a given URI, sent
// Handler to Manager.
type SubscriptionUpdate struct {
	URI  string `xml:"uri,attr"`
	Body string `xml:",innerxml"`
}

// SensorUpdate carries a sensor or touch event, sent Handler to Manager.
type SensorUpdate struct {
	Event string `xml:"event,attr"`
	Body  string `xml:",innerxml"`
}

// RendererRef names a renderer-uuid, used by finished_loading and
// preparation_failed, sent Renderer to Display Manager.
type RendererRef struct {
	RendererUUID string `xml:"renderer_uuid,attr"`
}

// DisplayOn asks the display-power collaborator to keep the physical
// display powered until the given Unix timestamp.
type DisplayOn struct {
	Until int64 `xml:"until,attr"`
}

// ErrorBody is the error reply variant, optionally carrying a human-
// readable message.
type ErrorBody struct {
	Message string `xml:"message,attr"`
}
