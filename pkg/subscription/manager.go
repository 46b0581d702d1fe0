package subscription

import (
	"encoding/xml"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/metrics"
)

// URIHandlerManager is the subset of procmanager.URIManager the
// Subscription Manager needs: ensure exactly one running Pull-handler
// per distinct URI.
type URIHandlerManager interface {
	EnsureHandler(uri string) (string, error)
}

// Forwarder delivers a reassembled CDS, already wrapped in a
// <subscription-update uri=rootURI> envelope, to the Scheduling
// Manager's update queue.
type Forwarder func(rootURI string, wrappedCDS string)

// Manager implements §4.4: on each subscription_update it persists the
// payload, spawns Pull-handlers for any newly-referenced remote content
// (subject to NestingPolicy), reassembles the full tree rooted at the
// URI's xml_id, and forwards it on.
type Manager struct {
	store            *Store
	handlers         URIHandlerManager
	nesting          NestingPolicy
	forward          Forwarder
	subscriptionRoot string
	log              zerolog.Logger
}

// NewManager wires a Store, a URIHandlerManager (normally a
// *procmanager.URIManager), a nesting policy, and the Forwarder callback
// that hands reassembled trees to the Scheduling Manager. subscriptionRoot
// is the single configured root URI this Manager serves — every forwarded
// envelope is addressed to it, regardless of which nested URI actually
// triggered the update.
func NewManager(store *Store, handlers URIHandlerManager, nesting NestingPolicy, subscriptionRoot string, forward Forwarder, logger zerolog.Logger) *Manager {
	return &Manager{
		store:            store,
		handlers:         handlers,
		nesting:          nesting,
		forward:          forward,
		subscriptionRoot: subscriptionRoot,
		log:              logger.With().Str("component", "subscription.manager").Logger(),
	}
}

// HandleSubscriptionUpdate runs the four steps of §4.4 for one received
// payload: parse+persist, spawn child handlers, reassemble, forward.
func (m *Manager) HandleSubscriptionUpdate(uri, rawXML string) error {
	xmlID, err := m.store.SaveRoot(uri, rawXML)
	if err != nil {
		return fmt.Errorf("subscription: save %s: %w", uri, err)
	}

	if err := m.spawnChildHandlers(uri, rawXML); err != nil {
		m.log.Warn().Err(err).Str("uri", uri).Msg("failed spawning one or more child handlers")
	}

	timer := metrics.NewTimer()
	tree, err := m.store.Reassemble(xmlID)
	timer.ObserveDuration(metrics.SubscriptionReassemblyDuration)
	if err != nil {
		metrics.SubscriptionReassembliesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("subscription: reassemble %s: %w", uri, err)
	}
	if tree == nil {
		metrics.SubscriptionReassembliesTotal.WithLabelValues("integrity_failure").Inc()
		m.log.Warn().Str("uri", uri).Msg("reassembly failed integrity check, skipping forward")
		return nil
	}
	metrics.SubscriptionReassembliesTotal.WithLabelValues("ok").Inc()

	if m.forward != nil {
		wrapped, err := Wrap(m.subscriptionRoot, tree)
		if err != nil {
			return fmt.Errorf("subscription: wrap %s: %w", uri, err)
		}
		m.forward(m.subscriptionRoot, wrapped)
	}
	return nil
}

func (m *Manager) spawnChildHandlers(parentURI, rawXML string) error {
	doc, err := ParseElement(rawXML)
	if err != nil {
		return err
	}
	cs := doc
	if doc.XMLName.Local == "subscription-update" {
		if inner := doc.Find("content-set"); inner != nil {
			cs = inner
		}
	}

	parentScheme, err := schemeOf(parentURI)
	if err != nil {
		return err
	}

	var firstErr error
	for _, child := range remoteChildSets(cs) {
		for _, childURI := range sourceURIs(child) {
			childScheme, err := schemeOf(childURI)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if !m.nesting.Allows(parentScheme, childScheme) {
				metrics.SubscriptionNestingRejectionsTotal.Inc()
				m.log.Warn().Str("parent_scheme", parentScheme).Str("child_scheme", childScheme).
					Str("uri", childURI).Msg("nesting policy rejected handler spawn")
				continue
			}
			if _, err := m.handlers.EnsureHandler(childURI); err != nil {
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

func schemeOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("subscription: parse uri %q: %w", raw, err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("subscription: uri %q has no scheme", raw)
	}
	return u.Scheme, nil
}

// Wrap renders tree as a <subscription-update uri=rootURI> envelope,
// ready to hand to the Scheduling Manager.
func Wrap(rootURI string, tree *Element) (string, error) {
	wrapper := &Element{
		XMLName:  xml.Name{Local: "subscription-update"},
		Attrs:    []xml.Attr{{Name: xml.Name{Local: "uri"}, Value: rootURI}},
		Children: []*Element{tree},
	}
	return wrapper.Encode()
}
