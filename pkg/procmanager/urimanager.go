package procmanager

import (
	"fmt"
	"net/url"
)

// URIManager specializes Manager for Handlers started per-URI: it
// selects a HandlerStub by the URL scheme of each incoming subscription
// source and starts exactly one Handler instance per distinct URI.
type URIManager struct {
	*Manager

	active map[string]string // uri -> record ID
}

// NewURIManager wraps manager with per-scheme URI dispatch.
func NewURIManager(manager *Manager) *URIManager {
	return &URIManager{Manager: manager, active: make(map[string]string)}
}

// EnsureHandler starts a Handler for uri if one isn't already running,
// selecting the HandlerStub whose kind matches the URI's scheme.
func (u *URIManager) EnsureHandler(rawURI string) (string, error) {
	if _, ok := u.active[rawURI]; ok {
		return u.active[rawURI], nil
	}

	parsed, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("procmanager: parse uri %q: %w", rawURI, err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("procmanager: uri %q has no scheme", rawURI)
	}

	id, err := u.Manager.StartInstance(parsed.Scheme, rawURI)
	if err != nil {
		return "", err
	}
	u.active[rawURI] = id
	return id, nil
}
