package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPPullTimeout bounds a single GET issued by an HTTPPullHandler.
const HTTPPullTimeout = 20 * time.Second

// HTTPPullHandler is the HTTP Pull-handler: Read performs a GET against
// URI and returns the response body as text.
type HTTPPullHandler struct {
	URI    string
	client *http.Client
}

// NewHTTPPullHandler returns an HTTPPullHandler bound to uri, using a
// client with HTTPPullTimeout as its request timeout.
func NewHTTPPullHandler(uri string) *HTTPPullHandler {
	return &HTTPPullHandler{
		URI:    uri,
		client: &http.Client{Timeout: HTTPPullTimeout},
	}
}

// Read implements Reader.
func (h *HTTPPullHandler) Read() (string, error) {
	resp, err := h.client.Get(h.URI)
	if err != nil {
		return "", fmt.Errorf("handler: http pull %s: %w", h.URI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("handler: http pull %s: status %d", h.URI, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("handler: http pull %s: read body: %w", h.URI, err)
	}
	return string(body), nil
}
