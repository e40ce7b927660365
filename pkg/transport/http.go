package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HTTP talks to the backend over net/http.
type HTTP struct {
	base           *url.URL
	client         *http.Client
	token          string
	onUnauthorized func()
	logger         zerolog.Logger
}

var _ Transport = (*HTTP)(nil)

// Option customises the HTTP transport.
type Option func(*HTTP)

// WithHTTPClient overrides the underlying client.
func WithHTTPClient(client *http.Client) Option {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// WithTimeout sets the per-request timeout on the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(h *HTTP) {
		if timeout > 0 {
			clone := *h.client
			clone.Timeout = timeout
			h.client = &clone
		}
	}
}

// WithToken attaches a bearer credential to every request.
func WithToken(token string) Option {
	return func(h *HTTP) {
		h.token = strings.TrimSpace(token)
	}
}

// WithOnUnauthorized registers a hook fired when a credentialed request is
// answered with 401.
func WithOnUnauthorized(fn func()) Option {
	return func(h *HTTP) {
		h.onUnauthorized = fn
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *HTTP) {
		h.logger = logger
	}
}

// NewHTTP builds a transport rooted at baseURL.
func NewHTTP(baseURL string, options ...Option) (*HTTP, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("transport: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("transport: base url %q must be http or https", baseURL)
	}
	h := &HTTP{
		base:   base,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Do sends one request. body, when non-nil, is JSON-encoded.
func (h *HTTP) Do(ctx context.Context, method, target string, body any) (Payload, error) {
	endpoint := h.resolve(target)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode %s %s: %w", method, target, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &TransportError{Method: method, Target: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	started := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Debug().Err(err).Str("method", method).Str("target", target).Msg("request failed")
		return nil, &TransportError{Method: method, Target: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Target: target, Err: fmt.Errorf("read body: %w", err)}
	}
	h.logger.Debug().
		Str("method", method).
		Str("target", target).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("request")

	if resp.StatusCode == http.StatusNoContent {
		return Payload{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized && h.token != "" && h.onUnauthorized != nil {
			h.onUnauthorized()
		}
		message, fields := decodeError(data)
		return nil, &APIError{
			Method:  method,
			Target:  target,
			Status:  resp.StatusCode,
			Message: message,
			Fields:  fields,
		}
	}
	return Payload(data), nil
}

func (h *HTTP) resolve(target string) string {
	return strings.TrimRight(h.base.String(), "/") + "/" + strings.TrimLeft(target, "/")
}
