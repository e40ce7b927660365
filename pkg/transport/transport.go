// Package transport is the request/response boundary between a workspace and
// the REST backend. Targets are already-resolved paths (see schema.Target);
// bodies are JSON-encoded and payloads returned raw so the caller decides how
// to decode them.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Payload is a raw JSON response body. A 204 yields an empty payload.
type Payload []byte

// Empty reports whether the backend returned no body.
func (p Payload) Empty() bool {
	return len(strings.TrimSpace(string(p))) == 0
}

// Transport issues one request against the backend.
type Transport interface {
	Do(ctx context.Context, method, target string, body any) (Payload, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, method, target string, body any) (Payload, error)

// Do implements Transport.
func (f Func) Do(ctx context.Context, method, target string, body any) (Payload, error) {
	return f(ctx, method, target, body)
}

// TransportError wraps a failure to reach the backend at all.
type TransportError struct {
	Method string
	Target string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.Target, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a non-success response with its decoded message. Fields holds
// per-field messages keyed by the backend's location path (for example
// "body.nombre") when the backend reports validation details.
type APIError struct {
	Method  string
	Target  string
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("transport: %s %s: status %d: %s", e.Method, e.Target, e.Status, msg)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
