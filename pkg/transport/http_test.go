package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHTTPSendsBearerAndJSON(t *testing.T) {
	var got struct {
		auth, contentType, path, method string
		body                            map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.auth = r.Header.Get("Authorization")
		got.contentType = r.Header.Get("Content-Type")
		got.path = r.URL.Path
		got.method = r.Method
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 5, "nombre": "x"}`))
	}))
	defer srv.Close()

	client, err := NewHTTP(srv.URL+"/api/", WithToken("secret"))
	if err != nil {
		t.Fatalf("new http: %v", err)
	}
	payload, err := client.Do(context.Background(), http.MethodPost, "/projects/1/requisitos", map[string]any{"nombre": "x"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if got.auth != "Bearer secret" || got.contentType != "application/json" {
		t.Fatalf("unexpected headers: %+v", got)
	}
	if got.path != "/api/projects/1/requisitos" || got.method != http.MethodPost {
		t.Fatalf("unexpected request line: %s %s", got.method, got.path)
	}
	if got.body["nombre"] != "x" {
		t.Fatalf("unexpected body: %v", got.body)
	}
	if string(payload) != `{"id": 5, "nombre": "x"}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestHTTPNoContentIsEmptySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("no credential configured, got %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, _ := NewHTTP(srv.URL)
	payload, err := client.Do(context.Background(), http.MethodDelete, "/actores/1", nil)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !payload.Empty() {
		t.Fatalf("expected empty payload, got %q", payload)
	}
}

func TestHTTPMapsAPIErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantFields map[string][]string
	}{
		{"detail string", http.StatusNotFound, `{"detail":"Requisito no encontrado"}`, "Requisito no encontrado", nil},
		{"message", http.StatusBadRequest, `{"message":"bad"}`, "bad", nil},
		{
			"validation list", http.StatusUnprocessableEntity,
			`{"detail":[{"loc":["body","nombre"],"msg":"field required","type":"missing"}]}`,
			"body.nombre: field required",
			map[string][]string{"body.nombre": {"field required"}},
		},
		{"plain text", http.StatusInternalServerError, `boom`, "boom", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client, _ := NewHTTP(srv.URL)
			_, err := client.Do(context.Background(), http.MethodGet, "/actores", nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Status != tc.status || apiErr.Message != tc.wantMsg {
				t.Fatalf("unexpected error: %+v", apiErr)
			}
			if diff := cmp.Diff(tc.wantFields, apiErr.Fields); diff != "" {
				t.Fatalf("fields mismatch (-want +got):\n%s", diff)
			}
			if !IsStatus(err, tc.status) {
				t.Fatalf("IsStatus should match %d", tc.status)
			}
		})
	}
}

func TestHTTPUnauthorizedHookRequiresCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	calls := 0
	anonymous, _ := NewHTTP(srv.URL, WithOnUnauthorized(func() { calls++ }))
	_, _ = anonymous.Do(context.Background(), http.MethodGet, "/actores", nil)
	if calls != 0 {
		t.Fatalf("hook must not fire without a credential")
	}

	authed, _ := NewHTTP(srv.URL, WithToken("t"), WithOnUnauthorized(func() { calls++ }))
	_, err := authed.Do(context.Background(), http.MethodGet, "/actores", nil)
	if calls != 1 || !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected hook and 401, calls=%d err=%v", calls, err)
	}
}

func TestHTTPNetworkFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, _ := NewHTTP(url)
	_, err := client.Do(context.Background(), http.MethodGet, "/actores", nil)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestNewHTTPRejectsBadBase(t *testing.T) {
	if _, err := NewHTTP("ftp://example.com"); err == nil {
		t.Fatalf("expected error for non-http scheme")
	}
}
