// Package testsupport holds fixtures shared by package tests: the demo
// backend at a fixed clock and stores sized for a registry.
package testsupport

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/goliatone/go-artefacts/pkg/schema"
	"github.com/goliatone/go-artefacts/pkg/store"
	"github.com/goliatone/go-artefacts/pkg/transport"
)

// Now is the clock every fixture is stamped with.
var Now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// Clock returns Now.
func Clock() time.Time {
	return Now
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// DemoBackend builds the offline demo backend for reg stamped at Now.
func DemoBackend(t *testing.T, reg *schema.Registry) *transport.Memory {
	t.Helper()
	backend, err := transport.Demo(reg, Now)
	if err != nil {
		t.Fatalf("demo backend: %v", err)
	}
	return backend
}

// NewStore declares one empty Section per registry kind.
func NewStore(reg *schema.Registry) *store.Store {
	var decls []store.Declaration
	for _, kind := range reg.Kinds() {
		decls = append(decls, store.Declaration{Kind: kind, IDField: reg.Describe(kind).IDField})
	}
	return store.New(decls...)
}

// MustReadFile reads a fixture.
func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}
