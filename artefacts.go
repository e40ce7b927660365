// Package artefacts is the entry point for embedding a project artefact
// session: open a workspace over the REST backend (or the offline demo),
// bootstrap its sections and export them as documents.
package artefacts

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/goliatone/go-artefacts/pkg/contract"
	"github.com/goliatone/go-artefacts/pkg/schema"
	"github.com/goliatone/go-artefacts/pkg/workspace"
)

// Session aliases workspace.Session for callers that only import the root
// package.
type Session = workspace.Session

// Export aliases workspace.Export.
type Export = workspace.Export

// NewWorkspace opens a workspace and bootstraps every section.
func NewWorkspace(ctx context.Context, session Session, options ...workspace.Option) (*workspace.Workspace, error) {
	ws, err := workspace.Open(session, options...)
	if err != nil {
		return nil, err
	}
	if err := ws.Start(ctx); err != nil {
		return ws, err
	}
	return ws, nil
}

// ExportDocument loads a whole project and renders it in one call. Sections
// that failed to load are exported empty.
func ExportDocument(ctx context.Context, session Session, format string, options ...workspace.Option) (Export, error) {
	ws, err := workspace.Open(session, options...)
	if err != nil {
		return Export{}, err
	}
	// A failed section only empties its own table.
	_ = ws.Start(ctx)
	return ws.Export(ctx, format)
}

// LoadContract reads an OpenAPI document from a file path or an http(s) URL.
func LoadContract(ctx context.Context, source string, opts ...contract.Option) (*contract.Contract, error) {
	data, err := readSource(ctx, strings.TrimSpace(source))
	if err != nil {
		return nil, err
	}
	return contract.Read(ctx, data, opts...)
}

func readSource(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, fmt.Errorf("artefacts: empty contract source")
	}
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("artefacts: read contract: %w", err)
		}
		return data, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("artefacts: contract request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("artefacts: fetch contract: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artefacts: fetch contract: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("artefacts: fetch contract: %w", err)
	}
	return data, nil
}

// EmbeddedSchema exposes the bundled registry document so callers can extend
// it and load the result with schema.LoadFS.
func EmbeddedSchema() fs.FS {
	return schema.EmbeddedFS()
}
