package artefacts

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-artefacts/pkg/transport"
)

func TestExportDocumentOffline(t *testing.T) {
	doc, err := ExportDocument(context.Background(), Session{Project: transport.DemoProject}, "styled")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.FileName != "Proyecto_de_Demostración_detalle.doc" {
		t.Fatalf("unexpected file name %q", doc.FileName)
	}
	if !strings.Contains(string(doc.Data), "Req Demo 1") {
		t.Fatalf("expected requirement rows in export")
	}
}

func TestNewWorkspaceBootstraps(t *testing.T) {
	ws, err := NewWorkspace(context.Background(), Session{Offline: true, Project: transport.DemoProject})
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	section, err := ws.Section("requisitos")
	if err != nil || section.Len() != 2 {
		t.Fatalf("expected 2 requirements, got %d (%v)", section.Len(), err)
	}
}

func TestLoadContractFromFileAndURL(t *testing.T) {
	path := filepath.Join("pkg", "contract", "testdata", "openapi.json")
	fromFile, err := LoadContract(context.Background(), path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if len(fromFile.Kinds()) == 0 {
		t.Fatalf("expected matched kinds")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	fromURL, err := LoadContract(context.Background(), srv.URL+"/openapi.json")
	if err != nil {
		t.Fatalf("load url: %v", err)
	}
	if len(fromURL.Kinds()) != len(fromFile.Kinds()) {
		t.Fatalf("url and file contracts differ")
	}

	if _, err := LoadContract(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty source")
	}
}

func TestEmbeddedSchemaHasKinds(t *testing.T) {
	data, err := fs.ReadFile(EmbeddedSchema(), "kinds.yaml")
	if err != nil {
		t.Fatalf("read embedded schema: %v", err)
	}
	if !strings.Contains(string(data), "requisitos") {
		t.Fatalf("expected requisitos in embedded schema")
	}
}
