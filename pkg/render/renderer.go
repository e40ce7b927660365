package render

import (
	"context"
	"time"

	"github.com/goliatone/go-artefacts/pkg/export"
	"github.com/goliatone/go-artefacts/pkg/model"
)

// SectionRenderer is told when a visible load finishes. Silent loads never
// reach it.
type SectionRenderer interface {
	SectionLoaded(kind model.Kind, section model.Section)
	SectionFailed(kind model.Kind, err error)
}

// Document is what document renderers consume: the project header plus one
// table per non-empty Section.
type Document struct {
	Project     export.Project
	Tables      []export.Table
	GeneratedAt time.Time
}

// DocumentRenderer turns a Document into file bytes.
type DocumentRenderer interface {
	Name() string
	Extension() string
	ContentType() string
	Render(ctx context.Context, doc Document) ([]byte, error)
}

// Nop ignores every notification.
type Nop struct{}

func (Nop) SectionLoaded(model.Kind, model.Section) {}
func (Nop) SectionFailed(model.Kind, error)         {}

// Multi fans notifications out to several renderers in order.
type Multi []SectionRenderer

func (m Multi) SectionLoaded(kind model.Kind, section model.Section) {
	for _, r := range m {
		if r != nil {
			r.SectionLoaded(kind, section)
		}
	}
}

func (m Multi) SectionFailed(kind model.Kind, err error) {
	for _, r := range m {
		if r != nil {
			r.SectionFailed(kind, err)
		}
	}
}
