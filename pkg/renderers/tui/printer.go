package tui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/render"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

// Printer writes Sections as cards. It satisfies render.SectionRenderer.
type Printer struct {
	registry *schema.Registry
	cards    *render.CardBuilder
	cfg      config
	mu       sync.Mutex
}

var _ render.SectionRenderer = (*Printer)(nil)

// NewPrinter builds a card printer writing to stdout unless WithWriter is
// given.
func NewPrinter(registry *schema.Registry, cards *render.CardBuilder, options ...Option) *Printer {
	cfg := config{out: os.Stdout, theme: defaultTheme(), logger: zerolog.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return &Printer{registry: registry, cards: cards, cfg: cfg}
}

// SectionLoaded prints every card of section under the kind's title.
func (p *Printer) SectionLoaded(kind model.Kind, section model.Section) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.write(p.cfg.out, kind, section); err != nil {
		p.cfg.logger.Warn().Err(err).Str("kind", string(kind)).Msg("print section failed")
	}
}

// SectionFailed prints the load error in place of the cards.
func (p *Printer) SectionFailed(kind model.Kind, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	title := p.title(kind)
	if _, werr := fmt.Fprintf(p.cfg.out, "\n== %s ==\n%sError al cargar %s: %v\n", title, p.cfg.theme.ErrorPrefix, title, err); werr != nil {
		p.cfg.logger.Warn().Err(werr).Str("kind", string(kind)).Msg("print failure failed")
	}
}

func (p *Printer) write(out io.Writer, kind model.Kind, section model.Section) error {
	title := p.title(kind)
	if _, err := fmt.Fprintf(out, "\n== %s (%d) ==\n", title, section.Len()); err != nil {
		return err
	}
	if section.Len() == 0 {
		_, err := fmt.Fprintln(out, render.EmptyMessage(title))
		return err
	}
	for _, card := range p.cards.Cards(section) {
		if _, err := fmt.Fprintf(out, "%s [%s] %s\n", p.cfg.theme.CardBullet, card.ID, card.Title); err != nil {
			return err
		}
		for _, line := range card.Lines {
			if _, err := fmt.Fprintf(out, "    %s: %s\n", line.Label, line.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Printer) title(kind model.Kind) string {
	if def, ok := p.registry.Lookup(kind); ok {
		return def.Title
	}
	return string(kind)
}
