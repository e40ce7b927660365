package render

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-artefacts/pkg/export"
	"github.com/goliatone/go-artefacts/pkg/fields"
	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/relation"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

const (
	untitled     = "Sin Título"
	missingValue = "N/A"
	noReference  = "Ninguno"
)

// Card is the list view of one item: its title plus the remaining display
// fields in declared order.
type Card struct {
	ID    model.ID   `json:"id"`
	Title string     `json:"title"`
	Lines []CardLine `json:"lines"`
}

// CardLine is one labelled value on a card.
type CardLine struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// CardBuilder projects Sections into cards.
type CardBuilder struct {
	registry *schema.Registry
	resolver *relation.Resolver
	dates    export.DateFormatter
}

// NewCardBuilder builds cards resolving relations through resolver.
func NewCardBuilder(registry *schema.Registry, resolver *relation.Resolver, dates export.DateFormatter) *CardBuilder {
	return &CardBuilder{registry: registry, resolver: resolver, dates: dates}
}

// Cards renders every item of section.
func (b *CardBuilder) Cards(section model.Section) []Card {
	def, ok := b.registry.Lookup(section.Kind)
	if !ok {
		return nil
	}
	display := def.DisplayFields
	if len(display) == 0 {
		display = def.Fields
	}

	out := make([]Card, 0, section.Len())
	for _, item := range section.Items {
		id, _ := item.ID(def.IDField)
		card := Card{ID: id, Title: strings.TrimSpace(item.Text(def.Fields[0]))}
		if card.Title == "" {
			card.Title = untitled
		}
		if len(display) > 1 {
			for _, name := range display[1:] {
				card.Lines = append(card.Lines, CardLine{
					Field: name,
					Label: def.FieldLabel(name),
					Value: b.value(def, item, name),
				})
			}
		}
		out = append(out, card)
	}
	return out
}

func (b *CardBuilder) value(def schema.EntityKind, item model.Item, name string) string {
	raw, _ := item.Get(name)
	desc := b.registry.Resolve(name, def.Key)
	switch desc.Widget {
	case fields.WidgetRelation:
		if model.IsBlank(raw) {
			return noReference
		}
		return b.resolver.LabelFor(desc.Target, raw)
	case fields.WidgetDatetime:
		if model.IsBlank(raw) {
			return missingValue
		}
		return b.dates.Format(model.FormatValue(raw))
	default:
		if raw == nil {
			return missingValue
		}
		return model.FormatValue(raw)
	}
}

// EmptyMessage is shown in place of cards for an empty Section.
func EmptyMessage(title string) string {
	return fmt.Sprintf("No hay elementos en %s.", title)
}
