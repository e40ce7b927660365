// Package tui drives forms and section listings on a terminal through
// survey prompts.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-artefacts/pkg/fields"
	"github.com/goliatone/go-artefacts/pkg/form"
	"github.com/goliatone/go-artefacts/pkg/model"
)

var errRequired = errors.New("campo obligatorio")

// Prompter collects form values interactively.
type Prompter struct {
	cfg config
}

// NewPrompter builds a prompter backed by survey unless a driver is given.
func NewPrompter(options ...Option) *Prompter {
	cfg := config{out: os.Stdout, theme: defaultTheme(), logger: zerolog.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.driver == nil {
		cfg.driver = newSurveyDriver(cfg.out)
	}
	return &Prompter{cfg: cfg}
}

// Fill prompts every editable field of f in order and returns the collected
// values. Read-only fields are printed. Values already in state are offered
// as defaults; state errors are shown before their field.
func (p *Prompter) Fill(ctx context.Context, f form.Form, state *State) (map[string]any, error) {
	if state == nil {
		state = NewState(nil, nil)
	}
	header := fmt.Sprintf("%s %s", modeVerb(f.Mode), f.Title)
	if f.Mode == form.ModeEdit {
		header = fmt.Sprintf("%s (ID: %s)", header, f.ID)
	}
	if err := p.info(ctx, header); err != nil {
		return nil, err
	}

	for _, field := range f.Fields {
		if field.ReadOnly {
			if err := p.info(ctx, fmt.Sprintf("%s: %s", field.Label, defaultText(field.Value))); err != nil {
				return nil, err
			}
			continue
		}
		for _, message := range state.ErrorsFor(field.Name) {
			if err := p.info(ctx, p.cfg.theme.ErrorPrefix+field.Label+": "+message); err != nil {
				return nil, err
			}
		}
		current := field.Value
		if value, ok := state.Value(field.Name); ok {
			current = value
		}
		value, err := p.promptField(ctx, field, current)
		if err != nil {
			return nil, fmt.Errorf("tui: %s: %w", field.Name, err)
		}
		state.Set(field.Name, value)
	}
	return state.Values(), nil
}

// Confirm asks a yes/no question defaulting to no.
func (p *Prompter) Confirm(ctx context.Context, message string) (bool, error) {
	return p.cfg.driver.Confirm(ctx, ConfirmConfig{Message: message})
}

// Notify prints a notice line.
func (p *Prompter) Notify(ctx context.Context, message string) error {
	return p.info(ctx, message)
}

func (p *Prompter) info(ctx context.Context, msg string) error {
	return p.cfg.driver.Info(ctx, p.cfg.theme.InfoPrefix+msg)
}

func (p *Prompter) promptField(ctx context.Context, field form.Field, current any) (any, error) {
	message := field.Label
	if field.Required {
		message += " *"
	}

	switch {
	case field.Descriptor.IsEnum(), field.Descriptor.IsRelation():
		return p.promptChoice(ctx, field, message, current)
	case field.Widget == fields.WidgetTextarea:
		return p.cfg.driver.TextArea(ctx, TextAreaConfig{
			Message:   message,
			Default:   defaultText(current),
			Validator: requiredValidator(field.Required),
		})
	case field.Descriptor.IsNumeric():
		raw, err := p.cfg.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   defaultText(current),
			Validator: numberValidator(field.Required),
		})
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(raw) == "" {
			return nil, nil
		}
		return strings.TrimSpace(raw), nil
	default:
		help := ""
		if field.Widget == fields.WidgetDatetime {
			help = "AAAA-MM-DDTHH:MM"
		}
		return p.cfg.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   defaultText(current),
			Help:      help,
			Validator: requiredValidator(field.Required),
		})
	}
}

// promptChoice offers the enabled options of an enum or relation field.
func (p *Prompter) promptChoice(ctx context.Context, field form.Field, message string, current any) (any, error) {
	selected := ""
	if id, ok := model.NormalizeID(current); ok {
		selected = id.String()
	}

	var labels, values []string
	defaultIndex := 0
	for _, opt := range field.Options {
		if opt.Disabled {
			continue
		}
		if opt.Value == selected {
			defaultIndex = len(values)
		}
		label := opt.Label
		if field.Descriptor.IsRelation() && opt.Value != "" {
			label = fmt.Sprintf("%s (ID: %s)", opt.Label, opt.Value)
		}
		labels = append(labels, label)
		values = append(values, opt.Value)
	}
	if len(values) == 0 {
		return nil, ErrNoOptions
	}

	idx, err := p.cfg.driver.Select(ctx, SelectConfig{
		Message:      message,
		Options:      labels,
		DefaultIndex: defaultIndex,
		PageSize:     10,
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(values) {
		return nil, fmt.Errorf("tui: selection %d out of range", idx)
	}
	if values[idx] == "" && field.Descriptor.IsRelation() {
		return nil, nil
	}
	return values[idx], nil
}

func requiredValidator(required bool) func(string) error {
	if !required {
		return nil
	}
	return func(text string) error {
		if strings.TrimSpace(text) == "" {
			return errRequired
		}
		return nil
	}
}

func numberValidator(required bool) func(string) error {
	return func(text string) error {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			if required {
				return errRequired
			}
			return nil
		}
		if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
			return fmt.Errorf("%q no es un número", trimmed)
		}
		return nil
	}
}

func modeVerb(mode form.Mode) string {
	if mode == form.ModeEdit {
		return "Editar"
	}
	return "Crear"
}

func formatValue(value any) string {
	return model.FormatValue(value)
}
