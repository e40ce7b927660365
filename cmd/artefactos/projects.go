package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/renderers/tui"
	"github.com/goliatone/go-artefacts/pkg/workspace"
)

const projectsUsage = "projects [create | edit <id> | delete <id>]"

// projects lists the account's projects, or creates, edits or deletes one.
func (a *app) projects(ctx context.Context, inv *invocation) error {
	args := inv.args
	action := "list"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}
	want := map[string]int{"list": 0, "create": 0, "edit": 1, "delete": 1}
	n, ok := want[action]
	if !ok || len(args) != n {
		return fmt.Errorf("usage: %s", projectsUsage)
	}
	var id model.ID
	if n == 1 {
		if id, ok = model.NormalizeID(args[0]); !ok {
			return fmt.Errorf("invalid id %q", args[0])
		}
	}

	p, err := workspace.OpenProjects(session(inv.cfg), a.baseOptions(inv)...)
	if err != nil {
		return err
	}
	if _, err := p.Load(ctx); err != nil {
		return err
	}

	switch action {
	case "create", "edit":
		f, err := p.Form(id)
		if err != nil {
			return err
		}
		err = a.fill(ctx, inv, f, func(values map[string]any) error {
			if id.IsZero() {
				_, err := p.Create(ctx, values)
				return err
			}
			_, err := p.Update(ctx, id, values)
			return err
		})
		if err != nil {
			return err
		}
	case "delete":
		item, err := p.Item(id)
		if err != nil {
			return err
		}
		prompter := a.prompter(inv)
		if !inv.yes {
			question := fmt.Sprintf("¿Eliminar el proyecto \"%s\" (ID: %s)? Se perderán sus artefactos.", item.Text("nombre"), id)
			confirmed, err := prompter.Confirm(ctx, question)
			if err != nil {
				return err
			}
			if !confirmed {
				return prompter.Notify(ctx, "Cancelado")
			}
		}
		if err := p.Delete(ctx, id); err != nil {
			return err
		}
		_ = prompter.Notify(ctx, "Eliminado")
	}
	return a.printProjects(p, inv)
}

func (a *app) printProjects(p *workspace.Projects, inv *invocation) error {
	items, err := p.List(inv.estado)
	if err != nil {
		return err
	}
	section := p.Section()
	printer := tui.NewPrinter(p.Registry(), p.CardBuilder(), tui.WithWriter(a.stdout), tui.WithLogger(inv.log))
	if section.State == model.StateFailed {
		printer.SectionFailed(p.Kind(), errors.New(section.Error))
		return nil
	}
	section.Items = items
	printer.SectionLoaded(p.Kind(), section)
	return nil
}
