package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	artefacts "github.com/goliatone/go-artefacts"
	"github.com/goliatone/go-artefacts/internal/config"
	"github.com/goliatone/go-artefacts/internal/server"
	"github.com/goliatone/go-artefacts/pkg/form"
	"github.com/goliatone/go-artefacts/pkg/logger"
	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/mutation"
	"github.com/goliatone/go-artefacts/pkg/renderers/tui"
	"github.com/goliatone/go-artefacts/pkg/schema"
	"github.com/goliatone/go-artefacts/pkg/workspace"
)

// errSilent marks failures whose details were already printed.
var errSilent = errors.New("artefactos: failed")

type app struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	driver tui.PromptDriver
}

type invocation struct {
	cfg    config.Config
	log    zerolog.Logger
	args   []string
	yes    bool
	format string
	output string
	addr   string
	estado string
}

// command declares how many positional arguments it takes; -1 means the
// command checks them itself. Account commands need no project id.
type command struct {
	args    int
	account bool
	run     func(*app, context.Context, *invocation) error
}

var commands = map[string]command{
	"list":     {args: 1, run: (*app).list},
	"show":     {args: 0, run: (*app).show},
	"create":   {args: 1, run: (*app).create},
	"edit":     {args: 2, run: (*app).edit},
	"delete":   {args: 2, run: (*app).remove},
	"export":   {args: 0, run: (*app).export},
	"contract": {args: 0, run: (*app).contract},
	"serve":    {args: 0, run: (*app).serve},
	"projects": {args: -1, account: true, run: (*app).projects},
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(a.stdout)
		return nil
	}
	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		printUsage(a.stderr)
		return fmt.Errorf("unknown command %q", name)
	}

	inv := &invocation{}
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	set.SetOutput(a.stderr)
	flags := config.Bind(set)
	switch name {
	case "delete":
		set.BoolVar(&inv.yes, "yes", false, "delete without asking")
	case "export":
		set.StringVar(&inv.format, "format", "paginated", "document format (paginated, styled)")
		set.StringVar(&inv.output, "output", "", "output path, - for stdout (defaults to the project file name)")
	case "serve":
		set.StringVar(&inv.addr, "addr", "127.0.0.1:8080", "listen address")
	case "projects":
		set.StringVar(&inv.estado, "estado", "", "only list projects in this state (Activo, Completado, Cancelado)")
		set.BoolVar(&inv.yes, "yes", false, "delete without asking")
	}
	if err := set.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	inv.args = set.Args()
	if cmd.args >= 0 && len(inv.args) != cmd.args {
		return fmt.Errorf("%s expects %d argument(s), got %d", name, cmd.args, len(inv.args))
	}

	resolve := config.Resolve
	if cmd.account {
		resolve = config.ResolveAccount
	}
	cfg, err := resolve(flags, a.getenv)
	if err != nil {
		return err
	}
	inv.cfg = cfg

	handle, err := logger.New().FromWriter(a.stderr).FromPath(cfg.LogFile).WithLevel(cfg.LogLevel).Make()
	if err != nil {
		return err
	}
	defer handle.Close()
	inv.log = handle.Logger.With().Str("command", name).Logger()

	return cmd.run(a, ctx, inv)
}

func session(cfg config.Config) workspace.Session {
	return workspace.Session{
		Project: cfg.ProjectID,
		BaseURL: cfg.BaseURL,
		Token:   cfg.Token,
		Offline: cfg.Offline,
		Locale:  cfg.Locale,
	}
}

func (a *app) baseOptions(inv *invocation) []workspace.Option {
	return []workspace.Option{
		workspace.WithLogger(inv.log),
		workspace.WithOnUnauthorized(func() {
			inv.log.Warn().Msg("credential rejected by the backend, sign in again")
		}),
	}
}

func (a *app) open(ctx context.Context, inv *invocation, extra ...workspace.Option) (*workspace.Workspace, error) {
	cfg := inv.cfg
	options := append(a.baseOptions(inv), workspace.WithTheme(cfg.Theme, cfg.ThemeVariant))
	if cfg.OpenAPI != "" {
		c, err := artefacts.LoadContract(ctx, cfg.OpenAPI)
		if err != nil {
			return nil, err
		}
		options = append(options, workspace.WithContract(c))
	}
	options = append(options, extra...)

	ws, err := artefacts.NewWorkspace(ctx, session(cfg), options...)
	if ws == nil {
		return nil, err
	}
	if err != nil {
		inv.log.Warn().Err(err).Msg("some sections failed to load")
	}
	return ws, nil
}

func (a *app) prompter(inv *invocation) *tui.Prompter {
	return tui.NewPrompter(
		tui.WithPromptDriver(a.driver),
		tui.WithWriter(a.stdout),
		tui.WithLogger(inv.log),
	)
}

func (a *app) printer(ws *workspace.Workspace, inv *invocation) *tui.Printer {
	return tui.NewPrinter(ws.Registry(), ws.CardBuilder(), tui.WithWriter(a.stdout), tui.WithLogger(inv.log))
}

func (a *app) print(ws *workspace.Workspace, inv *invocation, kinds ...model.Kind) error {
	printer := a.printer(ws, inv)
	for _, kind := range kinds {
		section, err := ws.Section(kind)
		if err != nil {
			return err
		}
		if section.State == model.StateFailed {
			printer.SectionFailed(kind, errors.New(section.Error))
			continue
		}
		printer.SectionLoaded(kind, section)
	}
	return nil
}

func (a *app) list(ctx context.Context, inv *invocation) error {
	kind := model.Kind(inv.args[0])
	ws, err := a.open(ctx, inv)
	if err != nil {
		return err
	}
	return a.print(ws, inv, kind)
}

func (a *app) show(ctx context.Context, inv *invocation) error {
	ws, err := a.open(ctx, inv)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Proyecto: %s (%s)\n", ws.Project().Name, ws.Project().ID)
	return a.print(ws, inv, ws.Kinds()...)
}

func (a *app) create(ctx context.Context, inv *invocation) error {
	return a.submit(ctx, inv, model.Kind(inv.args[0]), "")
}

func (a *app) edit(ctx context.Context, inv *invocation) error {
	id, ok := model.NormalizeID(inv.args[1])
	if !ok {
		return fmt.Errorf("invalid id %q", inv.args[1])
	}
	return a.submit(ctx, inv, model.Kind(inv.args[0]), id)
}

// submit prompts until the backend accepts the form or the user aborts.
func (a *app) submit(ctx context.Context, inv *invocation, kind model.Kind, id model.ID) error {
	ws, err := a.open(ctx, inv)
	if err != nil {
		return err
	}
	f, err := ws.Form(kind, id)
	if err != nil {
		return err
	}
	err = a.fill(ctx, inv, f, func(values map[string]any) error {
		if id.IsZero() {
			_, err := ws.Create(ctx, kind, values)
			return err
		}
		_, err := ws.Update(ctx, kind, id, values)
		return err
	})
	if err != nil {
		return err
	}
	return a.print(ws, inv, kind)
}

// fill prompts f until save accepts the values. Rejected fields are shown
// next to their prompt on the next attempt.
func (a *app) fill(ctx context.Context, inv *invocation, f form.Form, save func(map[string]any) error) error {
	prompter := a.prompter(inv)
	state := tui.NewState(nil, nil)
	for {
		values, err := prompter.Fill(ctx, f, state)
		if err != nil {
			return err
		}
		err = save(values)
		var verr *mutation.ValidationError
		if errors.As(err, &verr) {
			state.SetErrors(verr.Fields)
			for _, msg := range verr.Form {
				_ = prompter.Notify(ctx, msg)
			}
			_ = prompter.Notify(ctx, "Revise los campos marcados")
			continue
		}
		if err != nil {
			return err
		}
		_ = prompter.Notify(ctx, "Guardado")
		return nil
	}
}

func (a *app) remove(ctx context.Context, inv *invocation) error {
	kind := model.Kind(inv.args[0])
	id, ok := model.NormalizeID(inv.args[1])
	if !ok {
		return fmt.Errorf("invalid id %q", inv.args[1])
	}
	ws, err := a.open(ctx, inv)
	if err != nil {
		return err
	}
	item, err := ws.Item(kind, id)
	if err != nil {
		return err
	}

	prompter := a.prompter(inv)
	if !inv.yes {
		def := ws.Registry().Describe(kind)
		question := fmt.Sprintf("¿Eliminar %s \"%s\" (ID: %s)?", def.Title, item.Text(def.TitleField()), id)
		confirmed, err := prompter.Confirm(ctx, question)
		if err != nil {
			return err
		}
		if !confirmed {
			return prompter.Notify(ctx, "Cancelado")
		}
	}
	if err := ws.Delete(ctx, kind, id); err != nil {
		return err
	}
	_ = prompter.Notify(ctx, "Eliminado")
	return a.print(ws, inv, kind)
}

func (a *app) export(ctx context.Context, inv *invocation) error {
	ws, err := a.open(ctx, inv)
	if err != nil {
		return err
	}
	doc, err := ws.Export(ctx, inv.format)
	if err != nil {
		return err
	}
	if inv.output == "-" {
		_, err := a.stdout.Write(doc.Data)
		return err
	}
	path := inv.output
	if path == "" {
		path = doc.FileName
	}
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(a.stdout, "Documento escrito en %s\n", path)
	return nil
}

func (a *app) contract(ctx context.Context, inv *invocation) error {
	if inv.cfg.OpenAPI == "" {
		return errors.New("contract needs --openapi")
	}
	c, err := artefacts.LoadContract(ctx, inv.cfg.OpenAPI)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Contrato: %s %s\n", c.Title, c.Version)

	drifted := false
	for _, d := range c.Drift(schema.Default()) {
		if d.Empty() {
			continue
		}
		drifted = true
		fmt.Fprintln(a.stdout, d.String())
	}
	if drifted {
		return errSilent
	}
	fmt.Fprintln(a.stdout, "Sin diferencias con el registro")
	return nil
}

func (a *app) serve(ctx context.Context, inv *invocation) error {
	hub := server.NewHub(inv.log)
	ws, err := a.open(ctx, inv, workspace.WithRenderer(hub))
	if err != nil {
		return err
	}
	options := []server.Option{server.WithLogger(inv.log)}
	projectOpts := append(a.baseOptions(inv), workspace.WithTransport(ws.Transport()), workspace.WithRenderer(hub))
	if projects, err := workspace.OpenProjects(ws.Session(), projectOpts...); err != nil {
		inv.log.Warn().Err(err).Msg("project list unavailable")
	} else {
		if _, err := projects.Load(ctx); err != nil {
			inv.log.Warn().Err(err).Msg("project list failed to load")
		}
		options = append(options, server.WithProjects(projects))
	}
	srv := server.New(ws, hub, options...)
	fmt.Fprintf(a.stdout, "Proyecto %s en http://%s\n", ws.Project().Name, inv.addr)
	return srv.ListenAndServe(ctx, inv.addr)
}
