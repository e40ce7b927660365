// Package server exposes one workspace to a local browser: JSON routes for
// sections, forms, mutations and exports, plus a websocket redraw stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-artefacts/pkg/export"
	"github.com/goliatone/go-artefacts/pkg/form"
	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/render"
	"github.com/goliatone/go-artefacts/pkg/workspace"
)

const shutdownTimeout = 5 * time.Second

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithProjects exposes the account's project list under /api/projects.
func WithProjects(projects *workspace.Projects) Option {
	return func(s *Server) {
		s.projects = projects
	}
}

// Server routes HTTP requests to a workspace.
type Server struct {
	ws       *workspace.Workspace
	projects *workspace.Projects
	hub      *Hub
	router   chi.Router
	logger   zerolog.Logger
}

type sectionSummary struct {
	Kind  model.Kind `json:"kind"`
	Title string     `json:"title"`
	State string     `json:"state"`
	Count int        `json:"count"`
	Error string     `json:"error,omitempty"`
}

type sectionBody struct {
	sectionSummary
	Cards []render.Card `json:"cards"`
	Items []model.Item  `json:"items"`
	Empty string        `json:"empty,omitempty"`
}

type projectBody struct {
	Project export.Project `json:"project"`
	Formats []string       `json:"formats"`
}

// New builds the router. hub may be nil when no redraw stream is wanted; it
// should be the same hub the workspace renders to.
func New(ws *workspace.Workspace, hub *Hub, options ...Option) *Server {
	s := &Server{ws: ws, hub: hub, logger: zerolog.Nop()}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if hub != nil {
		r.Handle("/ws", hub)
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/project", s.handleProject)
		api.Get("/sections", s.handleListSections)
		api.Get("/sections/{kind}", s.handleGetSection)
		api.Post("/sections/{kind}", s.handleCreate)
		api.Put("/sections/{kind}/{id}", s.handleUpdate)
		api.Delete("/sections/{kind}/{id}", s.handleDelete)
		api.Post("/sections/{kind}/reload", s.handleReload)
		api.Get("/forms/{kind}", s.handleForm)
		api.Get("/forms/{kind}/{id}", s.handleForm)
		api.Get("/export/{format}", s.handleExport)
		if s.projects != nil {
			api.Route("/projects", s.projectRoutes)
		}
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) summary(section model.Section) sectionSummary {
	return sectionSummary{
		Kind:  section.Kind,
		Title: s.ws.Registry().Describe(section.Kind).Title,
		State: section.State.String(),
		Count: section.Len(),
		Error: section.Error,
	}
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, projectBody{Project: s.ws.Project(), Formats: s.ws.Formats()})
}

func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	out := make([]sectionSummary, 0, len(s.ws.Kinds()))
	for _, kind := range s.ws.Kinds() {
		section, err := s.ws.Section(kind)
		if err != nil {
			writeError(s.logger, w, err)
			return
		}
		out = append(out, s.summary(section))
	}
	writeJSON(s.logger, w, http.StatusOK, out)
}

func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	s.writeSection(w, pathKind(r))
}

func (s *Server) writeSection(w http.ResponseWriter, kind model.Kind) {
	section, err := s.ws.Section(kind)
	if err != nil {
		writeError(s.logger, w, err)
		return
	}
	cards, err := s.ws.Cards(kind)
	if err != nil {
		writeError(s.logger, w, err)
		return
	}
	body := sectionBody{
		sectionSummary: s.summary(section),
		Cards:          cards,
		Items:          section.Items,
	}
	if body.Items == nil {
		body.Items = []model.Item{}
	}
	if len(cards) == 0 && section.State != model.StateFailed {
		body.Empty = render.EmptyMessage(body.Title)
	}
	writeJSON(s.logger, w, http.StatusOK, body)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	kind := pathKind(r)
	if _, err := s.ws.Reload(r.Context(), kind); err != nil {
		writeError(s.logger, w, err)
		return
	}
	s.writeSection(w, kind)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decodeJSON(r, &values); err != nil {
		badRequest(s.logger, w, "INVALID_BODY", "invalid JSON body: "+err.Error())
		return
	}
	item, err := s.ws.Create(r.Context(), pathKind(r), values)
	if err != nil {
		writeError(s.logger, w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusCreated, item)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(s.logger, w, "INVALID_ID", "invalid id: "+chi.URLParam(r, "id"))
		return
	}
	var values map[string]any
	if err := decodeJSON(r, &values); err != nil {
		badRequest(s.logger, w, "INVALID_BODY", "invalid JSON body: "+err.Error())
		return
	}
	item, err := s.ws.Update(r.Context(), pathKind(r), id, values)
	if err != nil {
		writeError(s.logger, w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, item)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(s.logger, w, "INVALID_ID", "invalid id: "+chi.URLParam(r, "id"))
		return
	}
	if err := s.ws.Delete(r.Context(), pathKind(r), id); err != nil {
		writeError(s.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	var id model.ID
	if raw := chi.URLParam(r, "id"); raw != "" {
		var ok bool
		if id, ok = model.NormalizeID(raw); !ok {
			badRequest(s.logger, w, "INVALID_ID", "invalid id: "+raw)
			return
		}
	}
	f, err := s.ws.Form(pathKind(r), id)
	if err != nil {
		if errors.Is(err, form.ErrMissingID) {
			badRequest(s.logger, w, "MISSING_ID", err.Error())
			return
		}
		writeError(s.logger, w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, f)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ws.Export(r.Context(), chi.URLParam(r, "format"))
	if err != nil {
		writeError(s.logger, w, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		s.logger.Warn().Err(err).Msg("write export")
	}
}
