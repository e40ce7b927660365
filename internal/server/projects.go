package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/render"
)

type projectList struct {
	Kind   model.Kind    `json:"kind"`
	State  string        `json:"state"`
	Filter string        `json:"filter,omitempty"`
	States []string      `json:"states"`
	Cards  []render.Card `json:"cards"`
	Items  []model.Item  `json:"items"`
	Error  string        `json:"error,omitempty"`
}

func (s *Server) projectRoutes(r chi.Router) {
	r.Get("/", s.handleListProjects)
	r.Post("/", s.handleCreateProject)
	r.Post("/reload", s.handleReloadProjects)
	r.Get("/form", s.handleProjectForm)
	r.Get("/{id}/form", s.handleProjectForm)
	r.Put("/{id}", s.handleUpdateProject)
	r.Delete("/{id}", s.handleDeleteProject)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("estado")
	items, err := s.projects.List(filter)
	if err != nil {
		writeError(s.logger, w, err)
		return
	}
	cards, err := s.projects.Cards(filter)
	if err != nil {
		writeError(s.logger, w, err)
		return
	}
	section := s.projects.Section()
	writeJSON(s.logger, w, http.StatusOK, projectList{
		Kind:   s.projects.Kind(),
		State:  section.State.String(),
		Filter: filter,
		States: s.projects.States(),
		Cards:  cards,
		Items:  items,
		Error:  section.Error,
	})
}

func (s *Server) handleReloadProjects(w http.ResponseWriter, r *http.Request) {
	if _, err := s.projects.Load(r.Context()); err != nil {
		writeError(s.logger, w, err)
		return
	}
	s.handleListProjects(w, r)
}

func (s *Server) handleProjectForm(w http.ResponseWriter, r *http.Request) {
	var id model.ID
	if raw := chi.URLParam(r, "id"); raw != "" {
		var ok bool
		if id, ok = model.NormalizeID(raw); !ok {
			badRequest(s.logger, w, "INVALID_ID", "invalid id: "+raw)
			return
		}
	}
	f, err := s.projects.Form(id)
	if err != nil {
		writeError(s.logger, w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, f)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decodeJSON(r, &values); err != nil {
		badRequest(s.logger, w, "INVALID_BODY", "invalid JSON body: "+err.Error())
		return
	}
	item, err := s.projects.Create(r.Context(), values)
	if err != nil {
		writeError(s.logger, w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusCreated, item)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
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
	item, err := s.projects.Update(r.Context(), id, values)
	if err != nil {
		writeError(s.logger, w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, item)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(s.logger, w, "INVALID_ID", "invalid id: "+chi.URLParam(r, "id"))
		return
	}
	if err := s.projects.Delete(r.Context(), id); err != nil {
		writeError(s.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
