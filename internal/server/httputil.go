package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/mutation"
	"github.com/goliatone/go-artefacts/pkg/render"
	"github.com/goliatone/go-artefacts/pkg/schema"
	"github.com/goliatone/go-artefacts/pkg/store"
	"github.com/goliatone/go-artefacts/pkg/transport"
	"github.com/goliatone/go-artefacts/pkg/workspace"
)

type errorBody struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
	Form   []string            `json:"form,omitempty"`
}

func writeJSON(log zerolog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func pathKind(r *http.Request) model.Kind {
	return model.Kind(chi.URLParam(r, "kind"))
}

func pathID(r *http.Request) (model.ID, bool) {
	return model.NormalizeID(chi.URLParam(r, "id"))
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(log zerolog.Logger, w http.ResponseWriter, err error) {
	var (
		verr   *mutation.ValidationError
		apiErr *transport.APIError
		trErr  *transport.TransportError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(log, w, http.StatusUnprocessableEntity, errorBody{
			Error:  err.Error(),
			Code:   "VALIDATION_ERROR",
			Fields: verr.Fields,
			Form:   verr.Form,
		})
	case errors.Is(err, store.ErrInFlight):
		writeJSON(log, w, http.StatusConflict, errorBody{Error: err.Error(), Code: "IN_FLIGHT"})
	case errors.Is(err, schema.ErrUnknownKind):
		writeJSON(log, w, http.StatusNotFound, errorBody{Error: err.Error(), Code: "UNKNOWN_KIND"})
	case errors.Is(err, workspace.ErrUnknownState):
		writeJSON(log, w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: "UNKNOWN_STATE"})
	case errors.Is(err, workspace.ErrNotFound):
		writeJSON(log, w, http.StatusNotFound, errorBody{Error: err.Error(), Code: "NOT_FOUND"})
	case errors.Is(err, render.ErrUnknownRenderer):
		writeJSON(log, w, http.StatusNotFound, errorBody{Error: err.Error(), Code: "UNKNOWN_FORMAT"})
	case errors.As(err, &apiErr):
		writeJSON(log, w, apiErr.Status, errorBody{Error: err.Error(), Code: "BACKEND_ERROR"})
	case errors.As(err, &trErr):
		writeJSON(log, w, http.StatusBadGateway, errorBody{Error: err.Error(), Code: "TRANSPORT_ERROR"})
	default:
		log.Error().Err(err).Msg("internal error")
		writeJSON(log, w, http.StatusInternalServerError, errorBody{Error: "internal server error", Code: "INTERNAL_ERROR"})
	}
}

func badRequest(log zerolog.Logger, w http.ResponseWriter, code, message string) {
	writeJSON(log, w, http.StatusBadRequest, errorBody{Error: message, Code: code})
}
