package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/importer"
	"github.com/dgallion1/insurtree/internal/store"
)

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *engine.ValidationError
		cerr *engine.ConstructionError
		rerr *importer.RowError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &rerr):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": err.Error(),
			"ids":   cerr.IDs,
		})
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrReadOnly):
		jsonError(w, err.Error(), http.StatusMethodNotAllowed)
	case store.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		jsonError(w, "store temporarily unavailable", http.StatusServiceUnavailable)
	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
