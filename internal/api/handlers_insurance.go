package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/importer"
	"github.com/dgallion1/insurtree/internal/store"
)

// handleTop serves the top combined values with depth restraint.
func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	maxCount, err := strconv.Atoi(chi.URLParam(r, "maxCount"))
	if err != nil {
		jsonError(w, fmt.Sprintf("maxCount must be an integer, got %q", chi.URLParam(r, "maxCount")), http.StatusBadRequest)
		return
	}
	maxDepth, err := strconv.Atoi(chi.URLParam(r, "maxDepth"))
	if err != nil {
		jsonError(w, fmt.Sprintf("maxDepth must be an integer, got %q", chi.URLParam(r, "maxDepth")), http.StatusBadRequest)
		return
	}

	results, err := s.svc.Top(r.Context(), maxCount, maxDepth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleListInsurances(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.Records(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []engine.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"insurances": records})
}

// handleUpsertInsurances applies a JSON array of records. ?mode=replace swaps
// the whole table instead of merging.
func (s *Server) handleUpsertInsurances(w http.ResponseWriter, r *http.Request) {
	mode, err := store.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	records, err := importer.DecodeJSON(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.writer.Apply(r.Context(), records, mode); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"upserted": len(records), "mode": mode})
}

func (s *Server) handleDeleteInsurance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "id must be an integer", http.StatusBadRequest)
		return
	}
	if err := s.writer.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
