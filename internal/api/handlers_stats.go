package api

import "net/http"

func (s *Server) handleQueryStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.svc.Stats(),
	})
}
