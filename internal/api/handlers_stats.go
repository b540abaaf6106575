package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.adapter == nil || s.adapter.Stats() == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":   s.adapter.Model(),
		"profile": s.adapter.Profile().Name,
		"queue":   s.orchestrator.QueueDepth(),
		"stats":   s.adapter.Stats().Snapshot(),
	})
}
