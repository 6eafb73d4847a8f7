package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider reports runtime state of the feed service.
type StatsProvider interface {
	GetStats() map[string]any
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	out := map[string]any{}
	if s.stats != nil {
		maps.Copy(out, s.stats.GetStats())
	}
	out["uptimeSeconds"] = time.Since(s.started).Seconds()
	writeJSON(w, http.StatusOK, out)
}
