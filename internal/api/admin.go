package api

import (
	"net/http"
	"time"
)

// handleAdminLocks snapshots the lock registry.
func (s *Server) handleAdminLocks(w http.ResponseWriter, r *http.Request) {
	infos := s.locks.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"locks": infos,
		"count": len(infos),
	})
}

// handleStats reports storage, cache and mirror queue counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"storage":        s.files.Stats(),
		"cache":          s.cache.Stats(),
		"mirror_queue":   s.mirror.Stats(),
	})
}
