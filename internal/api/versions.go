package api

import (
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/service"
)

// handleSave runs the save pipeline. Lock contention and version
// conflicts answer 409 with a structured payload; they are outcomes,
// not errors.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	p := s.principal(r)

	var req service.SaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BaseVersion == "" {
		httpError(w, http.StatusBadRequest, "base_version is required")
		return
	}

	result, err := s.files.Save(p, fileID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch result.Status {
	case service.StatusLocked, service.StatusConflict:
		writeJSON(w, http.StatusConflict, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// handleResolveConflicts commits the client's conflict resolution.
func (s *Server) handleResolveConflicts(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	p := s.principal(r)

	var req service.ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.files.ResolveConflicts(p, fileID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHistory lists versions newest first with limit/skip pagination.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	branch := r.URL.Query().Get("branch")
	limit := queryInt(r, "limit", 0)
	skip := queryInt(r, "skip", 0)

	result, err := s.files.History(fileID, branch, limit, skip)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleVersionContent serves one version's raw text.
func (s *Server) handleVersionContent(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	versionID := chi.URLParam(r, "versionID")

	content, err := s.files.VersionContent(fileID, versionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(content))
}

// handleDiff compares two stored versions.
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		httpError(w, http.StatusBadRequest, "from and to query parameters are required")
		return
	}

	result, err := s.files.Diff(fileID, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
