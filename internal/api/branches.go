package api

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/service"
)

// handleCreateBranch forks a named branch. An unknown base version is a
// 400, not a 404: the file exists, the client picked a bad fork point.
func (s *Server) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	p := s.principal(r)

	var req service.BranchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	branch, err := s.files.CreateBranch(p, fileID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, branch)
}

// handleMergeBranches merges source into target. A conflicted merge
// answers 409 with the conflicts and a marker-rendered merge text.
func (s *Server) handleMergeBranches(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	p := s.principal(r)

	var req service.MergeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.files.MergeBranches(p, fileID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result.Status == service.StatusConflict {
		writeJSON(w, http.StatusConflict, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
