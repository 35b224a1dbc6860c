package api

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/service"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/storage"
)

// handleStartEditing acquires the edit lock and registers the caller on
// the active editor roster. A lock held by someone else answers 409.
func (s *Server) handleStartEditing(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	p := s.principal(r)

	var req struct {
		Branch string `json:"branch,omitempty"`
	}
	if r.ContentLength > 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	result, err := s.files.StartEditing(p, fileID, req.Branch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result.ActiveEditors = s.enrichEditors(result.ActiveEditors)
	if result.Status == service.StatusLocked {
		writeJSON(w, http.StatusConflict, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleStopEditing releases the lock and leaves the roster.
func (s *Server) handleStopEditing(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	p := s.principal(r)

	result, err := s.files.StopEditing(p, fileID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result.ActiveEditors = s.enrichEditors(result.ActiveEditors)
	writeJSON(w, http.StatusOK, result)
}

// handleActiveEditors reads the roster.
func (s *Server) handleActiveEditors(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	editors, err := s.files.ActiveEditors(fileID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active_editors": s.enrichEditors(editors),
	})
}

// handleLockStatus reports the lock from the caller's point of view.
func (s *Server) handleLockStatus(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	p := s.principal(r)
	writeJSON(w, http.StatusOK, s.files.LockStatus(fileID, p.UserID))
}

// handleAcquireLock takes or renews the edit lock without joining the
// editor roster.
func (s *Server) handleAcquireLock(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	p := s.principal(r)

	if !s.files.AcquireLock(fileID, p.UserID) {
		holder, _ := s.locks.Holder(fileID)
		writeJSON(w, http.StatusConflict, map[string]any{
			"status":      service.StatusLocked,
			"lock_holder": holder,
			"message":     "File is currently being edited by another user",
		})
		return
	}
	writeJSON(w, http.StatusOK, s.files.LockStatus(fileID, p.UserID))
}

// handleReleaseLock drops the caller's lock.
func (s *Server) handleReleaseLock(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	p := s.principal(r)

	released := s.files.ReleaseLock(fileID, p.UserID)
	writeJSON(w, http.StatusOK, map[string]any{
		"released": released,
	})
}

// enrichEditors attaches display names resolved from the user store.
// The enrichment is per-response only; stored roster records never
// carry it.
func (s *Server) enrichEditors(editors []storage.ActiveEditor) []storage.ActiveEditor {
	out := make([]storage.ActiveEditor, len(editors))
	for i, ed := range editors {
		out[i] = ed
		if ed.Username != "" {
			continue
		}
		if user, err := s.users.ByID(ed.UserID); err == nil {
			out[i].Username = usernameOf(user)
		}
	}
	return out
}
