package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/auth"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/storage"
)

// workspaceDir resolves which workspace tree a request operates on: the
// active team's, the signed-in user's, or the shared public root.
func (s *Server) workspaceDir(p auth.Principal) string {
	switch {
	case p.ActiveTeamID != "":
		return s.workspace.TeamDir(p.ActiveTeamID)
	case p.Authenticated():
		return s.workspace.UserDir(p.UserID)
	default:
		return s.workspace.Root()
	}
}

// handleGetFile serves the latest mirrored content of a file by name.
// The versioned surface is the source of truth; this is the legacy read
// path for clients that do not speak versions.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "fileID")
	p := s.principal(r)

	content, meta, err := s.workspace.Read(s.workspaceDir(p), filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if meta != nil {
		if raw, err := json.Marshal(meta); err == nil {
			w.Header().Set("X-File-Metadata", string(raw))
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(content)
}

// handleUpload writes the raw request body into the caller's workspace.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	p := s.principal(r)

	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	content, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		s.writeError(w, r, err)
		return
	}

	now := storage.Now()
	meta := &storage.FileMetadata{
		FileName:     filename,
		LastModified: &now,
		TeamID:       p.ActiveTeamID,
	}
	if err := s.workspace.Write(s.workspaceDir(p), filename, content, meta); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "File uploaded successfully",
		"filename": filename,
	})
}

// handleListFiles names the files in the caller's workspace.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	p := s.principal(r)
	names, err := s.workspace.List(s.workspaceDir(p))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": names})
}
