package api

import (
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/auth"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/storage"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates an account. Duplicate emails answer 409.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		httpError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < 4 {
		httpError(w, http.StatusBadRequest, "password is too short")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.users.Create(req.Email, hash)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User registered successfully",
		"user_id": user.ID,
	})
}

// handleLogin checks credentials and issues a bearer token, echoed both
// in the Authorization header and the body.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.users.ByEmail(req.Email)
	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		httpError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.auth.GenerateToken(user.ID, user.Email, "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// handleMe describes the authenticated caller.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := s.principal(r)
	user, err := s.users.ByID(p.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := map[string]any{
		"user_id":      user.ID,
		"email":        user.Email,
		"display_name": usernameOf(user),
	}
	if p.ActiveTeamID != "" {
		resp["active_team_id"] = p.ActiveTeamID
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUserProfile serves the minimal public view of another user.
func (s *Server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	user, err := s.users.ByID(userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      user.ID,
		"display_name": usernameOf(user),
	})
}

func usernameOf(u *storage.User) string {
	return auth.UsernameFromEmail(u.Email)
}
