package api

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/storage"
)

// requireMember loads the caller's membership, answering 403 itself
// when the caller is not in the team. Returns ok=false when a response
// has already been written.
func (s *Server) requireMember(w http.ResponseWriter, r *http.Request, teamID string, min storage.TeamRole) (storage.TeamRole, bool) {
	p := s.principal(r)
	role, member, err := s.teams.Role(teamID, p.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return 0, false
	}
	if !member {
		httpError(w, http.StatusForbidden, "not a member of this team")
		return 0, false
	}
	if role < min {
		httpError(w, http.StatusForbidden, "insufficient team role")
		return 0, false
	}
	return role, true
}

// handleCreateTeam creates a team, makes the caller its owner and
// prepares the team's workspace directory.
func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	p := s.principal(r)

	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httpError(w, http.StatusBadRequest, "team name is required")
		return
	}

	team := &storage.Team{
		ID:        uuid.NewString(),
		Name:      req.Name,
		OwnerID:   p.UserID,
		CreatedAt: storage.Now(),
	}
	if err := s.teams.Save(team); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.teams.SaveMember(&storage.TeamMember{
		UserID: p.UserID,
		TeamID: team.ID,
		Role:   storage.RoleOwner,
	}); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := os.MkdirAll(s.workspace.TeamDir(team.ID), 0o755); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("team created", slog.String("team_id", team.ID), slog.String("owner", p.UserID))
	writeJSON(w, http.StatusOK, team)
}

// handleListTeams lists the teams the caller belongs to.
func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	p := s.principal(r)
	teams, err := s.teams.TeamsForUser(p.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	if _, ok := s.requireMember(w, r, teamID, storage.RoleViewer); !ok {
		return
	}
	team, err := s.teams.ByID(teamID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// handleDeleteTeam tears a team down: memberships, pending invitations
// and the team workspace go first, the team document last.
func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	if _, ok := s.requireMember(w, r, teamID, storage.RoleOwner); !ok {
		return
	}

	members, err := s.teams.Members(teamID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for _, m := range members {
		if err := s.teams.RemoveMember(teamID, m.UserID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if _, err := s.invitations.DeleteForTeam(teamID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := os.RemoveAll(s.workspace.TeamDir(teamID)); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.teams.Delete(teamID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("team deleted", slog.String("team_id", teamID))
	writeJSON(w, http.StatusOK, map[string]any{"message": "Team deleted successfully"})
}

// handleAddMember adds a member record directly. Contributor or above
// required; invitations are the polite path.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	if _, ok := s.requireMember(w, r, teamID, storage.RoleContributor); !ok {
		return
	}

	var m storage.TeamMember
	if !decodeJSON(w, r, &m) {
		return
	}
	if m.UserID == "" {
		httpError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	m.TeamID = teamID
	if err := s.teams.SaveMember(&m); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	if _, ok := s.requireMember(w, r, teamID, storage.RoleViewer); !ok {
		return
	}
	members, err := s.teams.Members(teamID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

// handleMemberRole reports the caller's own role in the team.
func (s *Server) handleMemberRole(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	role, ok := s.requireMember(w, r, teamID, storage.RoleViewer)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"role": role})
}

// handleUpdateMember changes a member's role. Owner-only; the owner's
// own role is immovable.
func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	userID := chi.URLParam(r, "userID")
	if _, ok := s.requireMember(w, r, teamID, storage.RoleOwner); !ok {
		return
	}

	team, err := s.teams.ByID(teamID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if userID == team.OwnerID {
		httpError(w, http.StatusBadRequest, "cannot change the owner's role")
		return
	}

	var req struct {
		Role storage.TeamRole `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := s.teams.Member(teamID, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m.Role = req.Role
	if err := s.teams.SaveMember(m); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleRemoveMember removes a member: either the member themself
// leaving, or the owner removing them. The owner cannot be removed.
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	userID := chi.URLParam(r, "userID")
	p := s.principal(r)

	role, ok := s.requireMember(w, r, teamID, storage.RoleViewer)
	if !ok {
		return
	}
	if userID != p.UserID && role < storage.RoleOwner {
		httpError(w, http.StatusForbidden, "only the owner removes other members")
		return
	}

	team, err := s.teams.ByID(teamID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if userID == team.OwnerID {
		httpError(w, http.StatusBadRequest, "cannot remove the team owner")
		return
	}

	if err := s.teams.RemoveMember(teamID, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Member removed"})
}

// handleActivateTeam re-issues the caller's token scoped to the team,
// switching subsequent file operations onto the team workspace.
func (s *Server) handleActivateTeam(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	p := s.principal(r)
	if _, ok := s.requireMember(w, r, teamID, storage.RoleViewer); !ok {
		return
	}

	token, err := s.auth.GenerateToken(p.UserID, p.Email, teamID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Authorization", "Bearer "+token)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Team activated",
		"token":   token,
		"team_id": teamID,
	})
}

// handleDeactivateTeam re-issues the token without a team scope.
func (s *Server) handleDeactivateTeam(w http.ResponseWriter, r *http.Request) {
	p := s.principal(r)
	token, err := s.auth.GenerateToken(p.UserID, p.Email, "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Authorization", "Bearer "+token)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Team deactivated",
		"token":   token,
	})
}
