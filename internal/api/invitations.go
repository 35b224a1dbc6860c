package api

import (
	"log/slog"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/storage"
)

// enrichInvitation attaches the team name and the inviter's display
// name for client rendering. Display fields are never persisted back.
func (s *Server) enrichInvitation(inv storage.TeamInvitation) storage.TeamInvitation {
	if team, err := s.teams.ByID(inv.TeamID); err == nil {
		inv.TeamName = team.Name
	}
	if user, err := s.users.ByID(inv.InvitedBy); err == nil {
		inv.InvitedByName = usernameOf(user)
	}
	return inv
}

func (s *Server) enrichInvitations(invs []storage.TeamInvitation) []storage.TeamInvitation {
	out := make([]storage.TeamInvitation, len(invs))
	for i, inv := range invs {
		out[i] = s.enrichInvitation(inv)
	}
	return out
}

// handleCreateInvitation invites an email into the team. Inviting a
// current member or re-inviting a pending email is the client's
// mistake.
func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	p := s.principal(r)
	if _, ok := s.requireMember(w, r, teamID, storage.RoleContributor); !ok {
		return
	}

	var req struct {
		Email string           `json:"email"`
		Role  storage.TeamRole `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		httpError(w, http.StatusBadRequest, "email is required")
		return
	}

	if user, err := s.users.ByEmail(req.Email); err == nil {
		if _, member, err := s.teams.Role(teamID, user.ID); err == nil && member {
			httpError(w, http.StatusBadRequest, "user is already a team member")
			return
		}
	}
	existing, err := s.invitations.ForEmail(req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for _, inv := range existing {
		if inv.TeamID == teamID && inv.Status == storage.InvitationPending {
			httpError(w, http.StatusBadRequest, "an invitation is already pending for this email")
			return
		}
	}

	inv := storage.NewTeamInvitation(teamID, req.Email, p.UserID, req.Role)
	if err := s.invitations.Save(inv); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("invitation created",
		slog.String("team_id", teamID),
		slog.String("invitation_id", inv.ID))
	writeJSON(w, http.StatusOK, s.enrichInvitation(*inv))
}

// handleTeamInvitations lists a team's invitations for its members.
func (s *Server) handleTeamInvitations(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	if _, ok := s.requireMember(w, r, teamID, storage.RoleViewer); !ok {
		return
	}
	invs, err := s.invitations.ForTeam(teamID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": s.enrichInvitations(invs)})
}

// handleMyInvitations lists the invitations addressed to the caller.
func (s *Server) handleMyInvitations(w http.ResponseWriter, r *http.Request) {
	p := s.principal(r)
	invs, err := s.invitations.ForEmail(p.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": s.enrichInvitations(invs)})
}

// handleRespondInvitation lets the invitee accept or decline. Anything
// but a pending invitation answers 409; accepting installs the
// membership with the invited role.
func (s *Server) handleRespondInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID := chi.URLParam(r, "invitationID")
	p := s.principal(r)

	var req struct {
		Status storage.InvitationStatus `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status != storage.InvitationAccepted && req.Status != storage.InvitationDeclined {
		httpError(w, http.StatusBadRequest, `status must be "accepted" or "declined"`)
		return
	}

	inv, err := s.invitations.ByID(invitationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !strings.EqualFold(inv.InvitedEmail, p.Email) {
		httpError(w, http.StatusForbidden, "this invitation is addressed to someone else")
		return
	}
	if inv.Status != storage.InvitationPending || inv.Expired() {
		httpError(w, http.StatusConflict, "invitation is no longer pending")
		return
	}

	if req.Status == storage.InvitationAccepted {
		if err := s.teams.SaveMember(&storage.TeamMember{
			UserID: p.UserID,
			TeamID: inv.TeamID,
			Role:   inv.Role,
		}); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	inv.Status = req.Status
	if err := s.invitations.Save(inv); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("invitation answered",
		slog.String("invitation_id", inv.ID),
		slog.String("status", string(inv.Status)))
	writeJSON(w, http.StatusOK, s.enrichInvitation(*inv))
}

// handleCancelInvitation removes an invitation: the inviter or the team
// owner may do so.
func (s *Server) handleCancelInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID := chi.URLParam(r, "invitationID")
	p := s.principal(r)

	inv, err := s.invitations.ByID(invitationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if inv.InvitedBy != p.UserID {
		owner, err := s.teams.HasRole(inv.TeamID, p.UserID, storage.RoleOwner)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !owner {
			httpError(w, http.StatusForbidden, "only the inviter or the team owner may cancel")
			return
		}
	}

	if err := s.invitations.Delete(inv.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Invitation cancelled"})
}
