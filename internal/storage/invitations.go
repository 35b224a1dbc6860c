package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the lifecycle state of a team invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// InvitationTTL is how long an invitation stays open before it expires.
const InvitationTTL = 7 * 24 * time.Hour

// TeamInvitation invites an email address into a team with a given
// role. TeamName and InvitedByName are display fields filled in when
// handing the record to a client, never persisted as authoritative.
type TeamInvitation struct {
	ID            string           `json:"id"`
	TeamID        string           `json:"team_id"`
	TeamName      string           `json:"team_name,omitempty"`
	InvitedEmail  string           `json:"invited_email"`
	InvitedBy     string           `json:"invited_by"`
	InvitedByName string           `json:"invited_by_name,omitempty"`
	Role          TeamRole         `json:"role"`
	CreatedAt     time.Time        `json:"created_at"`
	ExpiresAt     time.Time        `json:"expires_at"`
	Status        InvitationStatus `json:"status"`
}

// NewTeamInvitation creates a pending invitation expiring after
// InvitationTTL.
func NewTeamInvitation(teamID, invitedEmail, invitedBy string, role TeamRole) *TeamInvitation {
	now := time.Now().UTC()
	return &TeamInvitation{
		ID:           uuid.NewString(),
		TeamID:       teamID,
		InvitedEmail: invitedEmail,
		InvitedBy:    invitedBy,
		Role:         role,
		CreatedAt:    now,
		ExpiresAt:    now.Add(InvitationTTL),
		Status:       InvitationPending,
	}
}

// Expired reports whether the invitation's deadline has passed.
func (inv *TeamInvitation) Expired() bool {
	return time.Now().After(inv.ExpiresAt)
}

// InvitationStore keeps one JSON document per invitation.
type InvitationStore struct {
	dir string
}

func NewInvitationStore(dir string) (*InvitationStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &InvitationStore{dir: dir}, nil
}

func (s *InvitationStore) invitationPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save atomically writes the invitation document.
func (s *InvitationStore) Save(inv *TeamInvitation) error {
	return writeJSONAtomic(s.invitationPath(inv.ID), inv)
}

// ByID loads one invitation.
func (s *InvitationStore) ByID(id string) (*TeamInvitation, error) {
	var inv TeamInvitation
	err := readJSONFile(s.invitationPath(id), &inv)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrInvitationNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Delete removes an invitation document. Deleting an absent invitation
// is not an error.
func (s *InvitationStore) Delete(id string) error {
	err := os.Remove(s.invitationPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ForEmail returns the invitations addressed to email, matched case
// insensitively. Pending invitations past their deadline are flipped to
// expired and persisted on the way out.
func (s *InvitationStore) ForEmail(email string) ([]TeamInvitation, error) {
	return s.scan(func(inv *TeamInvitation) bool {
		return strings.EqualFold(inv.InvitedEmail, email)
	})
}

// ForTeam returns all invitations belonging to a team.
func (s *InvitationStore) ForTeam(teamID string) ([]TeamInvitation, error) {
	return s.scan(func(inv *TeamInvitation) bool {
		return inv.TeamID == teamID
	})
}

// DeleteForTeam removes every invitation of a team and returns how many
// were deleted.
func (s *InvitationStore) DeleteForTeam(teamID string) (int, error) {
	invs, err := s.ForTeam(teamID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, inv := range invs {
		if err := s.Delete(inv.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *InvitationStore) scan(match func(*TeamInvitation) bool) ([]TeamInvitation, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var invs []TeamInvitation
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var inv TeamInvitation
		if err := readJSONFile(filepath.Join(s.dir, entry.Name()), &inv); err != nil {
			continue
		}
		if !match(&inv) {
			continue
		}
		if inv.Status == InvitationPending && inv.Expired() {
			inv.Status = InvitationExpired
			if err := s.Save(&inv); err != nil {
				return nil, err
			}
		}
		invs = append(invs, inv)
	}
	sort.Slice(invs, func(i, j int) bool { return invs[i].CreatedAt.After(invs[j].CreatedAt) })
	return invs, nil
}
