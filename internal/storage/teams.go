package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TeamRole orders team permissions from read-only up to full control.
// The wire format is the role name, the numeric order is what the
// permission checks compare.
type TeamRole int

const (
	RoleViewer TeamRole = iota
	RoleContributor
	RoleOwner
)

var roleNames = map[TeamRole]string{
	RoleViewer:      "Viewer",
	RoleContributor: "Contributor",
	RoleOwner:       "Owner",
}

func (r TeamRole) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("TeamRole(%d)", int(r))
}

// ParseTeamRole maps a role name back to its TeamRole.
func ParseTeamRole(name string) (TeamRole, error) {
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown team role %q", name)
}

func (r TeamRole) MarshalJSON() ([]byte, error) {
	name, ok := roleNames[r]
	if !ok {
		return nil, fmt.Errorf("unknown team role %d", int(r))
	}
	return json.Marshal(name)
}

func (r *TeamRole) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	role, err := ParseTeamRole(name)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Team is a shared workspace owned by one user.
type Team struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	OwnerID   string   `json:"owner_id"`
	CreatedAt UnixTime `json:"created_at"`
}

// TeamMember records one user's role in one team. AccessExpires is
// carried for viewer accounts but not currently enforced.
type TeamMember struct {
	UserID        string    `json:"user_id"`
	TeamID        string    `json:"team_id"`
	Role          TeamRole  `json:"role"`
	AccessExpires *UnixTime `json:"access_expires"`
}

// TeamStore keeps team documents as teams/<id>.json and memberships as
// team_members/<team>_<user>.json. The per-team content directory
// teams/<id>/ lives next to the team documents.
type TeamStore struct {
	teamsDir   string
	membersDir string
}

func NewTeamStore(teamsDir, membersDir string) (*TeamStore, error) {
	for _, dir := range []string{teamsDir, membersDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &TeamStore{teamsDir: teamsDir, membersDir: membersDir}, nil
}

func (s *TeamStore) teamPath(id string) string {
	return filepath.Join(s.teamsDir, id+".json")
}

func (s *TeamStore) memberPath(teamID, userID string) string {
	return filepath.Join(s.membersDir, teamID+"_"+userID+".json")
}

// Save atomically writes the team document.
func (s *TeamStore) Save(team *Team) error {
	return writeJSONAtomic(s.teamPath(team.ID), team)
}

// ByID loads a team document.
func (s *TeamStore) ByID(id string) (*Team, error) {
	var team Team
	err := readJSONFile(s.teamPath(id), &team)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// Delete removes the team document. Membership records, invitations and
// the team's content directory are the caller's cleanup.
func (s *TeamStore) Delete(id string) error {
	err := os.Remove(s.teamPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrTeamNotFound, id)
	}
	return err
}

// SaveMember atomically writes a membership record.
func (s *TeamStore) SaveMember(m *TeamMember) error {
	return writeJSONAtomic(s.memberPath(m.TeamID, m.UserID), m)
}

// Member loads one membership record.
func (s *TeamStore) Member(teamID, userID string) (*TeamMember, error) {
	var m TeamMember
	err := readJSONFile(s.memberPath(teamID, userID), &m)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotTeamMember, userID, teamID)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RemoveMember deletes a membership record.
func (s *TeamStore) RemoveMember(teamID, userID string) error {
	err := os.Remove(s.memberPath(teamID, userID))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s in %s", ErrNotTeamMember, userID, teamID)
	}
	return err
}

// Members lists all membership records of a team, sorted by user ID.
func (s *TeamStore) Members(teamID string) ([]TeamMember, error) {
	entries, err := os.ReadDir(s.membersDir)
	if err != nil {
		return nil, err
	}
	var members []TeamMember
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var m TeamMember
		if err := readJSONFile(filepath.Join(s.membersDir, entry.Name()), &m); err != nil {
			continue
		}
		if m.TeamID == teamID {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

// TeamsForUser resolves every team the user is a member of, sorted by
// team name. Memberships pointing at missing teams are skipped.
func (s *TeamStore) TeamsForUser(userID string) ([]Team, error) {
	entries, err := os.ReadDir(s.membersDir)
	if err != nil {
		return nil, err
	}
	var teams []Team
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var m TeamMember
		if err := readJSONFile(filepath.Join(s.membersDir, entry.Name()), &m); err != nil {
			continue
		}
		if m.UserID != userID {
			continue
		}
		team, err := s.ByID(m.TeamID)
		if err != nil {
			continue
		}
		teams = append(teams, *team)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

// Role returns the user's role in the team, or ok=false for non-members.
func (s *TeamStore) Role(teamID, userID string) (TeamRole, bool, error) {
	m, err := s.Member(teamID, userID)
	if errors.Is(err, ErrNotTeamMember) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return m.Role, true, nil
}

// HasRole reports whether the user holds at least the given role in the
// team.
func (s *TeamStore) HasRole(teamID, userID string, min TeamRole) (bool, error) {
	role, ok, err := s.Role(teamID, userID)
	if err != nil || !ok {
		return false, err
	}
	return role >= min, nil
}
