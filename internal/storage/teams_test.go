package storage

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func TestTeamRoleJSON(t *testing.T) {
	buf, err := json.Marshal(RoleContributor)
	if err != nil {
		t.Fatalf("failed to marshal role: %v", err)
	}
	if string(buf) != `"Contributor"` {
		t.Errorf("expected \"Contributor\", got %s", buf)
	}

	var role TeamRole
	if err := json.Unmarshal([]byte(`"Owner"`), &role); err != nil {
		t.Fatalf("failed to unmarshal role: %v", err)
	}
	if role != RoleOwner {
		t.Errorf("expected RoleOwner, got %v", role)
	}

	if err := json.Unmarshal([]byte(`"Admin"`), &role); err == nil {
		t.Error("unknown role should fail to unmarshal")
	}

	// Permission ordering
	if !(RoleViewer < RoleContributor && RoleContributor < RoleOwner) {
		t.Error("roles should order Viewer < Contributor < Owner")
	}
}

func TestTeamStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewTeamStore(filepath.Join(dir, "teams"), filepath.Join(dir, "team_members"))
	if err != nil {
		t.Fatalf("failed to create team store: %v", err)
	}

	team := &Team{ID: "team-1", Name: "Research", OwnerID: "user-1", CreatedAt: Now()}
	if err := store.Save(team); err != nil {
		t.Fatalf("failed to save team: %v", err)
	}

	got, err := store.ByID("team-1")
	if err != nil {
		t.Fatalf("failed to load team: %v", err)
	}
	if got.Name != "Research" {
		t.Errorf("expected name Research, got %s", got.Name)
	}

	if _, err := store.ByID("missing"); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("expected ErrTeamNotFound, got %v", err)
	}

	// Membership records
	if err := store.SaveMember(&TeamMember{UserID: "user-1", TeamID: "team-1", Role: RoleOwner}); err != nil {
		t.Fatalf("failed to save owner membership: %v", err)
	}
	if err := store.SaveMember(&TeamMember{UserID: "user-2", TeamID: "team-1", Role: RoleViewer}); err != nil {
		t.Fatalf("failed to save viewer membership: %v", err)
	}

	member, err := store.Member("team-1", "user-2")
	if err != nil {
		t.Fatalf("failed to load member: %v", err)
	}
	if member.Role != RoleViewer {
		t.Errorf("expected viewer role, got %v", member.Role)
	}

	members, err := store.Members("team-1")
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].UserID != "user-1" || members[1].UserID != "user-2" {
		t.Errorf("members not sorted by user ID: %+v", members)
	}

	// Role checks
	ok, err := store.HasRole("team-1", "user-1", RoleContributor)
	if err != nil || !ok {
		t.Errorf("owner should satisfy contributor check: ok=%v err=%v", ok, err)
	}
	ok, err = store.HasRole("team-1", "user-2", RoleContributor)
	if err != nil || ok {
		t.Errorf("viewer should fail contributor check: ok=%v err=%v", ok, err)
	}
	ok, err = store.HasRole("team-1", "stranger", RoleViewer)
	if err != nil || ok {
		t.Errorf("non-member should fail role check: ok=%v err=%v", ok, err)
	}

	// Teams for a user
	teams, err := store.TeamsForUser("user-2")
	if err != nil {
		t.Fatalf("failed to list teams for user: %v", err)
	}
	if len(teams) != 1 || teams[0].ID != "team-1" {
		t.Errorf("unexpected teams for user-2: %+v", teams)
	}

	// Removal
	if err := store.RemoveMember("team-1", "user-2"); err != nil {
		t.Fatalf("failed to remove member: %v", err)
	}
	if _, err := store.Member("team-1", "user-2"); !errors.Is(err, ErrNotTeamMember) {
		t.Errorf("expected ErrNotTeamMember after removal, got %v", err)
	}
	if err := store.RemoveMember("team-1", "user-2"); !errors.Is(err, ErrNotTeamMember) {
		t.Errorf("removing twice should report ErrNotTeamMember, got %v", err)
	}
}
