package storage

import (
	"errors"
	"testing"
)

func TestUserStore(t *testing.T) {
	store, err := NewUserStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create user store: %v", err)
	}

	user, err := store.Create("alice@example.com", "hash-1")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if user.ID == "" {
		t.Error("user ID should be assigned")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("unexpected email: %s", user.Email)
	}

	// Duplicate email is rejected
	if _, err := store.Create("alice@example.com", "hash-2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	// Lookup by ID
	got, err := store.ByID(user.ID)
	if err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if got.Email != user.Email {
		t.Errorf("expected email %s, got %s", user.Email, got.Email)
	}
	if got.CreatedAt.Time().Unix() != user.CreatedAt.Time().Unix() {
		t.Error("created_at should survive the round trip")
	}

	// Lookup by email
	got, err = store.ByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("failed to find user by email: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected ID %s, got %s", user.ID, got.ID)
	}

	// Unknown lookups
	if _, err := store.ByID("nope"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := store.ByEmail("bob@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
