package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// User is an account record, stored as one JSON document per user.
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"password_hash"`
	CreatedAt    UnixTime `json:"created_at"`
}

// UserStore keeps user documents under a single directory, keyed by
// user ID. Email lookup scans the directory; the user population of a
// single deployment is small enough that an index has not been worth it.
type UserStore struct {
	dir string
	mu  sync.Mutex
}

func NewUserStore(dir string) (*UserStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &UserStore{dir: dir}, nil
}

func (s *UserStore) userPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Create registers a new account. The uniqueness check and the write
// happen under one lock so two concurrent registrations cannot both
// claim the same email.
func (s *UserStore) Create(email, passwordHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    Now(),
	}
	if err := s.Save(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Save atomically writes the user document.
func (s *UserStore) Save(user *User) error {
	return writeJSONAtomic(s.userPath(user.ID), user)
}

// ByID loads a user document.
func (s *UserStore) ByID(id string) (*User, error) {
	var user User
	err := readJSONFile(s.userPath(id), &user)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ByEmail scans for the user registered under email. Documents that
// fail to parse are skipped rather than failing the whole lookup.
func (s *UserStore) ByEmail(email string) (*User, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var user User
		if err := readJSONFile(filepath.Join(s.dir, entry.Name()), &user); err != nil {
			continue
		}
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUserNotFound, email)
}
