package lock

import (
	"fmt"
	"sync"
	"time"
)

// DefaultDuration is the edit lock TTL applied when callers do not override it.
const DefaultDuration = 300 * time.Second

// Lock is an exclusive short-lived edit claim on a file. Locks live only in
// process memory and never survive a restart.
type Lock struct {
	FileID     string
	UserID     string
	AcquiredAt time.Time
	ExpiresAt  time.Time
	Duration   time.Duration
}

// Info is the admin-facing view of a lock.
type Info struct {
	FileID     string `json:"file_id"`
	UserID     string `json:"user_id"`
	AcquiredAt string `json:"acquired_at"`
	ExpiresIn  string `json:"expires_in"`
	IsExpired  bool   `json:"is_expired"`
}

// Registry maps file_id to its active lock behind a single mutex.
type Registry struct {
	mu    sync.Mutex
	locks map[string]Lock
}

// NewRegistry returns an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]Lock)}
}

// TryAcquire installs or renews a lock. The holding user renews with the
// original AcquiredAt preserved; an expired lock is replaced outright.
// Returns false when another user holds a live lock.
func (r *Registry) TryAcquire(fileID, userID string, duration time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.locks[fileID]; ok {
		if existing.UserID == userID {
			existing.ExpiresAt = now.Add(duration)
			existing.Duration = duration
			r.locks[fileID] = existing
			return true
		}
		if existing.ExpiresAt.After(now) {
			return false
		}
		delete(r.locks, fileID)
	}

	r.locks[fileID] = Lock{
		FileID:     fileID,
		UserID:     userID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(duration),
		Duration:   duration,
	}
	return true
}

// Release removes the lock iff userID is the current holder and reports
// whether a removal happened.
func (r *Registry) Release(fileID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.locks[fileID]
	if !ok || existing.UserID != userID {
		return false
	}
	delete(r.locks, fileID)
	return true
}

// Holder returns the current lock holder. Expired locks count as absent.
func (r *Registry) Holder(fileID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.locks[fileID]
	if !ok || !existing.ExpiresAt.After(time.Now()) {
		return "", false
	}
	return existing.UserID, true
}

// CanEdit reports whether userID may write: either no live lock exists or
// userID holds it.
func (r *Registry) CanEdit(fileID, userID string) bool {
	holder, ok := r.Holder(fileID)
	if !ok {
		return true
	}
	return holder == userID
}

// CleanupExpired drops every expired entry and returns how many were removed.
func (r *Registry) CleanupExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for fileID, existing := range r.locks {
		if !existing.ExpiresAt.After(now) {
			delete(r.locks, fileID)
			removed++
		}
	}
	return removed
}

// Snapshot renders every entry for the admin endpoint.
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	infos := make([]Info, 0, len(r.locks))
	for _, existing := range r.locks {
		remaining := time.Duration(0)
		if existing.ExpiresAt.After(now) {
			remaining = existing.ExpiresAt.Sub(now)
		}
		infos = append(infos, Info{
			FileID:     existing.FileID,
			UserID:     existing.UserID,
			AcquiredAt: fmt.Sprintf("%d seconds ago", int(now.Sub(existing.AcquiredAt).Seconds())),
			ExpiresIn:  fmt.Sprintf("%d seconds", int(remaining.Seconds())),
			IsExpired:  !existing.ExpiresAt.After(now),
		})
	}
	return infos
}
