// Package storage persists Laminotes state as plain JSON documents and
// content blobs on the local filesystem. Every mutation goes through a
// write-to-temp-then-rename cycle so readers never observe a partially
// written document.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrFileNotFound       = errors.New("file not found")
	ErrVersionNotFound    = errors.New("version not found")
	ErrBranchNotFound     = errors.New("branch not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrNotTeamMember      = errors.New("not a team member")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidFilename    = errors.New("invalid filename")
)

// ContentHash returns the SHA-256 digest of content as lowercase hex.
// Version records carry this hash so clients can detect blob corruption.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// SanitizeFilename reduces a client-supplied name to a bare file name.
// Path separators and parent references are stripped so the name cannot
// escape its storage directory. Returns "" if nothing usable remains.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == ".." || name == "/" || name == "" {
		return ""
	}
	return name
}

func readJSONFile(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func writeJSONAtomic(path string, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, buf)
}

// writeFileAtomic writes data to a uniquely named temp file in the
// target's directory and renames it into place. The unique name keeps
// concurrent writers to the same path from clobbering each other's
// temp file mid-rename; last rename wins with an intact document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
