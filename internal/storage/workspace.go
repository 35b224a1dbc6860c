package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileMetadata is the sidecar document describing a workspace file. It
// travels to clients in the X-File-Metadata response header and links a
// plain workspace file to its version tracking.
type FileMetadata struct {
	FileID         string    `json:"file_id,omitempty"`
	FileName       string    `json:"file_name"`
	LastModified   *UnixTime `json:"last_modified"`
	TeamID         string    `json:"team_id,omitempty"`
	CurrentVersion string    `json:"current_version,omitempty"`
	Versioned      *bool     `json:"versioned,omitempty"`
}

const metadataSuffix = ".meta"

// WorkspaceStore holds the plain file trees clients browse: one
// directory per user, one per team, plus a shared root for requests
// made without credentials. Each file may carry a metadata sidecar
// named <file>.meta.
//
// The version store is the source of truth for versioned files; the
// workspace copy is a mirror kept fresh by the mirror queue.
type WorkspaceStore struct {
	root string
}

func NewWorkspaceStore(root string) (*WorkspaceStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &WorkspaceStore{root: root}, nil
}

// Root is the shared directory used when no user or team scope applies.
func (s *WorkspaceStore) Root() string { return s.root }

// UserDir is the workspace directory of one user.
func (s *WorkspaceStore) UserDir(userID string) string {
	return filepath.Join(s.root, userID)
}

// TeamDir is the workspace directory of one team.
func (s *WorkspaceStore) TeamDir(teamID string) string {
	return filepath.Join(s.root, "teams", teamID)
}

// Write stores a file and, when meta is non-nil, its metadata sidecar.
// The directory is created on demand.
func (s *WorkspaceStore) Write(dir, filename string, content []byte, meta *FileMetadata) error {
	name := SanitizeFilename(filename)
	if name == "" || name != filename {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(dir, name), content); err != nil {
		return err
	}
	if meta != nil {
		return writeJSONAtomic(filepath.Join(dir, name+metadataSuffix), meta)
	}
	return nil
}

// Read returns a file's content and its metadata sidecar. The metadata
// is nil when no sidecar exists.
func (s *WorkspaceStore) Read(dir, filename string) ([]byte, *FileMetadata, error) {
	name := SanitizeFilename(filename)
	if name == "" || name != filename {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	content, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	if err != nil {
		return nil, nil, err
	}

	var meta FileMetadata
	err = readJSONFile(filepath.Join(dir, name+metadataSuffix), &meta)
	if err != nil {
		return content, nil, nil
	}
	return content, &meta, nil
}

// List names the files in a workspace directory, metadata sidecars
// excluded, sorted for stable output. A directory that does not exist
// yet is created and listed as empty.
func (s *WorkspaceStore) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), metadataSuffix) {
			continue
		}
		// Atomic-write temp files carry a .tmp marker plus a random suffix.
		if strings.Contains(entry.Name(), ".tmp") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
