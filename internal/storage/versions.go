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

// InitialVersion is the sentinel current_version of a file that has no
// committed versions yet. A save against it bootstraps version tracking.
const InitialVersion = "initial"

// FileVersion is one committed revision of a file. The content itself
// lives in a blob next to the metadata document, keyed by VersionID.
type FileVersion struct {
	VersionID   string    `json:"version_id"`
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username,omitempty"`
	Message     string    `json:"message,omitempty"`
	ContentHash string    `json:"content_hash"`
}

// FileBranch is a named divergence point. HeadVersion tracks the latest
// commit on the branch; BaseVersion records where it forked from.
type FileBranch struct {
	BranchID    string    `json:"branch_id"`
	Name        string    `json:"name"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	BaseVersion string    `json:"base_version"`
	HeadVersion string    `json:"head_version"`
}

// ActiveEditor marks a user who announced they are editing the file.
type ActiveEditor struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username,omitempty"`
	EditingSince time.Time `json:"editing_since"`
	Branch       string    `json:"branch,omitempty"`
}

// VersionedFileMetadata is the per-file version tracking document,
// stored as metadata.json inside the file's version directory.
type VersionedFileMetadata struct {
	FileID         string                 `json:"file_id"`
	FileName       string                 `json:"file_name"`
	CurrentVersion string                 `json:"current_version"`
	Versions       map[string]FileVersion `json:"versions"`
	Branches       map[string]FileBranch  `json:"branches"`
	ActiveEditors  []ActiveEditor         `json:"active_editors"`
	LastModified   time.Time              `json:"last_modified"`
	TeamID         string                 `json:"team_id,omitempty"`
	OwnerID        string                 `json:"owner_id"`
}

// FindBranch resolves a branch reference, which may be a branch ID or a
// branch name.
func (m *VersionedFileMetadata) FindBranch(ref string) (FileBranch, bool) {
	if b, ok := m.Branches[ref]; ok {
		return b, true
	}
	for _, b := range m.Branches {
		if b.Name == ref {
			return b, true
		}
	}
	return FileBranch{}, false
}

// VersionStore keeps one directory per file under its root, holding the
// metadata document and one content blob per version.
//
// The store methods themselves are single read or single atomic write
// operations. Multi-step sequences (load, merge, commit) must run under
// the per-file lock obtained from LockFile.
type VersionStore struct {
	root  string
	locks KeyedMutex
}

func NewVersionStore(root string) (*VersionStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &VersionStore{root: root}, nil
}

// LockFile acquires the file's mutex and returns the unlock function.
// Save, resolve and merge pipelines hold it across their whole
// load-compare-commit sequence.
func (s *VersionStore) LockFile(fileID string) func() {
	return s.locks.Lock(fileID)
}

func (s *VersionStore) fileDir(fileID string) string {
	return filepath.Join(s.root, fileID)
}

func (s *VersionStore) metadataPath(fileID string) string {
	return filepath.Join(s.fileDir(fileID), "metadata.json")
}

func (s *VersionStore) contentPath(fileID, versionID string) string {
	return filepath.Join(s.fileDir(fileID), versionID+".content")
}

// LoadMetadata reads the file's version tracking document. A file with
// no document yet yields a fresh shell whose current version is the
// "initial" sentinel; the placeholder name and owner are filled in on
// the first real save.
func (s *VersionStore) LoadMetadata(fileID string) (*VersionedFileMetadata, error) {
	var meta VersionedFileMetadata
	err := readJSONFile(s.metadataPath(fileID), &meta)
	if errors.Is(err, os.ErrNotExist) {
		return &VersionedFileMetadata{
			FileID:         fileID,
			FileName:       "unknown.md",
			CurrentVersion: InitialVersion,
			Versions:       make(map[string]FileVersion),
			Branches:       make(map[string]FileBranch),
			ActiveEditors:  []ActiveEditor{},
			LastModified:   time.Now().UTC(),
			OwnerID:        "unknown",
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load version metadata for %s: %w", fileID, err)
	}
	if meta.Versions == nil {
		meta.Versions = make(map[string]FileVersion)
	}
	if meta.Branches == nil {
		meta.Branches = make(map[string]FileBranch)
	}
	return &meta, nil
}

// SaveMetadata atomically replaces the file's version tracking document.
func (s *VersionStore) SaveMetadata(meta *VersionedFileMetadata) error {
	if err := os.MkdirAll(s.fileDir(meta.FileID), 0o755); err != nil {
		return err
	}
	return writeJSONAtomic(s.metadataPath(meta.FileID), meta)
}

// PutVersionContent writes a version blob. Blobs are written before the
// metadata document references them, so a crash between the two writes
// leaves an orphan blob rather than a dangling reference.
func (s *VersionStore) PutVersionContent(fileID, versionID, content string) error {
	if err := os.MkdirAll(s.fileDir(fileID), 0o755); err != nil {
		return err
	}
	return writeFileAtomic(s.contentPath(fileID, versionID), []byte(content))
}

// VersionContent reads the blob for one version.
func (s *VersionStore) VersionContent(fileID, versionID string) (string, error) {
	raw, err := os.ReadFile(s.contentPath(fileID, versionID))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s@%s", ErrVersionNotFound, fileID, versionID)
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// AddVersion mints a new version record, writes its blob and inserts it
// into the metadata's version table. The caller decides whether the new
// version becomes current and is responsible for saving the metadata.
func (s *VersionStore) AddVersion(meta *VersionedFileMetadata, userID, message, content string) (FileVersion, error) {
	v := FileVersion{
		VersionID:   uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		UserID:      userID,
		Message:     message,
		ContentHash: ContentHash(content),
	}
	if err := s.PutVersionContent(meta.FileID, v.VersionID, content); err != nil {
		return FileVersion{}, err
	}
	meta.Versions[v.VersionID] = v
	return v, nil
}

// Initialize creates version tracking for a file with its first version
// and returns the new metadata document.
func (s *VersionStore) Initialize(fileID, fileName, content, ownerID, teamID string) (*VersionedFileMetadata, error) {
	now := time.Now().UTC()
	meta := &VersionedFileMetadata{
		FileID:         fileID,
		FileName:       fileName,
		CurrentVersion: "",
		Versions:       make(map[string]FileVersion),
		Branches:       make(map[string]FileBranch),
		ActiveEditors:  []ActiveEditor{},
		LastModified:   now,
		TeamID:         teamID,
		OwnerID:        ownerID,
	}
	v, err := s.AddVersion(meta, ownerID, "Initial version", content)
	if err != nil {
		return nil, err
	}
	meta.CurrentVersion = v.VersionID
	if err := s.SaveMetadata(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// RegisterEditor records userID as actively editing the file, replacing
// any previous registration for the same user. Returns the updated
// editor list. Takes the file mutex itself: roster updates rewrite the
// same metadata document the save pipeline commits to.
func (s *VersionStore) RegisterEditor(fileID, userID, branch string) ([]ActiveEditor, error) {
	unlock := s.LockFile(fileID)
	defer unlock()

	meta, err := s.LoadMetadata(fileID)
	if err != nil {
		return nil, err
	}
	editors := removeEditor(meta.ActiveEditors, userID)
	editors = append(editors, ActiveEditor{
		UserID:       userID,
		EditingSince: time.Now().UTC(),
		Branch:       branch,
	})
	meta.ActiveEditors = editors
	if err := s.SaveMetadata(meta); err != nil {
		return nil, err
	}
	return editors, nil
}

// UnregisterEditor removes userID from the file's active editor list.
// Holds the file mutex like RegisterEditor.
func (s *VersionStore) UnregisterEditor(fileID, userID string) ([]ActiveEditor, error) {
	unlock := s.LockFile(fileID)
	defer unlock()

	meta, err := s.LoadMetadata(fileID)
	if err != nil {
		return nil, err
	}
	meta.ActiveEditors = removeEditor(meta.ActiveEditors, userID)
	if err := s.SaveMetadata(meta); err != nil {
		return nil, err
	}
	return meta.ActiveEditors, nil
}

func removeEditor(editors []ActiveEditor, userID string) []ActiveEditor {
	kept := make([]ActiveEditor, 0, len(editors))
	for _, ed := range editors {
		if ed.UserID != userID {
			kept = append(kept, ed)
		}
	}
	return kept
}

// CreateBranch forks a new branch off baseVersion. When content is
// non-nil a first commit is minted for the branch; otherwise the branch
// head starts at the base version.
func (s *VersionStore) CreateBranch(fileID, name, baseVersion, userID string, content *string) (*FileBranch, error) {
	meta, err := s.LoadMetadata(fileID)
	if err != nil {
		return nil, err
	}
	if _, ok := meta.Versions[baseVersion]; !ok && baseVersion != InitialVersion {
		return nil, fmt.Errorf("%w: base version %s", ErrVersionNotFound, baseVersion)
	}

	head := baseVersion
	if content != nil {
		v, err := s.AddVersion(meta, userID, "Created branch: "+name, *content)
		if err != nil {
			return nil, err
		}
		head = v.VersionID
	}

	branch := FileBranch{
		BranchID:    uuid.NewString(),
		Name:        name,
		CreatedBy:   userID,
		CreatedAt:   time.Now().UTC(),
		BaseVersion: baseVersion,
		HeadVersion: head,
	}
	meta.Branches[branch.BranchID] = branch
	if err := s.SaveMetadata(meta); err != nil {
		return nil, err
	}
	return &branch, nil
}

// Stats counts the tracked files and their committed versions by walking
// the version directories. Used by the stats endpoint only.
func (s *VersionStore) Stats() (files, versions int, err error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, 0, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		blobs, err := os.ReadDir(filepath.Join(s.root, entry.Name()))
		if err != nil {
			continue
		}
		files++
		for _, blob := range blobs {
			if strings.HasSuffix(blob.Name(), ".content") {
				versions++
			}
		}
	}
	return files, versions, nil
}

// ListVersions returns the file's versions newest first, along with the
// total count before pagination and the current version ID. A branch
// reference narrows the listing to the branch head. A limit of zero
// means no limit.
func (s *VersionStore) ListVersions(fileID, branchRef string, limit, skip int) ([]FileVersion, int, string, error) {
	meta, err := s.LoadMetadata(fileID)
	if err != nil {
		return nil, 0, "", err
	}

	var versions []FileVersion
	if branchRef != "" {
		branch, ok := meta.FindBranch(branchRef)
		if !ok {
			return nil, 0, "", fmt.Errorf("%w: %s", ErrBranchNotFound, branchRef)
		}
		head, ok := meta.Versions[branch.HeadVersion]
		if !ok {
			return nil, 0, "", fmt.Errorf("%w: branch head %s", ErrVersionNotFound, branch.HeadVersion)
		}
		versions = []FileVersion{head}
	} else {
		versions = make([]FileVersion, 0, len(meta.Versions))
		for _, v := range meta.Versions {
			versions = append(versions, v)
		}
	}

	sort.Slice(versions, func(i, j int) bool {
		if !versions[i].Timestamp.Equal(versions[j].Timestamp) {
			return versions[i].Timestamp.After(versions[j].Timestamp)
		}
		return versions[i].VersionID < versions[j].VersionID
	})

	total := len(versions)
	if skip > 0 {
		if skip >= len(versions) {
			versions = nil
		} else {
			versions = versions[skip:]
		}
	}
	if limit > 0 && limit < len(versions) {
		versions = versions[:limit]
	}
	return versions, total, meta.CurrentVersion, nil
}
