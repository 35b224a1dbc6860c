// Package service orchestrates the versioning engine: the save pipeline,
// conflict resolution, branch management and the editing session flow.
// Handlers stay thin; every multi-step sequence against the version
// store runs here under the per-file lock.
package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/auth"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/cache"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/lock"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/merge"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/queue"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/storage"
)

// FileService runs the save pipeline and everything around it.
type FileService struct {
	versions *storage.VersionStore
	locks    *lock.Registry
	cache    *cache.ContentCache
	mirror   *queue.MirrorQueue
	mirrors  *storage.WorkspaceStore
	logger   *slog.Logger
	lockTTL  time.Duration
}

// NewFileService wires the pipeline. cache and mirror may be nil; the
// pipeline then reads blobs directly and skips workspace mirroring.
func NewFileService(versions *storage.VersionStore, locks *lock.Registry, contentCache *cache.ContentCache, mirror *queue.MirrorQueue, mirrors *storage.WorkspaceStore, logger *slog.Logger, lockTTL time.Duration) *FileService {
	if lockTTL <= 0 {
		lockTTL = lock.DefaultDuration
	}
	return &FileService{
		versions: versions,
		locks:    locks,
		cache:    contentCache,
		mirror:   mirror,
		mirrors:  mirrors,
		logger:   logger,
		lockTTL:  lockTTL,
	}
}

// Save is the heart of the engine. It gates on the edit lock, detects a
// stale base version, attempts an automatic merge and commits a new
// version, or hands back a structured conflict for the client to
// resolve. The whole sequence runs under the file's store mutex so
// concurrent saves against one file are linearised.
func (s *FileService) Save(p auth.Principal, fileID string, req SaveRequest) (*SaveResult, error) {
	if holder, ok := s.locks.Holder(fileID); ok && holder != p.UserID {
		editors := s.editorsOf(fileID)
		return &SaveResult{
			Status:        StatusLocked,
			LockHolder:    holder,
			Message:       msgLocked,
			ActiveEditors: editors,
		}, nil
	}

	unlock := s.versions.LockFile(fileID)
	defer unlock()

	meta, err := s.versions.LoadMetadata(fileID)
	if err != nil {
		return nil, err
	}

	// First save bootstraps version tracking; the base-version check
	// does not apply.
	if len(meta.Versions) == 0 {
		name := storage.SanitizeFilename(req.FileName)
		if name == "" {
			name = fileID
		}
		editors := meta.ActiveEditors
		meta, err = s.versions.Initialize(fileID, name, req.Content, p.UserID, p.ActiveTeamID)
		if err != nil {
			return nil, err
		}
		// Editors who announced themselves before the first save stay
		// on the roster.
		if len(editors) > 0 {
			meta.ActiveEditors = editors
			if err := s.versions.SaveMetadata(meta); err != nil {
				return nil, err
			}
		}
		s.cacheContent(fileID, meta.CurrentVersion, req.Content)
		s.enqueueMirror(p, meta, req.Content)
		s.logger.Info("version tracking initialised",
			slog.String("file_id", fileID),
			slog.String("version", meta.CurrentVersion))
		return &SaveResult{
			Status:     StatusSaved,
			NewVersion: meta.CurrentVersion,
			Message:    msgSavedVersioned,
		}, nil
	}

	head := s.headFor(meta, req.Branch)
	if req.BaseVersion != head && req.BaseVersion != storage.InitialVersion {
		return s.saveWithStaleBase(p, meta, head, req)
	}

	return s.commitSave(p, meta, req)
}

// saveWithStaleBase handles step 4 of the pipeline: the client edited
// against an older version, so the server tries a three-way merge
// between the base, the submission and the current head.
func (s *FileService) saveWithStaleBase(p auth.Principal, meta *storage.VersionedFileMetadata, head string, req SaveRequest) (*SaveResult, error) {
	baseContent, err := s.contentLocked(meta.FileID, req.BaseVersion)
	if err != nil {
		return nil, err
	}
	currentContent, err := s.contentLocked(meta.FileID, head)
	if err != nil {
		return nil, err
	}

	if merged, ok := merge.AttemptAutoMerge(baseContent, req.Content, currentContent); ok {
		v, err := s.versions.AddVersion(meta, p.UserID, "Auto-merged changes", merged)
		if err != nil {
			return nil, err
		}
		if err := s.advanceHead(meta, req.Branch, v.VersionID); err != nil {
			return nil, err
		}
		s.cacheContent(meta.FileID, v.VersionID, merged)
		s.enqueueMirror(p, meta, merged)
		s.logger.Info("auto-merged stale save",
			slog.String("file_id", meta.FileID),
			slog.String("base", req.BaseVersion),
			slog.String("version", v.VersionID))
		return &SaveResult{
			Status:     StatusAutoMerged,
			NewVersion: v.VersionID,
			Message:    msgAutoMerged,
		}, nil
	}

	result := merge.Compare(baseContent, req.Content, currentContent)
	s.logger.Info("save conflict detected",
		slog.String("file_id", meta.FileID),
		slog.String("base", req.BaseVersion),
		slog.Int("conflicts", len(result.Conflicts)))
	return &SaveResult{
		Status:     StatusConflict,
		NewVersion: head,
		Message:    msgConflict,
		Conflicts:  result.Conflicts,
	}, nil
}

// commitSave is the clean path: mint a version, advance the head,
// persist the metadata and mirror the content out.
func (s *FileService) commitSave(p auth.Principal, meta *storage.VersionedFileMetadata, req SaveRequest) (*SaveResult, error) {
	message := req.Message
	if message == "" {
		message = msgSaved
	}
	v, err := s.versions.AddVersion(meta, p.UserID, message, req.Content)
	if err != nil {
		return nil, err
	}
	if err := s.advanceHead(meta, req.Branch, v.VersionID); err != nil {
		return nil, err
	}
	s.cacheContent(meta.FileID, v.VersionID, req.Content)
	s.enqueueMirror(p, meta, req.Content)
	return &SaveResult{
		Status:     StatusSaved,
		NewVersion: v.VersionID,
		Message:    msgSaved,
	}, nil
}

// ResolveConflicts accepts the client's resolution of a conflicted
// save. Conflict markers still present in the content are stripped; no
// further conflict check runs, the client asserts this is the answer.
func (s *FileService) ResolveConflicts(p auth.Principal, fileID string, req ResolveRequest) (*SaveResult, error) {
	unlock := s.versions.LockFile(fileID)
	defer unlock()

	meta, err := s.versions.LoadMetadata(fileID)
	if err != nil {
		return nil, err
	}
	if len(meta.Versions) == 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrFileNotFound, fileID)
	}

	resolved := merge.ExtractResolvedContent(req.Content)
	message := req.Message
	if message == "" {
		message = "Resolved conflicts"
	}
	v, err := s.versions.AddVersion(meta, p.UserID, message, resolved)
	if err != nil {
		return nil, err
	}
	meta.CurrentVersion = v.VersionID
	meta.LastModified = time.Now().UTC()
	if err := s.versions.SaveMetadata(meta); err != nil {
		return nil, err
	}
	s.cacheContent(fileID, v.VersionID, resolved)
	s.enqueueMirror(p, meta, resolved)
	s.logger.Info("conflicts resolved",
		slog.String("file_id", fileID),
		slog.String("version", v.VersionID))
	return &SaveResult{
		Status:     StatusSaved,
		NewVersion: v.VersionID,
		Message:    msgResolved,
	}, nil
}

// History lists versions newest first with limit/skip pagination.
func (s *FileService) History(fileID, branch string, limit, skip int) (*HistoryResult, error) {
	versions, total, current, err := s.versions.ListVersions(fileID, branch, limit, skip)
	if err != nil {
		return nil, err
	}
	return &HistoryResult{Versions: versions, TotalCount: total, CurrentVersion: current}, nil
}

// VersionContent fetches one version's content, walking the cache
// before touching the blob file. A blob read populates the cache on the
// way back; version blobs are immutable so a hit never goes stale.
func (s *FileService) VersionContent(fileID, versionID string) (string, error) {
	if s.cache != nil {
		if raw, ok := s.cache.Get(cache.VersionKey(fileID, versionID)); ok {
			return string(raw), nil
		}
	}
	content, err := s.versions.VersionContent(fileID, versionID)
	if err != nil {
		return "", err
	}
	s.cacheContent(fileID, versionID, content)
	return content, nil
}

// Diff compares two stored versions three-ways against the file's
// current head: changes concatenate from→to and from→head edits, and
// conflicts mark where they overlap.
func (s *FileService) Diff(fileID, from, to string) (*DiffResult, error) {
	unlock := s.versions.LockFile(fileID)
	defer unlock()

	meta, err := s.versions.LoadMetadata(fileID)
	if err != nil {
		return nil, err
	}
	baseContent, err := s.contentLocked(fileID, from)
	if err != nil {
		return nil, err
	}
	compareContent, err := s.contentLocked(fileID, to)
	if err != nil {
		return nil, err
	}
	// When the compare version is the head, a three-way compare would
	// see the same edit twice and report it against itself; a plain
	// two-sided diff is the honest answer.
	if meta.CurrentVersion == to || meta.CurrentVersion == storage.InitialVersion {
		return &DiffResult{
			BaseVersion:    from,
			CompareVersion: to,
			Changes:        merge.DiffLines(baseContent, compareContent),
			Conflicts:      []merge.Conflict{},
			CanAutoMerge:   true,
		}, nil
	}

	headContent, err := s.contentLocked(fileID, meta.CurrentVersion)
	if err != nil {
		return nil, err
	}
	result := merge.Compare(baseContent, compareContent, headContent)
	return &DiffResult{
		BaseVersion:    from,
		CompareVersion: to,
		Changes:        result.Changes,
		Conflicts:      result.Conflicts,
		CanAutoMerge:   result.CanAutoMerge,
	}, nil
}

// StartEditing acquires the edit lock and registers the caller on the
// active editor roster. Another user's live lock denies the session.
func (s *FileService) StartEditing(p auth.Principal, fileID, branch string) (*EditResult, error) {
	if !s.locks.TryAcquire(fileID, p.UserID, s.lockTTL) {
		holder, _ := s.locks.Holder(fileID)
		return &EditResult{
			Status:        StatusLocked,
			LockHolder:    holder,
			Message:       msgLocked,
			ActiveEditors: s.editorsOf(fileID),
		}, nil
	}
	editors, err := s.versions.RegisterEditor(fileID, p.UserID, branch)
	if err != nil {
		return nil, err
	}
	return &EditResult{ActiveEditors: editors}, nil
}

// StopEditing releases the caller's lock and removes them from the
// roster. Releasing a lock held by someone else is a no-op.
func (s *FileService) StopEditing(p auth.Principal, fileID string) (*EditResult, error) {
	s.locks.Release(fileID, p.UserID)
	editors, err := s.versions.UnregisterEditor(fileID, p.UserID)
	if err != nil {
		return nil, err
	}
	return &EditResult{ActiveEditors: editors}, nil
}

// ActiveEditors reads the current roster.
func (s *FileService) ActiveEditors(fileID string) ([]storage.ActiveEditor, error) {
	meta, err := s.versions.LoadMetadata(fileID)
	if err != nil {
		return nil, err
	}
	return meta.ActiveEditors, nil
}

// LockStatus reports the lock from the caller's point of view.
func (s *FileService) LockStatus(fileID, userID string) LockStatus {
	holder, ok := s.locks.Holder(fileID)
	status := LockStatus{
		Locked:     ok,
		LockHolder: holder,
		CanEdit:    s.locks.CanEdit(fileID, userID),
	}
	if ok {
		status.DurationSecs = int64(s.lockTTL / time.Second)
	}
	return status
}

// AcquireLock takes or renews the edit lock without touching the
// editor roster.
func (s *FileService) AcquireLock(fileID, userID string) bool {
	return s.locks.TryAcquire(fileID, userID, s.lockTTL)
}

// ReleaseLock drops the caller's lock, reporting whether one was held.
func (s *FileService) ReleaseLock(fileID, userID string) bool {
	return s.locks.Release(fileID, userID)
}

// headFor resolves which head a save advances: the branch head when a
// branch reference is supplied, the file's current version otherwise.
func (s *FileService) headFor(meta *storage.VersionedFileMetadata, branchRef string) string {
	if branchRef != "" {
		if b, ok := meta.FindBranch(branchRef); ok {
			return b.HeadVersion
		}
	}
	return meta.CurrentVersion
}

// advanceHead moves the relevant head to versionID, stamps the
// modification time and persists the metadata document.
func (s *FileService) advanceHead(meta *storage.VersionedFileMetadata, branchRef, versionID string) error {
	if branchRef != "" {
		if b, ok := meta.FindBranch(branchRef); ok {
			b.HeadVersion = versionID
			meta.Branches[b.BranchID] = b
			meta.LastModified = time.Now().UTC()
			return s.versions.SaveMetadata(meta)
		}
	}
	meta.CurrentVersion = versionID
	meta.LastModified = time.Now().UTC()
	return s.versions.SaveMetadata(meta)
}

// contentLocked reads version content while the file mutex is already
// held, so it skips LockFile but still consults the cache.
func (s *FileService) contentLocked(fileID, versionID string) (string, error) {
	if s.cache != nil {
		if raw, ok := s.cache.Get(cache.VersionKey(fileID, versionID)); ok {
			return string(raw), nil
		}
	}
	content, err := s.versions.VersionContent(fileID, versionID)
	if err != nil {
		return "", err
	}
	s.cacheContent(fileID, versionID, content)
	return content, nil
}

func (s *FileService) cacheContent(fileID, versionID, content string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(cache.VersionKey(fileID, versionID), []byte(content)); err != nil {
		s.logger.Warn("cache write failed",
			slog.String("file_id", fileID),
			slog.String("version", versionID),
			slog.Any("err", err))
	}
}

// enqueueMirror pushes the latest content into the legacy workspace
// tree. Best effort: a full queue or failed write never fails the save.
func (s *FileService) enqueueMirror(p auth.Principal, meta *storage.VersionedFileMetadata, content string) {
	if s.mirror == nil || s.mirrors == nil {
		return
	}
	name := storage.SanitizeFilename(meta.FileName)
	if name == "" {
		return
	}
	dir := s.mirrors.Root()
	switch {
	case meta.TeamID != "":
		dir = s.mirrors.TeamDir(meta.TeamID)
	case p.Authenticated():
		dir = s.mirrors.UserDir(p.UserID)
	}
	now := storage.Now()
	versioned := true
	s.mirror.Enqueue(queue.MirrorJob{
		Dir:      dir,
		Filename: name,
		Content:  []byte(content),
		Meta: &storage.FileMetadata{
			FileID:         meta.FileID,
			FileName:       name,
			LastModified:   &now,
			TeamID:         meta.TeamID,
			CurrentVersion: meta.CurrentVersion,
			Versioned:      &versioned,
		},
	})
}

// editorsOf loads the roster, swallowing errors: the roster only
// decorates lock denials and must not mask them.
func (s *FileService) editorsOf(fileID string) []storage.ActiveEditor {
	meta, err := s.versions.LoadMetadata(fileID)
	if err != nil {
		return nil
	}
	return meta.ActiveEditors
}

// Stats summarises the store for the stats endpoint.
func (s *FileService) Stats() map[string]any {
	files, versions, err := s.versions.Stats()
	stats := map[string]any{
		"files":    files,
		"versions": versions,
	}
	if err != nil {
		stats["error"] = err.Error()
	}
	return stats
}
