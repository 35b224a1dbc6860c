package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/auth"
	apierrors "github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/errors"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/merge"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/storage"
)

// mainBranchAlias reports whether a target branch reference means the
// file's main line rather than a named branch.
func mainBranchAlias(ref string) bool {
	return ref == "" || ref == "main" || ref == "master"
}

// CreateBranch forks a named branch off a base version, optionally with
// an initial commit. An unknown base version is the client's mistake,
// not a missing entity.
func (s *FileService) CreateBranch(p auth.Principal, fileID string, req BranchRequest) (*storage.FileBranch, error) {
	if req.Name == "" {
		return nil, apierrors.BadRequest("branch name is required")
	}
	base := req.BaseVersion
	if base == "" {
		base = storage.InitialVersion
	}

	unlock := s.versions.LockFile(fileID)
	defer unlock()

	branch, err := s.versions.CreateBranch(fileID, req.Name, base, p.UserID, req.Content)
	if errors.Is(err, storage.ErrVersionNotFound) {
		return nil, apierrors.WrapAPIError(apierrors.ErrorCodeBadRequest,
			fmt.Sprintf("cannot create branch from version %s", base), err)
	}
	if err != nil {
		return nil, err
	}
	if req.Content != nil {
		s.cacheContent(fileID, branch.HeadVersion, *req.Content)
	}
	s.logger.Info("branch created",
		slog.String("file_id", fileID),
		slog.String("branch", branch.Name),
		slog.String("base", base))
	return branch, nil
}

// MergeBranches merges the source branch into the target, using the
// source's fork point as the common ancestor. A clean merge commits a
// new version and advances the target head; a conflicted merge commits
// nothing and returns the conflicts plus a marker-rendered merge text.
func (s *FileService) MergeBranches(p auth.Principal, fileID string, req MergeRequest) (*MergeResult, error) {
	if req.SourceBranch == "" {
		return nil, apierrors.BadRequest("source_branch is required")
	}

	unlock := s.versions.LockFile(fileID)
	defer unlock()

	meta, err := s.versions.LoadMetadata(fileID)
	if err != nil {
		return nil, err
	}
	if len(meta.Versions) == 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrFileNotFound, fileID)
	}

	source, ok := meta.FindBranch(req.SourceBranch)
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrBranchNotFound, req.SourceBranch)
	}

	targetHead := meta.CurrentVersion
	var target *storage.FileBranch
	if !mainBranchAlias(req.TargetBranch) {
		t, ok := meta.FindBranch(req.TargetBranch)
		if !ok {
			return nil, fmt.Errorf("%w: %s", storage.ErrBranchNotFound, req.TargetBranch)
		}
		target = &t
		targetHead = t.HeadVersion
	}

	baseContent := ""
	if source.BaseVersion != storage.InitialVersion {
		baseContent, err = s.contentLocked(fileID, source.BaseVersion)
		if err != nil {
			return nil, err
		}
	}
	sourceContent, err := s.contentLocked(fileID, source.HeadVersion)
	if err != nil {
		return nil, err
	}
	targetContent, err := s.contentLocked(fileID, targetHead)
	if err != nil {
		return nil, err
	}

	merged, ok := merge.AttemptAutoMerge(baseContent, sourceContent, targetContent)
	if !ok {
		result := merge.Compare(baseContent, sourceContent, targetContent)
		marked := merge.CreateMarkedMerge(baseContent, sourceContent, targetContent)
		s.logger.Info("branch merge conflict",
			slog.String("file_id", fileID),
			slog.String("source", source.Name),
			slog.Int("conflicts", len(result.Conflicts)))
		return &MergeResult{
			Status:        StatusConflict,
			Message:       msgMergeConflict,
			Conflicts:     result.Conflicts,
			MarkedContent: marked,
		}, nil
	}

	message := req.Message
	if message == "" {
		targetName := req.TargetBranch
		if mainBranchAlias(targetName) {
			targetName = "main"
		}
		message = fmt.Sprintf("Merged branch %s into %s", source.Name, targetName)
	}
	v, err := s.versions.AddVersion(meta, p.UserID, message, merged)
	if err != nil {
		return nil, err
	}
	if target != nil {
		target.HeadVersion = v.VersionID
		meta.Branches[target.BranchID] = *target
	} else {
		meta.CurrentVersion = v.VersionID
	}
	meta.LastModified = time.Now().UTC()
	if err := s.versions.SaveMetadata(meta); err != nil {
		return nil, err
	}
	s.cacheContent(fileID, v.VersionID, merged)
	s.enqueueMirror(p, meta, merged)
	s.logger.Info("branches merged",
		slog.String("file_id", fileID),
		slog.String("source", source.Name),
		slog.String("version", v.VersionID))
	return &MergeResult{
		Status:     StatusMerged,
		NewVersion: v.VersionID,
		Message:    msgMerged,
	}, nil
}
