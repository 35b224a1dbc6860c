package service

import (
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/merge"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/storage"
)

// SaveStatus is the wire status of a save attempt. The values are part
// of the client contract and never change casing.
type SaveStatus string

const (
	StatusSaved      SaveStatus = "saved"
	StatusConflict   SaveStatus = "conflict"
	StatusAutoMerged SaveStatus = "auto_merged"
	StatusLocked     SaveStatus = "locked"
	StatusMerged     SaveStatus = "merged"
)

// Response messages shared with the original client.
const (
	msgSaved          = "File saved successfully"
	msgSavedVersioned = "File saved with version control enabled"
	msgAutoMerged     = "Changes were automatically merged"
	msgConflict       = "Conflict detected. Please resolve manually."
	msgResolved       = "Conflicts resolved successfully"
	msgMerged         = "Branches merged successfully"
	msgMergeConflict  = "Merge conflicts detected. Please resolve manually."
	msgLocked         = "File is currently being edited by another user"
)

// SaveRequest is the body of POST /files/{file_id}/save.
type SaveRequest struct {
	Content     string `json:"content"`
	BaseVersion string `json:"base_version"`
	Message     string `json:"message,omitempty"`
	Branch      string `json:"branch,omitempty"`
	FileName    string `json:"file_name,omitempty"`
}

// SaveResult carries the outcome of the save pipeline. Status decides
// which optional fields are populated and which HTTP code the handler
// answers with.
type SaveResult struct {
	Status        SaveStatus             `json:"status"`
	NewVersion    string                 `json:"new_version,omitempty"`
	Message       string                 `json:"message"`
	Conflicts     []merge.Conflict       `json:"conflicts,omitempty"`
	LockHolder    string                 `json:"lock_holder,omitempty"`
	ActiveEditors []storage.ActiveEditor `json:"active_editors,omitempty"`
}

// ResolveRequest is the body of POST /files/{file_id}/resolve-conflicts.
// Content may still carry conflict markers; the pipeline strips them.
type ResolveRequest struct {
	Content        string `json:"content"`
	BaseVersion    string `json:"base_version"`
	CurrentVersion string `json:"current_version"`
	Message        string `json:"message,omitempty"`
}

// HistoryResult is the paginated version listing of one file.
type HistoryResult struct {
	Versions       []storage.FileVersion `json:"versions"`
	TotalCount     int                   `json:"total_count"`
	CurrentVersion string                `json:"current_version"`
}

// DiffResult compares two stored versions three-ways against the file's
// head, so clients see both what changed and whether it still merges.
type DiffResult struct {
	BaseVersion    string             `json:"base_version"`
	CompareVersion string             `json:"compare_version"`
	Changes        []merge.TextChange `json:"changes"`
	Conflicts      []merge.Conflict   `json:"conflicts"`
	CanAutoMerge   bool               `json:"can_auto_merge"`
}

// EditResult reports the editor roster after a start/stop editing call.
// Status is non-empty only when the edit lock denied the request.
type EditResult struct {
	Status        SaveStatus             `json:"status,omitempty"`
	LockHolder    string                 `json:"lock_holder,omitempty"`
	Message       string                 `json:"message,omitempty"`
	ActiveEditors []storage.ActiveEditor `json:"active_editors"`
}

// BranchRequest is the body of POST /files/{file_id}/branches.
type BranchRequest struct {
	Name        string  `json:"name"`
	BaseVersion string  `json:"base_version"`
	Content     *string `json:"content,omitempty"`
}

// MergeRequest is the body of POST /files/{file_id}/merge.
type MergeRequest struct {
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	Message      string `json:"message,omitempty"`
}

// MergeResult is the outcome of a branch merge. On conflict,
// MarkedContent holds the merge rendered with conflict markers for
// interactive resolution.
type MergeResult struct {
	Status        SaveStatus       `json:"status"`
	NewVersion    string           `json:"new_version,omitempty"`
	Message       string           `json:"message"`
	Conflicts     []merge.Conflict `json:"conflicts,omitempty"`
	MarkedContent string           `json:"marked_content,omitempty"`
}

// LockStatus is the caller-facing view of one file's edit lock.
// DurationSecs tells the holder how long a fresh acquisition or renewal
// lasts, so clients know when to renew.
type LockStatus struct {
	Locked       bool   `json:"locked"`
	LockHolder   string `json:"lock_holder,omitempty"`
	CanEdit      bool   `json:"can_edit"`
	DurationSecs int64  `json:"duration_secs,omitempty"`
}
