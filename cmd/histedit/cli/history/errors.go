package history

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

var (
	// ErrNotARepository is returned when a path does not resolve to a git repository.
	ErrNotARepository = errors.New("not a git repository")

	// ErrDetachedHead is returned when HEAD does not point at a branch with commits.
	ErrDetachedHead = errors.New("HEAD is not on a branch")

	// ErrTargetNotFound is returned when the requested commit is not in the
	// ancestry of the current branch tip.
	ErrTargetNotFound = errors.New("target commit not found in current branch history")

	// ErrIncompleteRewrite is returned when the walk finishes without rebuilding
	// the branch tip. It indicates a broken invariant and should be unreachable.
	ErrIncompleteRewrite = errors.New("branch tip was not rewritten")

	// ErrNoBackup is returned by Restore when no backup reference exists for the branch.
	ErrNoBackup = errors.New("no backup found")

	// ErrObjectNotFound is returned by a Store when an object id does not resolve.
	ErrObjectNotFound = errors.New("object not found")

	// ErrReferenceNotFound is returned by a Store when a reference does not exist.
	ErrReferenceNotFound = errors.New("reference not found")
)

// ResolutionError reports an object id that could not be loaded as a commit.
type ResolutionError struct {
	ID  plumbing.Hash
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve commit %s: %v", e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// InvalidSignatureError reports an override field that failed validation.
type InvalidSignatureError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidSignatureError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ConcurrentModificationError is returned when a reference no longer points
// at the id it had when the operation started. The reference is left as is.
type ConcurrentModificationError struct {
	Ref      plumbing.ReferenceName
	Expected plumbing.Hash
	Actual   plumbing.Hash
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s was modified concurrently: expected %s, found %s",
		e.Ref, e.Expected, e.Actual)
}

// PendingUpdate is the branch move that completes a rewrite. All commit
// objects it refers to already exist in the store.
type PendingUpdate struct {
	Ref     plumbing.ReferenceName
	Old     plumbing.Hash
	New     plumbing.Hash
	Message string
}

// ReferenceUpdateError is returned when every rewritten commit was created but
// the final branch update failed. Nothing observable changed; the update can be
// retried with Rewriter.RetryReferenceUpdate. The new objects stay unreferenced
// until then and are left for git's own garbage collection.
type ReferenceUpdateError struct {
	Pending *PendingUpdate
	Outcome *RewriteOutcome
	Err     error
}

func (e *ReferenceUpdateError) Error() string {
	return fmt.Sprintf("failed to move %s to %s: %v", e.Pending.Ref, e.Pending.New, e.Err)
}

func (e *ReferenceUpdateError) Unwrap() error { return e.Err }

// BackupError is returned when the pre-rewrite backup could not be written.
// No commit objects were created.
type BackupError struct {
	Branch string
	Err    error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("failed to back up branch %s: %v", e.Branch, e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

// BackupConflictError is returned by Snapshot when another branch's backup
// occupies a parent or child path of the backup reference, as
// refs/histedit/backup/a does for a branch named a/b.
type BackupConflictError struct {
	Branch   string
	Existing plumbing.ReferenceName
}

func (e *BackupConflictError) Error() string {
	return fmt.Sprintf("backup of %s is blocked by existing backup %s", e.Branch, e.Existing)
}

// RestoreError is returned when the branch was restored from its backup but
// the backup reference could not be removed afterwards. The restore itself
// succeeded.
type RestoreError struct {
	Branch   string
	Restored plumbing.Hash
	Err      error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restored %s to %s but failed to remove backup: %v", e.Branch, e.Restored, e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }
