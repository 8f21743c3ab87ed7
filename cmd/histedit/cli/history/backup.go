package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/entireio/histedit/cmd/histedit/cli/logging"
	"github.com/entireio/histedit/cmd/histedit/cli/paths"

	"github.com/go-git/go-git/v5/plumbing"
)

// BackupManager keeps one recovery reference per branch recording the tip the
// branch had before its most recent rewrite.
//
// Per branch the states are NoBackup and BackupPresent. Snapshot moves to
// BackupPresent (overwriting any earlier backup), Restore moves back to
// NoBackup. Backups are never pruned automatically.
type BackupManager struct {
	store Store
}

// NewBackupManager creates a backup manager over store.
func NewBackupManager(store Store) *BackupManager {
	return &BackupManager{store: store}
}

// Snapshot records tip as the backup for branch, replacing any earlier backup.
// A backup of a branch whose name is a path prefix of branch, or the reverse,
// cannot coexist with it and yields *BackupConflictError.
func (m *BackupManager) Snapshot(ctx context.Context, branch string, tip plumbing.Hash) error {
	ctx = logging.WithComponent(ctx, "backup")
	ref := paths.BackupRefName(branch)

	if err := m.checkConflict(ctx, branch); err != nil {
		return err
	}

	err := m.store.UpdateReference(ctx, RefUpdate{
		Name:    ref,
		New:     tip,
		Message: paths.BackupReflogMessage(branch),
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", ref, err)
	}

	logging.Info(ctx, "backup written",
		slog.String("ref", ref.String()),
		slog.String("tip", tip.String()),
	)
	return nil
}

func (m *BackupManager) checkConflict(ctx context.Context, branch string) error {
	existing, err := m.List(ctx)
	if err != nil {
		return err
	}
	for _, state := range existing {
		if strings.HasPrefix(branch, state.Branch+"/") || strings.HasPrefix(state.Branch, branch+"/") {
			return &BackupConflictError{Branch: branch, Existing: state.Ref}
		}
	}
	return nil
}

// Check reports whether branch has a backup. It never modifies anything.
func (m *BackupManager) Check(ctx context.Context, branch string) (BackupState, error) {
	ref := paths.BackupRefName(branch)
	state := BackupState{Branch: branch, Ref: ref}

	id, err := m.store.ReadReference(ctx, ref)
	if errors.Is(err, ErrReferenceNotFound) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("reading %s: %w", ref, err)
	}

	state.Exists = true
	state.BackedUpID = id
	return state, nil
}

// Restore resets branch to its backed-up tip and then removes the backup.
// Returns ErrNoBackup if there is nothing to restore. If the branch was reset
// but the backup could not be removed, the returned id is valid and the error
// is a *RestoreError.
func (m *BackupManager) Restore(ctx context.Context, branch string) (plumbing.Hash, error) {
	ctx = logging.WithComponent(ctx, "backup")

	state, err := m.Check(ctx, branch)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if !state.Exists {
		return plumbing.ZeroHash, fmt.Errorf("%w for branch %s", ErrNoBackup, branch)
	}

	branchRef := plumbing.NewBranchReferenceName(branch)
	err = m.store.UpdateReference(ctx, RefUpdate{
		Name:    branchRef,
		New:     state.BackedUpID,
		Message: paths.RestoreReflogMessage(branch),
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resetting %s: %w", branchRef, err)
	}

	logging.Info(ctx, "branch restored from backup",
		slog.String("ref", branchRef.String()),
		slog.String("tip", state.BackedUpID.String()),
	)

	if err := m.store.DeleteReference(ctx, state.Ref); err != nil {
		logging.Warn(ctx, "failed to remove backup after restore",
			slog.String("ref", state.Ref.String()),
			slog.String("error", err.Error()),
		)
		return state.BackedUpID, &RestoreError{Branch: branch, Restored: state.BackedUpID, Err: err}
	}

	return state.BackedUpID, nil
}

// List returns every existing backup, sorted by branch name.
func (m *BackupManager) List(ctx context.Context) ([]BackupState, error) {
	refs, err := m.store.ListReferences(ctx, paths.BackupRefPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	states := make([]BackupState, 0, len(refs))
	for _, ref := range refs {
		branch, ok := paths.BranchFromBackupRef(ref.Name)
		if !ok {
			continue
		}
		states = append(states, BackupState{
			Branch:     branch,
			Ref:        ref.Name,
			Exists:     true,
			BackedUpID: ref.Hash,
		})
	}

	sort.Slice(states, func(i, j int) bool {
		return states[i].Branch < states[j].Branch
	})
	return states, nil
}
