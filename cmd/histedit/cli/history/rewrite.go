package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/entireio/histedit/cmd/histedit/cli/logging"
	"github.com/entireio/histedit/cmd/histedit/cli/paths"

	"github.com/go-git/go-git/v5/plumbing"
)

// RewriterOptions configures a Rewriter. The zero value is usable.
type RewriterOptions struct {
	// Progress receives (current, total) ticks while commits are processed.
	Progress ProgressFunc
	// ProgressInterval is the number of commits between ticks and between
	// cancellation checks. Defaults to DefaultProgressInterval.
	ProgressInterval int
	// Backups guards each rewrite. Defaults to a BackupManager over the same store.
	Backups *BackupManager
}

// Rewriter rebuilds a commit and its descendants with new metadata.
type Rewriter struct {
	store    Store
	backups  *BackupManager
	progress ProgressFunc
	interval int
}

// NewRewriter creates a Rewriter over store.
func NewRewriter(store Store, opts RewriterOptions) *Rewriter {
	backups := opts.Backups
	if backups == nil {
		backups = NewBackupManager(store)
	}
	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Rewriter{
		store:    store,
		backups:  backups,
		progress: opts.Progress,
		interval: interval,
	}
}

// RewritePlan describes what a rewrite would do, without doing it.
type RewritePlan struct {
	Branch string
	Ref    plumbing.ReferenceName
	OldTip plumbing.Hash
	Target *Commit

	// Rebuild lists the commits that will be recreated, oldest first.
	Rebuild []plumbing.Hash

	// Author, Committer and Message are the target's values after overrides.
	Author    Signature
	Committer Signature
	Message   string

	// Walked is the number of commits in the branch ancestry.
	Walked int

	graph *Graph
}

// Preview validates a rewrite request and reports which commits it would
// rebuild. Nothing is written.
func (r *Rewriter) Preview(ctx context.Context, target plumbing.Hash, overrides Overrides) (*RewritePlan, error) {
	return r.plan(ctx, target, overrides)
}

// plan checks every precondition of a rewrite. It must not write anything:
// a request that fails here leaves objects and references untouched.
func (r *Rewriter) plan(ctx context.Context, target plumbing.Hash, overrides Overrides) (*RewritePlan, error) {
	if err := overrides.Validate(); err != nil {
		return nil, err
	}

	head, err := r.store.ResolveHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	if head.Detached {
		return nil, ErrDetachedHead
	}
	if head.Unborn {
		return nil, fmt.Errorf("%w: branch %s has no commits", ErrDetachedHead, head.Ref.Short())
	}

	graph, err := WalkOldestFirst(ctx, r.store, head.Tip)
	if err != nil {
		return nil, err
	}

	targetCommit, ok := graph.Commit(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an ancestor of %s", ErrTargetNotFound, target, head.Ref.Short())
	}

	author, committer, message := overrides.Apply(targetCommit)
	return &RewritePlan{
		Branch:    head.Branch(),
		Ref:       head.Ref,
		OldTip:    head.Tip,
		Target:    targetCommit,
		Rebuild:   rebuildSet(graph, target),
		Author:    author,
		Committer: committer,
		Message:   message,
		Walked:    graph.Len(),
		graph:     graph,
	}, nil
}

// rebuildSet returns target and every commit in graph that descends from it,
// in walk order. A single forward pass suffices because the walk puts every
// commit after all of its parents.
func rebuildSet(graph *Graph, target plumbing.Hash) []plumbing.Hash {
	affected := make(map[plumbing.Hash]bool)
	var ids []plumbing.Hash
	for _, id := range graph.Order() {
		c, _ := graph.Commit(id)
		if id == target || anyParentIn(c, func(p plumbing.Hash) bool { return affected[p] }) {
			affected[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func anyParentIn(c *Commit, in func(plumbing.Hash) bool) bool {
	for _, p := range c.Parents {
		if in(p) {
			return true
		}
	}
	return false
}

// Rewrite replaces target's metadata with overrides, rebuilds every
// descendant on the current branch and moves the branch to the new tip.
//
// The branch tip is backed up before any object is created. Until the final
// compare-and-swap on the branch reference nothing observable changes, so a
// failure or cancellation at any earlier point needs no rollback.
func (r *Rewriter) Rewrite(ctx context.Context, target plumbing.Hash, overrides Overrides) (*RewriteOutcome, error) {
	start := time.Now()
	ctx = logging.WithComponent(ctx, "rewrite")

	plan, err := r.plan(ctx, target, overrides)
	if err != nil {
		logging.Warn(ctx, "rewrite rejected",
			slog.String("target", target.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	ctx = logging.WithBranch(ctx, plan.Branch)

	logging.Info(ctx, "rewrite started",
		slog.String("target", target.String()),
		slog.String("tip", plan.OldTip.String()),
		slog.Int("commits_walked", plan.Walked),
		slog.Int("commits_to_rebuild", len(plan.Rebuild)),
	)

	if err := r.backups.Snapshot(ctx, plan.Branch, plan.OldTip); err != nil {
		return nil, &BackupError{Branch: plan.Branch, Err: err}
	}

	mapping, err := r.rebuild(ctx, plan.graph, target, overrides)
	if err != nil {
		logging.Error(ctx, "rewrite aborted before branch update",
			slog.String("error", err.Error()),
			slog.Int("commits_created", len(mapping)),
		)
		return nil, err
	}

	newTip, ok := mapping[plan.OldTip]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIncompleteRewrite, plan.OldTip)
	}

	outcome := &RewriteOutcome{
		Branch:           plan.Branch,
		OldTarget:        target,
		NewTarget:        mapping[target],
		OldTip:           plan.OldTip,
		NewTip:           newTip,
		CommitsRewritten: len(mapping),
		BackupRef:        paths.BackupRefName(plan.Branch),
		Mapping:          mapping,
	}

	pending := &PendingUpdate{
		Ref:     plan.Ref,
		Old:     plan.OldTip,
		New:     newTip,
		Message: paths.RewriteReflogMessage(target),
	}
	if err := r.RetryReferenceUpdate(ctx, pending); err != nil {
		var updateErr *ReferenceUpdateError
		if errors.As(err, &updateErr) {
			updateErr.Outcome = outcome
		}
		return nil, err
	}

	logging.LogDuration(ctx, slog.LevelInfo, "rewrite finished", start,
		slog.String("old_target", target.String()),
		slog.String("new_target", outcome.NewTarget.String()),
		slog.String("new_tip", newTip.String()),
		slog.Int("commits_rewritten", outcome.CommitsRewritten),
	)
	return outcome, nil
}

// rebuild recreates target and its descendants in walk order. A commit is
// rebuilt when it is the target or when any of its parents was rebuilt; its
// parents are remapped through the returned map, falling back to the original
// id for parents outside the rebuilt set (such as the untouched side of a
// merge). Only the target receives overrides; other commits keep their
// signatures and message and change identity only through their parents.
func (r *Rewriter) rebuild(ctx context.Context, graph *Graph, target plumbing.Hash, overrides Overrides) (OidMap, error) {
	mapping := make(OidMap)
	total := graph.Len()
	tracker := newProgressTracker(r.progress, r.interval, total)

	if err := ctx.Err(); err != nil {
		return mapping, fmt.Errorf("rewrite cancelled: %w", err)
	}

	for i, id := range graph.Order() {
		c, _ := graph.Commit(id)
		isTarget := id == target
		if isTarget || anyParentIn(c, func(p plumbing.Hash) bool { _, ok := mapping[p]; return ok }) {
			parents := make([]plumbing.Hash, len(c.Parents))
			for j, p := range c.Parents {
				parents[j] = mapping.Resolve(p)
			}

			author, committer, message := c.Author, c.Committer, c.Message
			if isTarget {
				author, committer, message = overrides.Apply(c)
			}

			newID, err := r.store.CreateCommit(ctx, CommitSpec{
				Tree:      c.Tree,
				Parents:   parents,
				Author:    author,
				Committer: committer,
				Message:   message,
			})
			if err != nil {
				return mapping, fmt.Errorf("creating replacement for %s: %w", id, err)
			}
			mapping[id] = newID
		}

		if tracker.step(i + 1) {
			logging.Debug(ctx, "rewrite progress",
				slog.Int("current", i+1),
				slog.Int("total", total),
				slog.Int("commits_created", len(mapping)),
			)
			if err := ctx.Err(); err != nil {
				return mapping, fmt.Errorf("rewrite cancelled after %d of %d commits: %w", i+1, total, err)
			}
		}
	}
	tracker.done()

	return mapping, nil
}

// RetryReferenceUpdate performs the compare-and-swap that makes a rewrite
// visible. It is called once by Rewrite and may be called again with the
// Pending value of a *ReferenceUpdateError. If the branch already points at
// the new tip the update is treated as done.
func (r *Rewriter) RetryReferenceUpdate(ctx context.Context, pending *PendingUpdate) error {
	err := r.store.UpdateReference(ctx, RefUpdate{
		Name:    pending.Ref,
		New:     pending.New,
		Old:     pending.Old,
		Message: pending.Message,
	})
	if err == nil {
		logging.Info(ctx, "branch updated",
			slog.String("ref", pending.Ref.String()),
			slog.String("old", pending.Old.String()),
			slog.String("new", pending.New.String()),
		)
		return nil
	}

	var conflict *ConcurrentModificationError
	if errors.As(err, &conflict) {
		if conflict.Actual == pending.New {
			return nil
		}
		logging.Error(ctx, "branch moved during rewrite",
			slog.String("ref", pending.Ref.String()),
			slog.String("expected", conflict.Expected.String()),
			slog.String("actual", conflict.Actual.String()),
		)
		return err
	}

	logging.Error(ctx, "branch update failed",
		slog.String("ref", pending.Ref.String()),
		slog.String("new", pending.New.String()),
		slog.String("error", err.Error()),
	)
	return &ReferenceUpdateError{Pending: pending, Err: err}
}
