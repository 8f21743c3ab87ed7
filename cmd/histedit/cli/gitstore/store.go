// Package gitstore implements history.Store on top of go-git.
package gitstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/entireio/histedit/cmd/histedit/cli/history"
	"github.com/entireio/histedit/cmd/histedit/cli/logging"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// Store is a history.Store backed by a go-git repository.
type Store struct {
	repo *git.Repository
	path string

	// dotGit is the repository's git directory when it lives on a filesystem.
	// Nil for in-memory repositories, which have no reflog.
	dotGit billy.Filesystem

	now func() time.Time
}

var _ history.Store = (*Store)(nil)

// Open opens the repository containing path. Parent directories are searched
// for a .git entry and linked worktrees are supported.
func Open(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", history.ErrNotARepository, abs)
		}
		return nil, fmt.Errorf("%w: %s: %v", history.ErrNotARepository, abs, err)
	}

	s := New(repo)
	if wt, err := repo.Worktree(); err == nil {
		s.path = wt.Filesystem.Root()
	} else if s.dotGit != nil {
		s.path = s.dotGit.Root()
	} else {
		s.path = abs
	}
	return s, nil
}

// New wraps an already opened repository.
func New(repo *git.Repository) *Store {
	s := &Store{repo: repo, now: time.Now}
	if fsStorage, ok := repo.Storer.(*filesystem.Storage); ok {
		s.dotGit = fsStorage.Filesystem()
	}
	return s
}

// Repository returns the underlying go-git repository.
func (s *Store) Repository() *git.Repository { return s.repo }

// Path returns the working tree root, or the git directory for bare repositories.
func (s *Store) Path() string { return s.path }

// GitDir returns the git directory, or "" for in-memory repositories.
func (s *Store) GitDir() string {
	if s.dotGit == nil {
		return ""
	}
	return s.dotGit.Root()
}

// ResolveHead reports the branch HEAD points at without requiring it to have commits.
func (s *Store) ResolveHead(_ context.Context) (history.Head, error) {
	head, err := s.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return history.Head{}, fmt.Errorf("reading HEAD: %w", err)
	}

	if head.Type() == plumbing.HashReference {
		return history.Head{Ref: plumbing.HEAD, Tip: head.Hash(), Detached: true}, nil
	}

	target := head.Target()
	ref, err := storer.ResolveReference(s.repo.Storer, target)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return history.Head{Ref: target, Unborn: true}, nil
	}
	if err != nil {
		return history.Head{}, fmt.Errorf("resolving %s: %w", target, err)
	}
	return history.Head{Ref: target, Tip: ref.Hash(), Detached: !target.IsBranch()}, nil
}

// FindCommit loads a commit object.
func (s *Store) FindCommit(_ context.Context, id plumbing.Hash) (*history.Commit, error) {
	c, err := object.GetCommit(s.repo.Storer, id)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: %s", history.ErrObjectNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w", id, err)
	}
	return fromObject(c), nil
}

func fromObject(c *object.Commit) *history.Commit {
	parents := make([]plumbing.Hash, len(c.ParentHashes))
	copy(parents, c.ParentHashes)
	return &history.Commit{
		ID:        c.Hash,
		Tree:      c.TreeHash,
		Parents:   parents,
		Author:    history.SignatureFromObject(c.Author),
		Committer: history.SignatureFromObject(c.Committer),
		Message:   c.Message,
	}
}

// CreateCommit encodes and stores a new commit object. No reference moves.
func (s *Store) CreateCommit(ctx context.Context, spec history.CommitSpec) (plumbing.Hash, error) {
	if err := ctx.Err(); err != nil {
		return plumbing.ZeroHash, err //nolint:wrapcheck // context errors are returned as is
	}

	commit := &object.Commit{
		Author:       spec.Author.Object(),
		Committer:    spec.Committer.Object(),
		Message:      spec.Message,
		TreeHash:     spec.Tree,
		ParentHashes: spec.Parents,
	}

	obj := s.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode commit: %w", err)
	}

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store commit: %w", err)
	}
	return hash, nil
}

// UpdateReference points a reference at a new id and records a reflog entry.
// A non-zero Old makes the write a compare-and-swap. The reflog is best
// effort: once the ref is written a failed append is logged, not returned.
func (s *Store) UpdateReference(ctx context.Context, u history.RefUpdate) error {
	current, err := s.repo.Storer.Reference(u.Name)
	if err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("reading %s: %w", u.Name, err)
	}
	previous := plumbing.ZeroHash
	if current != nil {
		previous = current.Hash()
	}

	newRef := plumbing.NewHashReference(u.Name, u.New)
	if u.Old.IsZero() {
		if err := s.repo.Storer.SetReference(newRef); err != nil {
			return fmt.Errorf("writing %s: %w", u.Name, err)
		}
	} else {
		if previous != u.Old {
			return &history.ConcurrentModificationError{Ref: u.Name, Expected: u.Old, Actual: previous}
		}
		// go-git's file lock compares against the loose ref file only, so a
		// ref that exists solely in packed-refs is compared above instead.
		// A writer landing between that read and the write below is not
		// detected; see history.RefUpdate.
		var old *plumbing.Reference
		if s.isLoose(u.Name) {
			old = plumbing.NewHashReference(u.Name, u.Old)
		}
		err := s.repo.Storer.CheckAndSetReference(newRef, old)
		if errors.Is(err, storage.ErrReferenceHasChanged) {
			actual, _ := s.ReadReference(ctx, u.Name) //nolint:errcheck // best effort for the error message
			return &history.ConcurrentModificationError{Ref: u.Name, Expected: u.Old, Actual: actual}
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", u.Name, err)
		}
	}

	if u.Message != "" {
		if err := s.appendReflog(u.Name, previous, u.New, u.Message); err != nil {
			logging.Warn(ctx, "reference updated but reflog append failed",
				slog.String("ref", u.Name.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// isLoose reports whether name is stored as its own file. In-memory storage
// has no packed refs, so every ref counts as loose.
func (s *Store) isLoose(name plumbing.ReferenceName) bool {
	if s.dotGit == nil {
		return true
	}
	_, err := s.dotGit.Stat(name.String())
	return err == nil
}

// ReadReference returns the id a reference resolves to.
func (s *Store) ReadReference(_ context.Context, name plumbing.ReferenceName) (plumbing.Hash, error) {
	ref, err := storer.ResolveReference(s.repo.Storer, name)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", history.ErrReferenceNotFound, name)
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("reading %s: %w", name, err)
	}
	return ref.Hash(), nil
}

// DeleteReference removes a reference, loose or packed.
func (s *Store) DeleteReference(_ context.Context, name plumbing.ReferenceName) error {
	if err := s.repo.Storer.RemoveReference(name); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// ListReferences returns every direct reference whose name starts with prefix.
func (s *Store) ListReferences(_ context.Context, prefix string) ([]history.Reference, error) {
	iter, err := s.repo.Storer.IterReferences()
	if err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}
	defer iter.Close()

	var refs []history.Reference
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference || !strings.HasPrefix(ref.Name().String(), prefix) {
			return nil
		}
		refs = append(refs, history.Reference{Name: ref.Name(), Hash: ref.Hash()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}
	return refs, nil
}

// ResolveRevision resolves a revision such as a full or abbreviated id, a
// branch name or HEAD~2 to a commit id.
func (s *Store) ResolveRevision(rev string) (plumbing.Hash, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		return plumbing.ZeroHash, fmt.Errorf("%w: empty revision", history.ErrObjectNotFound)
	}

	hash, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s: %v", history.ErrObjectNotFound, rev, err)
	}
	if _, err := object.GetCommit(s.repo.Storer, *hash); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s is not a commit", history.ErrObjectNotFound, rev)
	}
	return *hash, nil
}

// identity returns the name and email recorded in reflog entries.
func (s *Store) identity() (name, email string) {
	cfg, err := s.repo.ConfigScoped(config.GlobalScope)
	if err == nil {
		name = cfg.User.Name
		email = cfg.User.Email
	}

	if name == "" {
		name = "Unknown"
	}
	if email == "" {
		email = "unknown@local"
	}
	return name, email
}
