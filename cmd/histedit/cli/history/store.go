package history

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
)

// Store is the object and reference storage the engine consumes.
// Objects are immutable and content-addressed; references are the only
// mutable state.
type Store interface {
	// ResolveHead reports the branch HEAD points at and its tip.
	ResolveHead(ctx context.Context) (Head, error)

	// FindCommit loads a commit. Returns ErrObjectNotFound if id is unknown.
	FindCommit(ctx context.Context, id plumbing.Hash) (*Commit, error)

	// CreateCommit writes a new commit object and returns its id.
	// Writing a commit never changes any reference.
	CreateCommit(ctx context.Context, spec CommitSpec) (plumbing.Hash, error)

	// UpdateReference points a reference at a new id, creating it if needed.
	UpdateReference(ctx context.Context, update RefUpdate) error

	// ReadReference returns the id a reference points at.
	// Returns ErrReferenceNotFound if it does not exist.
	ReadReference(ctx context.Context, name plumbing.ReferenceName) (plumbing.Hash, error)

	// DeleteReference removes a reference.
	DeleteReference(ctx context.Context, name plumbing.ReferenceName) error

	// ListReferences returns every reference whose full name starts with prefix.
	ListReferences(ctx context.Context, prefix string) ([]Reference, error)
}
