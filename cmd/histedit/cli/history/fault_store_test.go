package history_test

import (
	"context"

	"github.com/entireio/histedit/cmd/histedit/cli/history"

	"github.com/go-git/go-git/v5/plumbing"
)

// faultStore wraps a Store and injects failures.
type faultStore struct {
	history.Store

	// failUpdate fails the next update of each listed reference once.
	failUpdate map[plumbing.ReferenceName]error
	// failDelete fails every reference deletion.
	failDelete error
	// afterCreate runs once, after the first commit is created.
	afterCreate func()

	creates int
}

func (s *faultStore) CreateCommit(ctx context.Context, spec history.CommitSpec) (plumbing.Hash, error) {
	id, err := s.Store.CreateCommit(ctx, spec)
	if err != nil {
		return id, err
	}
	s.creates++
	if s.creates == 1 && s.afterCreate != nil {
		s.afterCreate()
	}
	return id, nil
}

func (s *faultStore) UpdateReference(ctx context.Context, u history.RefUpdate) error {
	if err, ok := s.failUpdate[u.Name]; ok {
		delete(s.failUpdate, u.Name)
		return err
	}
	return s.Store.UpdateReference(ctx, u)
}

func (s *faultStore) DeleteReference(ctx context.Context, name plumbing.ReferenceName) error {
	if s.failDelete != nil {
		return s.failDelete
	}
	return s.Store.DeleteReference(ctx, name)
}
