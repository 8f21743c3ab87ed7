package cli

import (
	"context"
	"fmt"

	"github.com/entireio/histedit/cmd/histedit/cli/gitstore"
	"github.com/entireio/histedit/cmd/histedit/cli/history"
	"github.com/entireio/histedit/cmd/histedit/cli/logging"
	"github.com/entireio/histedit/cmd/histedit/cli/paths"
	"github.com/entireio/histedit/cmd/histedit/cli/settings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags and state shared by subcommands.
type globalOptions struct {
	repoPath string

	// settings is set once a command has opened a repository, so telemetry
	// can reuse the per-repository configuration.
	settings *settings.Settings
}

// repoSession is one command's view of the repository it operates on.
type repoSession struct {
	ctx      context.Context
	store    *gitstore.Store
	settings *settings.Settings
}

// openRepo opens the repository selected by -C, loads its settings and
// starts a log file for this invocation. Callers must defer close.
func (o *globalOptions) openRepo(cmd *cobra.Command) (*repoSession, error) {
	store, err := gitstore.Open(o.repoPath)
	if err != nil {
		return nil, err //nolint:wrapcheck // already carries the path
	}

	s, err := settings.Load(store.GitDir())
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	o.settings = s

	operationID := uuid.NewString()
	logging.SetLogLevelGetter(func() string { return s.LogLevel })
	if err := logging.Init(paths.LogsPath(store.GitDir()), operationID); err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithOperation(ctx, operationID)
	ctx = logging.WithCommand(ctx, cmd.CommandPath())

	return &repoSession{ctx: ctx, store: store, settings: s}, nil
}

func (r *repoSession) close() {
	logging.Close()
}

func (r *repoSession) query() *history.QueryService {
	return history.NewQueryService(r.store, r.store.Path())
}

// currentBranch returns the branch HEAD points at, or ErrDetachedHead.
func (r *repoSession) currentBranch() (string, error) {
	head, err := r.store.ResolveHead(r.ctx)
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	if head.Branch() == "" {
		return "", history.ErrDetachedHead
	}
	return head.Branch(), nil
}

// resolve turns a user supplied revision into a commit id.
func (r *repoSession) resolve(rev string) (history.Commit, error) {
	id, err := r.store.ResolveRevision(rev)
	if err != nil {
		return history.Commit{}, fmt.Errorf("cannot resolve revision %q: %w", rev, err)
	}
	c, err := r.store.FindCommit(r.ctx, id)
	if err != nil {
		return history.Commit{}, &history.ResolutionError{ID: id, Err: err}
	}
	return *c, nil
}
