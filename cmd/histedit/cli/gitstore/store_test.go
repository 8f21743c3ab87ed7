package gitstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/entireio/histedit/cmd/histedit/cli/history"
	"github.com/entireio/histedit/cmd/histedit/cli/testutil"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T, messages ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	return dir, testutil.CommitFiles(t, dir, messages...)
}

func TestOpen_NotARepository(t *testing.T) {
	t.Parallel()

	_, err := Open(t.TempDir())
	require.ErrorIs(t, err, history.ErrNotARepository)
}

func TestOpen_FromSubdirectory(t *testing.T) {
	t.Parallel()

	dir, _ := setupRepo(t, "first")
	sub := filepath.Join(dir, "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	store, err := Open(sub)
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(store.Path())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, ".git", filepath.Base(store.GitDir()))
}

func TestResolveHead(t *testing.T) {
	t.Parallel()

	dir, ids := setupRepo(t, "first", "second")
	store, err := Open(dir)
	require.NoError(t, err)

	head, err := store.ResolveHead(context.Background())
	require.NoError(t, err)
	assert.False(t, head.Detached)
	assert.False(t, head.Unborn)
	assert.Equal(t, ids[1], head.Tip.String())
	assert.True(t, head.Ref.IsBranch())
}

func TestResolveHead_Unborn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	store, err := Open(dir)
	require.NoError(t, err)

	head, err := store.ResolveHead(context.Background())
	require.NoError(t, err)
	assert.True(t, head.Unborn)
	assert.True(t, head.Tip.IsZero())
}

func TestCreateAndFindCommit(t *testing.T) {
	t.Parallel()

	dir, ids := setupRepo(t, "first")
	store, err := Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	orig, err := store.FindCommit(ctx, plumbing.NewHash(ids[0]))
	require.NoError(t, err)
	assert.Equal(t, "first", orig.Message)
	assert.Equal(t, 120, orig.Author.OffsetMinutes)

	author := orig.Author
	author.Name = "Someone Else"
	id, err := store.CreateCommit(ctx, history.CommitSpec{
		Tree:      orig.Tree,
		Parents:   []plumbing.Hash{orig.ID},
		Author:    author,
		Committer: orig.Committer,
		Message:   "second",
	})
	require.NoError(t, err)

	created, err := store.FindCommit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, orig.Tree, created.Tree)
	assert.Equal(t, []plumbing.Hash{orig.ID}, created.Parents)
	assert.Equal(t, author, created.Author)
	assert.Equal(t, orig.Committer, created.Committer)

	// Creating objects never moves HEAD.
	assert.Equal(t, ids[0], testutil.GetHeadHash(t, dir))

	_, err = store.FindCommit(ctx, plumbing.NewHash("0123456789abcdef0123456789abcdef01234567"))
	require.ErrorIs(t, err, history.ErrObjectNotFound)
}

func TestUpdateReference_CompareAndSwap(t *testing.T) {
	t.Parallel()

	dir, ids := setupRepo(t, "first", "second", "third")
	store, err := Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	head, err := store.ResolveHead(ctx)
	require.NoError(t, err)

	err = store.UpdateReference(ctx, history.RefUpdate{
		Name: head.Ref,
		New:  plumbing.NewHash(ids[0]),
		Old:  plumbing.NewHash(ids[1]),
	})
	var conflict *history.ConcurrentModificationError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ids[2], conflict.Actual.String())
	assert.Equal(t, ids[2], testutil.GetHeadHash(t, dir))

	require.NoError(t, store.UpdateReference(ctx, history.RefUpdate{
		Name:    head.Ref,
		New:     plumbing.NewHash(ids[0]),
		Old:     plumbing.NewHash(ids[2]),
		Message: "histedit: rewrote commit abcdef12",
	}))
	assert.Equal(t, ids[0], testutil.GetHeadHash(t, dir))

	messages, err := store.ReadReflog(head.Ref)
	require.NoError(t, err)
	require.NotEmpty(t, messages)
	assert.Equal(t, "histedit: rewrote commit abcdef12", messages[len(messages)-1])
}

func TestReferenceLifecycle(t *testing.T) {
	t.Parallel()

	dir, ids := setupRepo(t, "first", "second")
	store, err := Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	name := plumbing.ReferenceName("refs/histedit/backup/main")

	_, err = store.ReadReference(ctx, name)
	require.ErrorIs(t, err, history.ErrReferenceNotFound)

	require.NoError(t, store.UpdateReference(ctx, history.RefUpdate{Name: name, New: plumbing.NewHash(ids[0])}))
	got, err := store.ReadReference(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, ids[0], got.String())

	refs, err := store.ListReferences(ctx, "refs/histedit/")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, name, refs[0].Name)

	require.NoError(t, store.DeleteReference(ctx, name))
	assert.False(t, testutil.RefExists(t, dir, name))
}

func TestResolveRevision(t *testing.T) {
	t.Parallel()

	dir, ids := setupRepo(t, "first", "second", "third")
	store, err := Open(dir)
	require.NoError(t, err)

	tests := []struct {
		rev  string
		want string
	}{
		{ids[1], ids[1]},
		{ids[1][:10], ids[1]},
		{"HEAD", ids[2]},
		{"HEAD~2", ids[0]},
		{"master", ids[2]},
	}
	for _, tt := range tests {
		got, err := store.ResolveRevision(tt.rev)
		require.NoError(t, err, tt.rev)
		assert.Equal(t, tt.want, got.String(), tt.rev)
	}

	_, err = store.ResolveRevision("does-not-exist")
	require.ErrorIs(t, err, history.ErrObjectNotFound)

	_, err = store.ResolveRevision("  ")
	require.ErrorIs(t, err, history.ErrObjectNotFound)
}

func TestNew_InMemoryHasNoGitDir(t *testing.T) {
	t.Parallel()

	r := testutil.NewMemoryRepo(t)
	ids := r.Chain("c0")
	store := New(r.Repo)

	assert.Empty(t, store.GitDir())
	require.NoError(t, store.UpdateReference(context.Background(), history.RefUpdate{
		Name:    plumbing.NewBranchReferenceName("main"),
		New:     ids[0],
		Message: "no reflog in memory",
	}))
	messages, err := store.ReadReflog(plumbing.NewBranchReferenceName("main"))
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestUpdateReference_UnwritableReflog(t *testing.T) {
	t.Parallel()

	dir, ids := setupRepo(t, "first", "second")
	store, err := Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	head, err := store.ResolveHead(ctx)
	require.NoError(t, err)

	// A directory where the reflog file belongs makes every append fail.
	logPath := filepath.Join(store.GitDir(), "logs", filepath.FromSlash(head.Ref.String()))
	require.NoError(t, os.RemoveAll(logPath))
	require.NoError(t, os.MkdirAll(filepath.Join(logPath, "blocked"), 0o755))

	err = store.UpdateReference(ctx, history.RefUpdate{
		Name:    head.Ref,
		New:     plumbing.NewHash(ids[0]),
		Old:     plumbing.NewHash(ids[1]),
		Message: "histedit: rewrote commit abcdef12",
	})
	require.NoError(t, err)
	assert.Equal(t, ids[0], testutil.GetHeadHash(t, dir))
}

func TestRewrite_UnwritableReflogStillSucceeds(t *testing.T) {
	t.Parallel()

	dir, ids := setupRepo(t, "first", "second", "third")
	store, err := Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	logPath := filepath.Join(store.GitDir(), "logs", "refs", "heads", "master")
	require.NoError(t, os.RemoveAll(logPath))
	require.NoError(t, os.MkdirAll(filepath.Join(logPath, "blocked"), 0o755))

	backups := history.NewBackupManager(store)
	message := "reworded\n"
	outcome, err := history.NewRewriter(store, history.RewriterOptions{Backups: backups}).Rewrite(
		ctx, plumbing.NewHash(ids[0]), history.Overrides{Message: &message})
	require.NoError(t, err)

	tip := testutil.GetHeadHash(t, dir)
	assert.NotEqual(t, ids[2], tip, "branch must have moved")
	assert.Equal(t, outcome.NewTip.String(), tip)

	restored, err := backups.Restore(ctx, "master")
	require.NoError(t, err)
	assert.Equal(t, ids[2], restored.String())
	assert.Equal(t, ids[2], testutil.GetHeadHash(t, dir))
	assert.False(t, testutil.RefExists(t, dir, plumbing.ReferenceName("refs/histedit/backup/master")))
}

func TestUpdateReference_PackedOnly(t *testing.T) {
	t.Parallel()

	dir, ids := setupRepo(t, "first", "second")
	store, err := Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Repository().Storer.PackRefs())
	ref := plumbing.NewBranchReferenceName("master")
	_, err = os.Stat(filepath.Join(store.GitDir(), "refs", "heads", "master"))
	require.True(t, os.IsNotExist(err), "master should live in packed-refs only")

	err = store.UpdateReference(ctx, history.RefUpdate{
		Name: ref,
		New:  plumbing.NewHash(ids[0]),
		Old:  plumbing.NewHash(ids[0]),
	})
	var conflict *history.ConcurrentModificationError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ids[1], conflict.Actual.String())
	assert.Equal(t, ids[1], testutil.GetHeadHash(t, dir))

	require.NoError(t, store.UpdateReference(ctx, history.RefUpdate{
		Name: ref,
		New:  plumbing.NewHash(ids[0]),
		Old:  plumbing.NewHash(ids[1]),
	}))
	assert.Equal(t, ids[0], testutil.GetHeadHash(t, dir))
}
