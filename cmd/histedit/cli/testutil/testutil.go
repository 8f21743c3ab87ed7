// Package testutil provides shared git fixtures for histedit tests.
// On-disk helpers back the CLI tests; MemoryRepo backs the engine tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Default identity used for fixture commits.
const (
	TestName  = "Test User"
	TestEmail = "test@example.com"
)

// BaseTime is the timestamp of the first fixture commit. Later commits are
// one minute apart so newest-first ordering is deterministic.
var BaseTime = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.FixedZone("", 2*60*60))

// InitRepo initializes a git repository in the given directory with test user config.
func InitRepo(t *testing.T, repoDir string) {
	t.Helper()

	repo, err := git.PlainInit(repoDir, false)
	if err != nil {
		t.Fatalf("failed to init git repo: %v", err)
	}

	cfg, err := repo.Config()
	if err != nil {
		t.Fatalf("failed to get repo config: %v", err)
	}
	cfg.User.Name = TestName
	cfg.User.Email = TestEmail

	// Disable GPG signing for test commits
	if cfg.Raw == nil {
		cfg.Raw = config.New()
	}
	cfg.Raw.Section("commit").SetOption("gpgsign", "false")

	if err := repo.SetConfig(cfg); err != nil {
		t.Fatalf("failed to set repo config: %v", err)
	}
}

// WriteFile creates a file with the given content in the repo directory.
// It creates parent directories as needed.
func WriteFile(t *testing.T, repoDir, path, content string) {
	t.Helper()

	fullPath := filepath.Join(repoDir, path)

	dir := filepath.Dir(fullPath)
	//nolint:gosec // test code, permissions are intentionally standard
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	//nolint:gosec // test code, permissions are intentionally standard
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// GitAdd stages files for commit.
func GitAdd(t *testing.T, repoDir string, paths ...string) {
	t.Helper()

	worktree := openWorktree(t, repoDir)
	for _, path := range paths {
		if _, err := worktree.Add(path); err != nil {
			t.Fatalf("failed to add file %s: %v", path, err)
		}
	}
}

// GitCommit creates a commit with all staged files at the given time and
// returns its id.
func GitCommit(t *testing.T, repoDir, message string, when time.Time) string {
	t.Helper()

	worktree := openWorktree(t, repoDir)
	sig := &object.Signature{Name: TestName, Email: TestEmail, When: when}
	hash, err := worktree.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}

// CommitFiles writes, stages and commits one file per message, returning the
// commit ids oldest first.
func CommitFiles(t *testing.T, repoDir string, messages ...string) []string {
	t.Helper()

	ids := make([]string, 0, len(messages))
	for i, msg := range messages {
		name := filepath.Join("files", "file"+string(rune('a'+i%26))+".txt")
		WriteFile(t, repoDir, name, msg+"\n")
		GitAdd(t, repoDir, name)
		ids = append(ids, GitCommit(t, repoDir, msg, BaseTime.Add(time.Duration(i)*time.Minute)))
	}
	return ids
}

func openWorktree(t *testing.T, repoDir string) *git.Worktree {
	t.Helper()

	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		t.Fatalf("failed to open git repo: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	return worktree
}

// GetHeadHash returns the current HEAD commit hash.
func GetHeadHash(t *testing.T, repoDir string) string {
	t.Helper()

	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		t.Fatalf("failed to open git repo: %v", err)
	}

	head, err := repo.Head()
	if err != nil {
		t.Fatalf("failed to get HEAD: %v", err)
	}

	return head.Hash().String()
}

// GetCommit returns the commit object for the given id.
func GetCommit(t *testing.T, repoDir, hash string) *object.Commit {
	t.Helper()

	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		t.Fatalf("failed to open git repo: %v", err)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		t.Fatalf("failed to get commit %s: %v", hash, err)
	}
	return commit
}

// RefExists reports whether a reference exists in the repository.
func RefExists(t *testing.T, repoDir string, name plumbing.ReferenceName) bool {
	t.Helper()

	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		t.Fatalf("failed to open git repo: %v", err)
	}
	_, err = repo.Reference(name, true)
	return err == nil
}

// MemoryRepo is an in-memory repository for engine tests. Commits are built
// directly as objects, so any topology can be expressed.
type MemoryRepo struct {
	t     testing.TB
	Repo  *git.Repository
	clock time.Time
}

// NewMemoryRepo creates an empty in-memory repository whose HEAD points at
// the unborn branch main.
func NewMemoryRepo(t testing.TB) *MemoryRepo {
	t.Helper()

	repo, err := git.Init(memory.NewStorage(), nil)
	if err != nil {
		t.Fatalf("failed to init memory repo: %v", err)
	}
	r := &MemoryRepo{t: t, Repo: repo, clock: BaseTime}
	r.Checkout("main")
	return r
}

// Commit stores a commit with a tree holding one file whose content is the
// message. The branch is not moved.
func (r *MemoryRepo) Commit(message string, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()

	sig := object.Signature{Name: TestName, Email: TestEmail, When: r.clock}
	r.clock = r.clock.Add(time.Minute)
	return r.CommitWith(&object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		ParentHashes: parents,
	})
}

// CommitWith stores c, filling in a tree when TreeHash is zero.
func (r *MemoryRepo) CommitWith(c *object.Commit) plumbing.Hash {
	r.t.Helper()

	if c.TreeHash.IsZero() {
		c.TreeHash = r.Tree(c.Message)
	}

	obj := r.Repo.Storer.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		r.t.Fatalf("failed to encode commit: %v", err)
	}
	hash, err := r.Repo.Storer.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("failed to store commit: %v", err)
	}
	return hash
}

// Tree stores a tree with a single file and returns its id.
func (r *MemoryRepo) Tree(content string) plumbing.Hash {
	r.t.Helper()

	blob := r.Repo.Storer.NewEncodedObject()
	blob.SetType(plumbing.BlobObject)
	w, err := blob.Writer()
	if err != nil {
		r.t.Fatalf("failed to open blob writer: %v", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		r.t.Fatalf("failed to write blob: %v", err)
	}
	if err := w.Close(); err != nil {
		r.t.Fatalf("failed to close blob writer: %v", err)
	}
	blobHash, err := r.Repo.Storer.SetEncodedObject(blob)
	if err != nil {
		r.t.Fatalf("failed to store blob: %v", err)
	}

	tree := &object.Tree{Entries: []object.TreeEntry{
		{Name: "file.txt", Mode: filemode.Regular, Hash: blobHash},
	}}
	obj := r.Repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		r.t.Fatalf("failed to encode tree: %v", err)
	}
	treeHash, err := r.Repo.Storer.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("failed to store tree: %v", err)
	}
	return treeHash
}

// Chain creates a linear history with one commit per message on branch main
// and points main at the last one. Ids are returned oldest first.
func (r *MemoryRepo) Chain(messages ...string) []plumbing.Hash {
	r.t.Helper()

	ids := make([]plumbing.Hash, 0, len(messages))
	var parents []plumbing.Hash
	for _, msg := range messages {
		id := r.Commit(msg, parents...)
		ids = append(ids, id)
		parents = []plumbing.Hash{id}
	}
	if len(ids) > 0 {
		r.SetBranch("main", ids[len(ids)-1])
	}
	return ids
}

// SetBranch points a branch at id.
func (r *MemoryRepo) SetBranch(branch string, id plumbing.Hash) {
	r.t.Helper()
	r.SetRef(plumbing.NewBranchReferenceName(branch), id)
}

// SetRef points any reference at id.
func (r *MemoryRepo) SetRef(name plumbing.ReferenceName, id plumbing.Hash) {
	r.t.Helper()
	if err := r.Repo.Storer.SetReference(plumbing.NewHashReference(name, id)); err != nil {
		r.t.Fatalf("failed to set %s: %v", name, err)
	}
}

// Checkout makes HEAD a symbolic reference to branch.
func (r *MemoryRepo) Checkout(branch string) {
	r.t.Helper()
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch))
	if err := r.Repo.Storer.SetReference(head); err != nil {
		r.t.Fatalf("failed to set HEAD: %v", err)
	}
}

// Detach points HEAD directly at id.
func (r *MemoryRepo) Detach(id plumbing.Hash) {
	r.t.Helper()
	r.SetRef(plumbing.HEAD, id)
}

// Branch returns the id a branch points at.
func (r *MemoryRepo) Branch(branch string) plumbing.Hash {
	r.t.Helper()
	ref, err := r.Repo.Storer.Reference(plumbing.NewBranchReferenceName(branch))
	if err != nil {
		r.t.Fatalf("failed to read branch %s: %v", branch, err)
	}
	return ref.Hash()
}

// CommitObject loads a commit.
func (r *MemoryRepo) CommitObject(id plumbing.Hash) *object.Commit {
	r.t.Helper()
	c, err := r.Repo.CommitObject(id)
	if err != nil {
		r.t.Fatalf("failed to read commit %s: %v", id, err)
	}
	return c
}
