//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/entireio/histedit/cmd/histedit/cli/telemetry"
	"github.com/entireio/histedit/cmd/histedit/cli/testutil"
)

// testBinaryPath holds the path to the CLI binary built once in TestMain.
// All tests share this binary to avoid repeated builds.
var testBinaryPath string

// TestMain builds the CLI binary once before running tests.
func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "histedit-integration-test-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir for binary: %v\n", err)
		os.Exit(1)
	}

	testBinaryPath = filepath.Join(tmpDir, "histedit")

	buildCmd := exec.CommandContext(context.Background(), "go", "build", "-o", testBinaryPath, ".")
	buildCmd.Dir = filepath.Join(findModuleRoot(), "cmd", "histedit")

	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build CLI binary: %v\nOutput: %s\n", err, buildOutput)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// getTestBinary returns the path to the shared test binary.
// It panics if TestMain hasn't run (testBinaryPath is empty).
func getTestBinary() string {
	if testBinaryPath == "" {
		panic("testBinaryPath not set - TestMain must run before tests")
	}
	return testBinaryPath
}

// TestEnv manages an isolated repository and home directory for one test.
// Note: Does NOT use t.Setenv so tests can run in parallel; the CLI receives
// its environment through cmd.Env instead.
type TestEnv struct {
	T       *testing.T
	RepoDir string
	HomeDir string
}

// NewTestEnv creates a repository with one commit per message and returns
// the environment together with the commit ids, oldest first.
func NewTestEnv(t *testing.T, messages ...string) (*TestEnv, []string) {
	t.Helper()

	// Resolve symlinks on macOS where /var -> /private/var
	repoDir := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(repoDir); err == nil {
		repoDir = resolved
	}

	testutil.InitRepo(t, repoDir)
	ids := testutil.CommitFiles(t, repoDir, messages...)

	return &TestEnv{T: t, RepoDir: repoDir, HomeDir: t.TempDir()}, ids
}

// environ is the environment every CLI invocation runs with.
func (env *TestEnv) environ() []string {
	return append(os.Environ(),
		"HOME="+env.HomeDir,
		telemetry.OptOutEnvVar+"=1",
	)
}

// RunCommand executes the CLI without a terminal and returns combined output.
func (env *TestEnv) RunCommand(args ...string) (string, error) {
	env.T.Helper()

	cmd := exec.CommandContext(env.T.Context(), getTestBinary(), args...)
	cmd.Dir = env.RepoDir
	cmd.Env = env.environ()

	output, err := cmd.CombinedOutput()
	return string(output), err
}

// HeadHash returns the commit the current branch points at.
func (env *TestEnv) HeadHash() string {
	env.T.Helper()
	return testutil.GetHeadHash(env.T, env.RepoDir)
}

func findModuleRoot() string {
	// Start from this source file's location and walk up to find go.mod
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		panic("failed to get current file path via runtime.Caller")
	}
	dir := filepath.Dir(thisFile)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("could not find go.mod starting from " + thisFile)
		}
		dir = parent
	}
}
