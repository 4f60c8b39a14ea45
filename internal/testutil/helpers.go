package testutil

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// ErrTest is returned by mocks configured to fail.
var ErrTest = errors.New("test error")

// TempDir returns a cleaned-up temp directory with symlinks resolved, so it
// compares equal to what git reports as the repository root.
func TempDir(t testing.TB) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolving temp dir: %v", err)
	}
	return dir
}

// AssertNoError stops the test on a non-nil error.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertEqual stops the test when got != want.
func AssertEqual[T comparable](t testing.TB, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func AssertContains(t testing.TB, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("%q does not contain %q", s, substr)
	}
}

func AssertLen[T any](t testing.TB, s []T, want int) {
	t.Helper()
	if len(s) != want {
		t.Fatalf("len = %d, want %d", len(s), want)
	}
}

func AssertTrue(t testing.TB, b bool, msg string) {
	t.Helper()
	if !b {
		t.Fatalf("want true: %s", msg)
	}
}

func AssertFalse(t testing.TB, b bool, msg string) {
	t.Helper()
	if b {
		t.Fatalf("want false: %s", msg)
	}
}

// GitRepo is a throwaway repository on branch main with a local identity.
type GitRepo struct {
	Path string
	t    testing.TB
}

// NewGitRepo initialises an empty repository in a temp directory.
func NewGitRepo(t testing.TB) *GitRepo {
	t.Helper()
	r := &GitRepo{Path: TempDir(t), t: t}
	r.git("init", "-q")
	r.git("config", "user.email", "test@example.com")
	r.git("config", "user.name", "Test User")
	r.git("config", "commit.gpgsign", "false")
	r.git("checkout", "-q", "-b", "main")
	return r
}

func (r *GitRepo) git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Path
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// WriteFile writes a repo-relative file, creating directories.
func (r *GitRepo) WriteFile(name, content string) {
	r.t.Helper()
	path := filepath.Join(r.Path, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("creating directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("writing %s: %v", name, err)
	}
}

// Commit stages everything and commits, returning the new HEAD.
func (r *GitRepo) Commit(message string) string {
	r.t.Helper()
	r.git("add", "-A")
	r.git("commit", "-q", "--allow-empty", "-m", message)
	return r.git("rev-parse", "HEAD")
}
