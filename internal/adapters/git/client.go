package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

const (
	// DefaultTimeout bounds each status or diff query.
	DefaultTimeout = 20 * time.Second

	// RootTimeout bounds repository root discovery.
	RootTimeout = 8 * time.Second
)

// Client wraps git CLI operations.
type Client struct {
	repoPath string
	timeout  time.Duration
}

// NewClient creates a new git client. The path is not required to be a
// repository; queries against a non-repository fail as values.
func NewClient(repoPath string) (*Client, error) {
	// Resolve to absolute path
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	return &Client{
		repoPath: absPath,
		timeout:  DefaultTimeout,
	}, nil
}

// IsRepo reports whether the client path is inside a git work tree.
func (c *Client) IsRepo(ctx context.Context) bool {
	_, err := c.run(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// run executes a git command and returns its raw stdout.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	return runGit(ctx, c.repoPath, c.timeout, args...)
}

func runGit(ctx context.Context, dir string, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", core.ErrTimeout("git command timed out")
		}
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
	}

	return stdout.String(), nil
}

// ChangeSummary reports the changed paths and the diff stat of the working
// tree. It never returns an error value: failures come back as a failed
// Result carrying an empty summary.
func (c *Client) ChangeSummary(ctx context.Context) core.Result[core.ChangeSummary] {
	status, err := c.run(ctx, "status", "--porcelain")
	if err != nil {
		return core.Fail[core.ChangeSummary](failureReason(err, "git_status_failed"), err)
	}
	diff, err := c.run(ctx, "diff", "--stat")
	if err != nil {
		return core.Fail[core.ChangeSummary](failureReason(err, "git_diff_failed"), err)
	}
	return core.Ok(core.ChangeSummary{
		ChangedFiles: parsePorcelain(status),
		DiffStat:     strings.TrimSpace(diff),
	})
}

func failureReason(err error, fallback string) string {
	if core.IsCategory(err, core.ErrCatTimeout) {
		return "git_timeout"
	}
	return fallback
}

// parsePorcelain extracts paths from "git status --porcelain" output. Each
// line is a two-letter status, a space, then the path.
func parsePorcelain(output string) []string {
	files := make([]string, 0)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) <= 3 {
			continue
		}
		if path := strings.TrimSpace(line[3:]); path != "" {
			files = append(files, path)
		}
	}
	return files
}

// RepoPath returns the repository path.
func (c *Client) RepoPath() string {
	return c.repoPath
}

// WithTimeout sets the command timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// RepoRoot returns the top level of the work tree containing start, or start
// itself when it is not inside a repository.
func RepoRoot(ctx context.Context, start string) string {
	out, err := runGit(ctx, start, RootTimeout, "rev-parse", "--show-toplevel")
	if err != nil {
		return start
	}
	if top := strings.TrimSpace(out); top != "" {
		return top
	}
	return start
}
