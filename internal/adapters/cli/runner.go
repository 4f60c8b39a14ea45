// Package cli runs external tools as bounded subprocesses: the generic
// Runner, the apply-tool binary Resolver and the Applier built on both.
package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/logging"
)

const (
	// DefaultTimeout bounds a run when the caller passes no timeout.
	DefaultTimeout = 120 * time.Second

	// ExitSpawnFailed is reported when the executable could not be started.
	ExitSpawnFailed = 127

	// waitDelay bounds how long Wait keeps draining pipes after a kill.
	waitDelay = 2 * time.Second

	timeoutNote = "\n(timeout)"
)

// Runner implements core.CommandRunner on os/exec.
type Runner struct {
	workDir string
	logger  *logging.Logger
}

// NewRunner creates a runner whose subprocesses start in workDir.
func NewRunner(workDir string, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{workDir: workDir, logger: logger}
}

// Run executes spec and waits for it, killing the process group once timeout
// elapses. Spawn failures and timeouts come back as non-zero exit codes.
func (r *Runner) Run(ctx context.Context, spec core.CommandSpec, timeout time.Duration) core.ProcessResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if strings.TrimSpace(spec.Cmd) == "" {
		return core.ProcessResult{ExitCode: ExitSpawnFailed, Stderr: "empty command"}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 -- command comes from configuration, never from the host
	cmd := exec.CommandContext(ctx, spec.Cmd, spec.Args...)
	cmd.Dir = r.workDir
	cmd.Env = append(os.Environ(), "COMPOUND_MANAGED=true")
	cmd.WaitDelay = waitDelay
	configureProcAttr(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("cli: executing command",
		"path", spec.Cmd,
		"argc", len(spec.Args),
		"work_dir", cmd.Dir,
		"timeout", timeout,
	)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := core.ProcessResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.ExitCode = core.ExitTimeout
		result.TimedOut = true
		result.Stderr += timeoutNote
		r.logger.Warn("cli: command timeout",
			"path", spec.Cmd,
			"duration", duration,
			"timeout", timeout,
		)
		return result
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode < 0 {
			// Killed by a signal.
			result.ExitCode = 1
		}
	default:
		result.ExitCode = ExitSpawnFailed
		if result.Stderr == "" {
			result.Stderr = err.Error()
		}
	}

	r.logger.Debug("cli: command completed",
		"path", spec.Cmd,
		"exit_code", result.ExitCode,
		"duration", duration,
		"stdout_length", len(result.Stdout),
		"stderr_length", len(result.Stderr),
	)
	return result
}
