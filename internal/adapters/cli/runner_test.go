package cli

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/testutil"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunner_CapturesOutput(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(testutil.TempDir(t), nil)

	res := r.Run(context.Background(), core.CommandSpec{
		Cmd:  "sh",
		Args: []string{"-c", "echo out; echo err 1>&2"},
	}, 5*time.Second)

	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0 (stderr %q)", res.ExitCode, res.Stderr)
	}
	if res.Stdout != "out\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "out\n")
	}
	if res.Stderr != "err\n" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "err\n")
	}
	if !res.Succeeded() {
		t.Error("Succeeded() = false")
	}
}

func TestRunner_ExitCode(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner("", nil)

	res := r.Run(context.Background(), core.CommandSpec{Cmd: "sh", Args: []string{"-c", "exit 3"}}, 5*time.Second)
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.TimedOut {
		t.Error("TimedOut = true for a normal exit")
	}
}

func TestRunner_TimeoutKillsProcessGroup(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner("", nil)

	start := time.Now()
	// The background sleep keeps stdout open; only a group kill ends it quickly.
	res := r.Run(context.Background(), core.CommandSpec{
		Cmd:  "sh",
		Args: []string{"-c", "sleep 30 & sleep 30"},
	}, 200*time.Millisecond)
	elapsed := time.Since(start)

	if res.ExitCode != core.ExitTimeout {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, core.ExitTimeout)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false")
	}
	if !strings.HasSuffix(res.Stderr, "\n(timeout)") {
		t.Errorf("Stderr = %q, want (timeout) suffix", res.Stderr)
	}
	if elapsed > 10*time.Second {
		t.Errorf("Run took %v after timeout", elapsed)
	}
}

func TestRunner_SpawnFailure(t *testing.T) {
	r := NewRunner("", nil)

	res := r.Run(context.Background(), core.CommandSpec{Cmd: "definitely-not-a-real-binary-xyz"}, time.Second)
	if res.ExitCode != ExitSpawnFailed {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, ExitSpawnFailed)
	}
	if res.Stderr == "" {
		t.Error("Stderr should describe the spawn failure")
	}

	res = r.Run(context.Background(), core.CommandSpec{Cmd: "  "}, time.Second)
	if res.ExitCode != ExitSpawnFailed {
		t.Errorf("empty command ExitCode = %d, want %d", res.ExitCode, ExitSpawnFailed)
	}
}
