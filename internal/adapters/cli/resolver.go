package cli

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/logging"
)

const (
	// DefaultBinary is the apply tool tried first when none is configured.
	DefaultBinary = "loom"

	// ProbeTimeout bounds each capability probe.
	ProbeTimeout = 8 * time.Second
)

// fallbackCandidates follow the configured binary in probe order.
var fallbackCandidates = []string{"agent-loom", "loom"}

// Resolver finds the apply-tool binary by probing candidates with --help.
// The first successful probe is cached for the life of the process; when no
// candidate answers, the configured default is returned and nothing is
// cached, so a later call probes again.
type Resolver struct {
	runner     core.CommandRunner
	defaultBin string
	candidates []string
	logger     *logging.Logger

	group    singleflight.Group
	mu       sync.RWMutex
	resolved string
}

// NewResolver creates a resolver that tries defaultBin first.
func NewResolver(runner core.CommandRunner, defaultBin string, logger *logging.Logger) *Resolver {
	if defaultBin == "" {
		defaultBin = DefaultBinary
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		runner:     runner,
		defaultBin: defaultBin,
		candidates: candidateList(defaultBin),
		logger:     logger,
	}
}

func candidateList(defaultBin string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(fallbackCandidates)+1)
	for _, c := range append([]string{defaultBin}, fallbackCandidates...) {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Candidates returns the probe order.
func (r *Resolver) Candidates() []string {
	return append([]string(nil), r.candidates...)
}

// Resolve returns the command to invoke. Concurrent first calls share a
// single round of probes.
func (r *Resolver) Resolve(ctx context.Context) core.CommandSpec {
	r.mu.RLock()
	bin := r.resolved
	r.mu.RUnlock()
	if bin != "" {
		return core.CommandSpec{Cmd: bin}
	}

	v, _, _ := r.group.Do("resolve", func() (any, error) {
		r.mu.RLock()
		cached := r.resolved
		r.mu.RUnlock()
		if cached != "" {
			return cached, nil
		}

		for _, c := range r.candidates {
			res := r.runner.Run(ctx, core.CommandSpec{Cmd: c, Args: []string{"--help"}}, ProbeTimeout)
			if res.ExitCode == 0 {
				r.mu.Lock()
				r.resolved = c
				r.mu.Unlock()
				r.logger.Debug("apply tool resolved", "binary", c)
				return c, nil
			}
		}
		r.logger.Debug("no apply tool answered, using default", "binary", r.defaultBin)
		return r.defaultBin, nil
	})
	return core.CommandSpec{Cmd: v.(string)}
}
