package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

const (
	// ApplyTimeout bounds "compound learn".
	ApplyTimeout = 120 * time.Second
	// UpdateTimeout bounds "compound update".
	UpdateTimeout = 60 * time.Second
)

// Applier invokes the apply tool's compound subcommands.
type Applier struct {
	runner   core.CommandRunner
	resolver *Resolver
}

// NewApplier creates an applier that resolves its binary through resolver.
func NewApplier(runner core.CommandRunner, resolver *Resolver) *Applier {
	return &Applier{runner: runner, resolver: resolver}
}

// Apply hands the serialized proposals to the apply tool.
func (a *Applier) Apply(ctx context.Context, proposals json.RawMessage) core.ProcessResult {
	return a.run(ctx, ApplyTimeout, "compound", "learn", "--auto", "--proposals", string(proposals), "--json")
}

// Update refreshes the generated instruction files.
func (a *Applier) Update(ctx context.Context) core.ProcessResult {
	return a.run(ctx, UpdateTimeout, "compound", "update", "--json")
}

func (a *Applier) run(ctx context.Context, timeout time.Duration, args ...string) core.ProcessResult {
	spec := a.resolver.Resolve(ctx)
	spec.Args = append(append([]string(nil), spec.Args...), args...)
	return a.runner.Run(ctx, spec, timeout)
}
