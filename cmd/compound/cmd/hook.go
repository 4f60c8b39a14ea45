package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/compound/internal/hooks"
)

// maxHookInput bounds one stdin payload.
const maxHookInput = 8 << 20

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle one host callback read from stdin",
	Long: `Handle a single host callback for hosts that spawn a process per hook.

The payload is read from stdin and any reply is written to stdout as JSON.
Malformed payloads, missing scaffolding and internal failures never fail the
host: the command logs to stderr (or log.file) and exits 0 with no reply.
Autolearn runs inline on session.idle, so that invocation may take as long
as the model turn.`,
}

// hookFunc handles one decoded payload and returns the reply, if any.
type hookFunc func(ctx context.Context, a *app, input []byte) (any, error)

func newHookCommand(use, short string, fn hookFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHook(cmd, fn)
		},
	}
}

func init() {
	rootCmd.AddCommand(hookCmd)

	hookCmd.AddCommand(
		newHookCommand("start", "Run the session-start check and refresh", hookStart),
		newHookCommand("event", "Handle a lifecycle event", hookEvent),
		newHookCommand("tool-before", "Record a tool call before it runs", hookTool(false)),
		newHookCommand("tool-after", "Record a finished tool call and maybe nudge", hookTool(true)),
		newHookCommand("messages", "Inject the turn reminder into a transcript", hookMessages),
		newHookCommand("compaction", "Print the compaction context lines", hookCompaction),
	)
}

func runHook(cmd *cobra.Command, fn hookFunc) error {
	ctx, stop := runWithContext(cmd)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "compound: %v\n", err)
		return nil
	}
	defer a.Close()

	installed := len(a.service.CheckInstall()) == 0
	if installed {
		a.restoreCheckpoint()
	}

	input, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxHookInput))
	if err != nil {
		a.logger.Warn("reading hook input failed", "error", err)
		return nil
	}

	reply, err := fn(ctx, a, input)
	a.service.Wait()
	if installed {
		a.saveCheckpoint()
	}
	if err != nil {
		a.logger.Warn("rejected hook payload", "hook", cmd.Name(), "error", err)
		return nil
	}
	if reply == nil {
		return nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	if err := enc.Encode(reply); err != nil {
		a.logger.Warn("writing hook reply failed", "error", err)
	}
	return nil
}

func hookStart(ctx context.Context, a *app, _ []byte) (any, error) {
	a.service.Start(ctx)
	return nil, nil
}

func hookEvent(ctx context.Context, a *app, input []byte) (any, error) {
	ev, err := hooks.AdaptEvent(input)
	if err != nil {
		return nil, err
	}
	a.service.HandleEvent(ctx, ev)
	return nil, nil
}

func hookTool(after bool) hookFunc {
	return func(ctx context.Context, a *app, input []byte) (any, error) {
		payload, err := hooks.AdaptTool(input, after)
		if err != nil {
			return nil, err
		}
		if after {
			a.service.ToolAfter(ctx, &payload.Call)
		} else {
			a.service.ToolBefore(ctx, payload.Call)
		}
		return payload.Reply(), nil
	}
}

func hookMessages(ctx context.Context, a *app, input []byte) (any, error) {
	transcript, err := hooks.AdaptMessages(input)
	if err != nil {
		return nil, err
	}
	a.service.TransformMessages(ctx, transcript.Messages)
	return transcript.Reply(), nil
}

func hookCompaction(_ context.Context, a *app, _ []byte) (any, error) {
	return map[string][]string{"context": {a.service.CompactionContext()}}, nil
}
