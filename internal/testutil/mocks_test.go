package testutil_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/testutil"
)

func TestMockRunner_DefaultSucceeds(t *testing.T) {
	mock := testutil.NewMockRunner()

	res := mock.Run(context.Background(), core.CommandSpec{Cmd: "loom", Args: []string{"--help"}}, time.Second)

	testutil.AssertEqual(t, res.ExitCode, 0)
	testutil.AssertEqual(t, mock.CallCount("loom"), 1)
	calls := mock.RunCalls()
	testutil.AssertLen(t, calls, 1)
	testutil.AssertEqual(t, calls[0].Timeout, time.Second)
}

func TestMockRunner_WithResult(t *testing.T) {
	mock := testutil.NewMockRunner().WithResult(core.ProcessResult{ExitCode: 2, Stderr: "boom"})

	res := mock.Run(context.Background(), core.CommandSpec{Cmd: "x"}, 0)
	testutil.AssertEqual(t, res.ExitCode, 2)
	testutil.AssertEqual(t, res.Stderr, "boom")

	mock.Reset()
	testutil.AssertLen(t, mock.Calls(), 0)
}

func TestMockSessionClient_Lifecycle(t *testing.T) {
	mock := testutil.NewMockSessionClient().WithResponse(`{"a":1}`)
	ctx := context.Background()

	id, err := mock.Create(ctx, core.CreateSessionRequest{Title: "t"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, mock.LiveSessions(), 1)

	resp, err := mock.Prompt(ctx, id, core.PromptRequest{Agent: "plan", Text: "hello"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.Parts[0].Text, `{"a":1}`)
	testutil.AssertEqual(t, mock.LastPrompt(), "hello")

	testutil.AssertNoError(t, mock.Delete(ctx, id))
	testutil.AssertEqual(t, mock.LiveSessions(), 0)
}

func TestMockSessionClient_RequireParent(t *testing.T) {
	mock := testutil.NewMockSessionClient()
	mock.RequireParent = true

	_, err := mock.Create(context.Background(), core.CreateSessionRequest{Title: "t"})
	testutil.AssertTrue(t, errors.Is(err, testutil.ErrParentRequired), "standalone create should fail")

	_, err = mock.Create(context.Background(), core.CreateSessionRequest{Title: "t", ParentID: "ses_1"})
	testutil.AssertNoError(t, err)
}

func TestMockChangeSource(t *testing.T) {
	summary := core.ChangeSummary{ChangedFiles: []string{"a.go"}, DiffStat: " a.go | 1 +"}

	res := testutil.NewMockChangeSource(summary).ChangeSummary(context.Background())
	testutil.AssertTrue(t, res.IsOK(), "should succeed")
	testutil.AssertEqual(t, res.Value.DiffStat, summary.DiffStat)

	res = testutil.NewMockChangeSource(summary).WithFailure().ChangeSummary(context.Background())
	testutil.AssertFalse(t, res.IsOK(), "should fail")
}

func TestMockNotifier(t *testing.T) {
	mock := testutil.NewMockNotifier()
	mock.Notify(context.Background(), "hi", core.VariantInfo)

	notes := mock.Notifications()
	testutil.AssertLen(t, notes, 1)
	testutil.AssertEqual(t, notes[0].Variant, core.VariantInfo)
}
