package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

// MockCall records a call to a mock.
type MockCall struct {
	Method    string
	Args      interface{}
	Timestamp time.Time
}

type callLog struct {
	calls []MockCall
	mu    sync.Mutex
}

func (l *callLog) record(method string, args interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, MockCall{
		Method:    method,
		Args:      args,
		Timestamp: time.Now(),
	})
}

// Calls returns recorded calls.
func (l *callLog) Calls() []MockCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]MockCall{}, l.calls...)
}

// CallCount returns number of calls to a method.
func (l *callLog) CallCount(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, c := range l.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears call history.
func (l *callLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

// RunCall is the argument recorded for a MockRunner call.
type RunCall struct {
	Spec    core.CommandSpec
	Timeout time.Duration
}

// MockRunner implements core.CommandRunner for testing. By default every
// command exits 0 with empty output.
type MockRunner struct {
	callLog
	runFunc func(context.Context, core.CommandSpec) core.ProcessResult
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// Run mocks a subprocess run.
func (m *MockRunner) Run(ctx context.Context, spec core.CommandSpec, timeout time.Duration) core.ProcessResult {
	m.record(spec.Cmd, RunCall{Spec: spec, Timeout: timeout})
	if m.runFunc != nil {
		return m.runFunc(ctx, spec)
	}
	return core.ProcessResult{}
}

// WithRunFunc sets a custom run function.
func (m *MockRunner) WithRunFunc(fn func(context.Context, core.CommandSpec) core.ProcessResult) *MockRunner {
	m.runFunc = fn
	return m
}

// WithResult configures a fixed result for every command.
func (m *MockRunner) WithResult(res core.ProcessResult) *MockRunner {
	m.runFunc = func(context.Context, core.CommandSpec) core.ProcessResult {
		return res
	}
	return m
}

// RunCalls returns the recorded runs in order.
func (m *MockRunner) RunCalls() []RunCall {
	calls := m.Calls()
	out := make([]RunCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Args.(RunCall))
	}
	return out
}

// ErrParentRequired is returned by MockSessionClient.Create for standalone
// sessions when RequireParent is set.
var ErrParentRequired = errors.New("parentID required")

// MockSessionClient implements core.SessionClient for testing.
type MockSessionClient struct {
	callLog

	// RequireParent rejects Create calls without a parent.
	RequireParent bool
	// CreateErr fails every Create call.
	CreateErr error
	// PromptDelay blocks Prompt until it elapses or ctx is done.
	PromptDelay time.Duration

	promptFunc func(context.Context, string, core.PromptRequest) (*core.PromptResponse, error)
	seq        atomic.Int64
	live       sync.Map
}

// NewMockSessionClient creates a new mock session client.
func NewMockSessionClient() *MockSessionClient {
	return &MockSessionClient{}
}

// Create mocks session creation.
func (m *MockSessionClient) Create(_ context.Context, req core.CreateSessionRequest) (string, error) {
	m.record("Create", req)
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if m.RequireParent && req.ParentID == "" {
		return "", ErrParentRequired
	}
	id := fmt.Sprintf("ses_mock_%d", m.seq.Add(1))
	m.live.Store(id, struct{}{})
	return id, nil
}

// Prompt mocks prompt submission.
func (m *MockSessionClient) Prompt(ctx context.Context, id string, req core.PromptRequest) (*core.PromptResponse, error) {
	m.record("Prompt", req)
	if m.PromptDelay > 0 {
		select {
		case <-time.After(m.PromptDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.promptFunc != nil {
		return m.promptFunc(ctx, id, req)
	}
	return &core.PromptResponse{Parts: []core.MessagePart{{Type: "text", Text: "{}"}}}, nil
}

// Delete mocks session teardown.
func (m *MockSessionClient) Delete(_ context.Context, id string) error {
	m.record("Delete", id)
	m.live.Delete(id)
	return nil
}

// WithPromptFunc sets a custom prompt function.
func (m *MockSessionClient) WithPromptFunc(fn func(context.Context, string, core.PromptRequest) (*core.PromptResponse, error)) *MockSessionClient {
	m.promptFunc = fn
	return m
}

// WithResponse configures a fixed text reply.
func (m *MockSessionClient) WithResponse(text string) *MockSessionClient {
	m.promptFunc = func(context.Context, string, core.PromptRequest) (*core.PromptResponse, error) {
		return &core.PromptResponse{Parts: []core.MessagePart{{Type: "text", Text: text}}}, nil
	}
	return m
}

// LiveSessions returns how many created sessions were never deleted.
func (m *MockSessionClient) LiveSessions() int {
	n := 0
	m.live.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// LastPrompt returns the text of the most recent prompt.
func (m *MockSessionClient) LastPrompt() string {
	calls := m.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if req, ok := calls[i].Args.(core.PromptRequest); ok {
			return req.Text
		}
	}
	return ""
}

// Notification is a message captured by MockNotifier.
type Notification struct {
	Message string
	Variant core.Variant
}

// MockNotifier implements core.Notifier for testing.
type MockNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Notify records the notification.
func (m *MockNotifier) Notify(_ context.Context, message string, variant core.Variant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, Notification{Message: message, Variant: variant})
}

// Notifications returns what was shown.
func (m *MockNotifier) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification{}, m.notes...)
}

// MockChangeSource implements core.ChangeSource for testing.
type MockChangeSource struct {
	callLog
	summary core.ChangeSummary
	fail    bool
	delay   time.Duration
}

// NewMockChangeSource returns a source reporting summary.
func NewMockChangeSource(summary core.ChangeSummary) *MockChangeSource {
	return &MockChangeSource{summary: summary}
}

// WithFailure makes every query fail.
func (m *MockChangeSource) WithFailure() *MockChangeSource {
	m.fail = true
	return m
}

// WithDelay makes every query take d.
func (m *MockChangeSource) WithDelay(d time.Duration) *MockChangeSource {
	m.delay = d
	return m
}

// ChangeSummary mocks the working-tree query.
func (m *MockChangeSource) ChangeSummary(ctx context.Context) core.Result[core.ChangeSummary] {
	m.record("ChangeSummary", nil)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return core.Fail[core.ChangeSummary]("cancelled", ctx.Err())
		}
	}
	if m.fail {
		return core.Fail[core.ChangeSummary]("git_failed", ErrTest)
	}
	return core.Ok(m.summary)
}
