package nudge

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/events"
)

func shellCall(session, command string, res core.ToolResult) *core.ToolCall {
	res.HasOutput = true
	return &core.ToolCall{
		SessionID: session,
		Tool:      "bash",
		Args:      map[string]any{"command": command},
		Result:    &res,
	}
}

func TestLooksFailed(t *testing.T) {
	tests := []struct {
		name string
		res  *core.ToolResult
		want bool
	}{
		{"nil", nil, false},
		{"clean", &core.ToolResult{Output: "ok\n", HasOutput: true}, false},
		{"ok false", &core.ToolResult{OK: core.BoolPtr(false)}, true},
		{"ok true", &core.ToolResult{OK: core.BoolPtr(true)}, false},
		{"exit code", &core.ToolResult{ExitCode: core.IntPtr(2)}, true},
		{"exit zero", &core.ToolResult{ExitCode: core.IntPtr(0)}, false},
		{"title", &core.ToolResult{Title: "Build Failed"}, true},
		{"title substring", &core.ToolResult{Title: "errors.go"}, false},
		{"traceback", &core.ToolResult{Output: "Traceback (most recent call last):", HasOutput: true}, true},
		{"go panic", &core.ToolResult{Output: "panic: runtime error", HasOutput: true}, true},
		{"segfault", &core.ToolResult{Output: "Segmentation fault (core dumped)", HasOutput: true}, true},
		{"shouted", &core.ToolResult{Output: "--- FAILED: TestX", HasOutput: true}, true},
		{"lowercase error word", &core.ToolResult{Output: "0 errors, no error", HasOutput: true}, false},
		{"no string output", &core.ToolResult{Output: "ERROR", HasOutput: false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksFailed(tt.res))
		})
	}
}

func TestPatterns(t *testing.T) {
	raw := " go test ; ;make\\s+lint;[invalid"
	for i := 0; i < 30; i++ {
		raw += ";p" + strings.Repeat("x", i)
	}
	parsed := ParsePatterns(raw)
	assert.Equal(t, []string{"go test", "make\\s+lint", "[invalid"}, parsed[:3])

	compiled := CompilePatterns(parsed)
	assert.Len(t, compiled, MaxPatterns-1, "first 20 kept, the invalid one dropped")
	assert.True(t, compiled[0].MatchString("GO TEST ./..."))
}

func TestDecide(t *testing.T) {
	e := New(Config{Tool: true, CommandPatterns: []string{`^go test`}})

	d := e.Decide(*shellCall("s", "go test ./...", core.ToolResult{Output: "ok"}))
	assert.Equal(t, Decision{Eligible: true, Signature: "go test ./..."}, d)

	d = e.Decide(*shellCall("s", "ls -la", core.ToolResult{Output: "ok"}))
	assert.False(t, d.Eligible)

	d = e.Decide(*shellCall("s", "ls -la", core.ToolResult{OK: core.BoolPtr(false)}))
	assert.True(t, d.Eligible)
	assert.True(t, d.Failed)

	read := core.ToolCall{Tool: "read", Result: &core.ToolResult{OK: core.BoolPtr(false)}}
	assert.False(t, e.Decide(read).Eligible, "only shell-like tools")
}

func TestAfterTool_AppendsText(t *testing.T) {
	bus := events.New(10)
	defer bus.Close()
	ch := bus.Subscribe(events.TypeNudgeFired)

	e := New(Config{Tool: true}, WithEvents(bus))
	call := shellCall("ses_1", "API_KEY=abc npm test --token sekret", core.ToolResult{Output: "npm ERR! ERROR"})

	d := e.AfterTool(call)

	require.True(t, d.Fired)
	want := "npm ERR! ERROR" +
		"\n\n---\nLoom: if this matters, update your ticket and capture a scoped memory." +
		"\nExample: loom memory add --title \"...\" --command \"npm test --token [REDACTED]\" --body \"...\"" +
		"\nTip: include the failure symptom + the fix."
	assert.Equal(t, want, call.Result.Output)
	assert.NotContains(t, call.Result.Output, "sekret")
	assert.NotContains(t, call.Result.Output, "abc")

	select {
	case ev := <-ch:
		fired := ev.(events.NudgeFiredEvent)
		assert.Equal(t, "ses_1", fired.SessionID())
		assert.True(t, fired.Failed)
	case <-time.After(time.Second):
		t.Fatal("no nudge.fired event")
	}
}

func TestAfterTool_EmptySignatureExample(t *testing.T) {
	e := New(Config{Tool: true})
	call := shellCall("ses_1", "", core.ToolResult{Output: "", ExitCode: core.IntPtr(1)})

	require.True(t, e.AfterTool(call).Fired)
	assert.Contains(t, call.Result.Output, "--scope command:<signature>")
}

func TestAfterTool_Skips(t *testing.T) {
	children := &core.ChildSessions{}
	children.Add("ses_child")

	tests := []struct {
		name string
		cfg  Config
		call *core.ToolCall
	}{
		{"disabled", Config{Tool: false}, shellCall("s", "make", core.ToolResult{OK: core.BoolPtr(false)})},
		{"child session", Config{Tool: true}, shellCall("ses_child", "make", core.ToolResult{OK: core.BoolPtr(false)})},
		{"not failed, no pattern", Config{Tool: true}, shellCall("s", "make", core.ToolResult{Output: "done"})},
		{"non-string output", Config{Tool: true}, &core.ToolCall{
			SessionID: "s", Tool: "bash", Args: map[string]any{"command": "make"},
			Result: &core.ToolResult{OK: core.BoolPtr(false)},
		}},
		{"not shell", Config{Tool: true}, &core.ToolCall{
			SessionID: "s", Tool: "edit",
			Result: &core.ToolResult{OK: core.BoolPtr(false), Output: "x", HasOutput: true},
		}},
		{"no result", Config{Tool: true}, &core.ToolCall{SessionID: "s", Tool: "bash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.cfg, WithChildSessions(children))
			var before string
			if tt.call.Result != nil {
				before = tt.call.Result.Output
			}

			d := e.AfterTool(tt.call)

			assert.False(t, d.Fired)
			if tt.call.Result != nil {
				assert.Equal(t, before, tt.call.Result.Output)
			}
		})
	}
}

func TestAfterTool_Cooldown(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := New(Config{Tool: true, Cooldown: 45 * time.Second})
	e.now = func() time.Time { return clock }

	fire := func(session string) bool {
		return e.AfterTool(shellCall(session, "make", core.ToolResult{OK: core.BoolPtr(false)})).Fired
	}

	assert.True(t, fire("a"))
	assert.False(t, fire("a"), "same session inside the window")
	assert.True(t, fire("b"), "sessions have independent windows")
	assert.True(t, fire(""), "global window")
	assert.False(t, fire(""))

	clock = clock.Add(45 * time.Second)
	assert.True(t, fire("a"))
	assert.True(t, fire(""))
}

func TestAfterTool_MinimumCooldown(t *testing.T) {
	e := New(Config{Tool: true, Cooldown: 0})
	assert.Equal(t, MinCooldown, e.Config().Cooldown)
}

func TestAfterTool_ConcurrentFiresOnce(t *testing.T) {
	e := New(Config{Tool: true, Cooldown: time.Hour})

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fired int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if e.AfterTool(shellCall("ses_1", "make", core.ToolResult{OK: core.BoolPtr(false)})).Fired {
				mu.Lock()
				fired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, fired)
}
