package nudge

import (
	"regexp"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

var (
	failedTitle   = regexp.MustCompile(`(?i)\b(fail|failed|error)\b`)
	crashOutput   = regexp.MustCompile(`(?i)\b(traceback|panic:|segmentation fault)`)
	shoutedOutput = regexp.MustCompile(`\b(FAILED|ERROR)\b`)
)

// LooksFailed reports whether a tool result carries a failure signal: an
// explicit false success flag, a non-zero exit code, a failure word in the
// title, or crash markers in the output.
func LooksFailed(res *core.ToolResult) bool {
	if res == nil {
		return false
	}
	if res.OK != nil && !*res.OK {
		return true
	}
	if res.ExitCode != nil && *res.ExitCode != 0 {
		return true
	}
	if failedTitle.MatchString(res.Title) {
		return true
	}
	if !res.HasOutput {
		return false
	}
	return crashOutput.MatchString(res.Output) || shoutedOutput.MatchString(res.Output)
}
