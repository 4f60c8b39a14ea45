package autolearn

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/fsutil"
	"github.com/hugo-lorenzo-mato/compound/internal/scrub"
)

const (
	budgetReserve     = 200
	summaryMaxChars   = 500
	noDiffPlaceholder = "(none)"
)

// templateMaxBytes caps how much of the prompt template is read.
const templateMaxBytes = 256 << 10

// LoadTemplate reads the prompt template. A missing or blank template yields
// an empty string.
func LoadTemplate(path string) string {
	data, err := fsutil.ReadFileLimit(path, templateMaxBytes)
	if err != nil {
		return ""
	}
	if strings.TrimSpace(string(data)) == "" {
		return ""
	}
	return string(data)
}

// RenderContext formats the session, change summary and recent observations
// the way the reasoning step expects them.
func RenderContext(sessionID string, changes core.ChangeSummary, recent []core.Observation) string {
	if sessionID == "" {
		sessionID = "unknown"
	}
	diff := changes.DiffStat
	if diff == "" {
		diff = noDiffPlaceholder
	}

	var b strings.Builder
	b.WriteString("## AUTOLEARN CONTEXT\n")
	fmt.Fprintf(&b, "session_id: %s\n", sessionID)
	fmt.Fprintf(&b, "reason: %s\n\n", ReasonSessionIdle)
	b.WriteString("### Git summary\n")
	fmt.Fprintf(&b, "changed_files: %d\n", len(changes.ChangedFiles))
	fmt.Fprintf(&b, "diffstat:\n%s\n\n", diff)
	b.WriteString("### Recent observations (most recent last)\n")
	for i, o := range recent {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(observationLine(o))
	}
	return strings.TrimSpace(normalizeNewlines(b.String()))
}

func observationLine(o core.Observation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- %s %s", o.TS.UTC().Format(time.RFC3339Nano), o.Type)
	if o.Tool != "" {
		b.WriteString(" tool=" + o.Tool)
	}
	if o.Command != "" {
		b.WriteString(" command=" + o.Command)
	}
	if o.Summary != "" {
		b.WriteString(" summary=" + scrub.Truncate(o.Summary, summaryMaxChars))
	}
	return b.String()
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// ComposePrompt joins the template and context and caps the result at
// budget characters.
func ComposePrompt(template, context string, budget int) string {
	return truncateBudget(strings.TrimSpace(template)+"\n\n"+context+"\n", budget)
}

// truncateBudget keeps budget-200 characters and appends a marker carrying
// the original length. Within budget the input is returned unchanged.
func truncateBudget(s string, budget int) string {
	total := utf8.RuneCountInString(s)
	if total <= budget {
		return s
	}
	keep := budget - budgetReserve
	if keep < 0 {
		keep = 0
	}
	return cutRunes(s, keep) + fmt.Sprintf("\n\n(...truncated, len=%d)\n", total)
}

func cutRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
