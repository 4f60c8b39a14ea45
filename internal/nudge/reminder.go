package nudge

import (
	"strings"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

// TurnReminder is prepended to the user's latest message.
const TurnReminder = "<reminder>\n" +
	"Loom protocol:\n" +
	"- Non-trivial work: create/update a Loom ticket before implementing.\n" +
	"- Recall memory when relevant: loom memory recall \"<query>\" --context --format prompt.\n" +
	"- When you learn something reusable, save a scoped note (prefer --command or file: scopes).\n" +
	"- When a note references another concept, add a wikilink like [[note-id]].\n" +
	"</reminder>"

const reminderSeparator = "\n\n---\n\n"

// InjectReminder prepends TurnReminder to the first text part of the last
// user message, in place. It reports whether the transcript changed.
func (e *Engine) InjectReminder(messages []core.ChatMessage) bool {
	if !e.cfg.Inject {
		return false
	}
	last := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			last = i
			break
		}
	}
	if last == -1 {
		return false
	}

	msg := &messages[last]
	if e.children.Contains(msg.SessionID) {
		return false
	}
	for i := range msg.Parts {
		part := &msg.Parts[i]
		if part.Type != "text" {
			continue
		}
		if strings.HasPrefix(part.Text, TurnReminder) {
			return false
		}
		part.Text = TurnReminder + reminderSeparator + part.Text
		return true
	}
	return false
}
