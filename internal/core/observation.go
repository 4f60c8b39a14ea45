package core

import (
	"bytes"
	"encoding/json"
	"time"
)

// Observation is one line of the append-only observation log.
// SessionID is always serialized; it is null when unknown.
type Observation struct {
	ID         string         `json:"id"`
	TS         time.Time      `json:"ts"`
	Type       string         `json:"type"`
	SessionID  *string        `json:"sessionID"`
	Tool       string         `json:"tool,omitempty"`
	Args       any            `json:"args,omitempty"`
	OK         *bool          `json:"ok,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Command    string         `json:"command,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Session returns the session identifier or "" when absent.
func (o Observation) Session() string {
	if o.SessionID == nil {
		return ""
	}
	return *o.SessionID
}

// MarshalLine encodes the observation as a single JSON line without the
// trailing newline. HTML escaping is disabled so the log stays greppable.
func (o Observation) MarshalLine() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(o); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}

// ChangeSummary describes the working tree at the time of an autolearn attempt.
type ChangeSummary struct {
	ChangedFiles []string
	DiffStat     string
}

// Empty reports whether there is nothing to learn from: no changed,
// staged or untracked file and no diff text.
func (c ChangeSummary) Empty() bool {
	return len(c.ChangedFiles) == 0 && trimmedEmpty(c.DiffStat)
}

func trimmedEmpty(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return false
		}
	}
	return true
}
