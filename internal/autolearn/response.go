package autolearn

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

// ErrNotObject is returned when the reply is valid JSON but not an object.
var ErrNotObject = errors.New("proposals must be a JSON object")

// ResponseText extracts the plain text of a prompt reply: text parts joined
// by newlines, or the flat content when the reply has no parts.
func ResponseText(resp *core.PromptResponse) string {
	if resp == nil {
		return ""
	}
	if resp.Parts == nil {
		return strings.TrimSpace(resp.Content)
	}
	texts := make([]string, len(resp.Parts))
	for i, p := range resp.Parts {
		if p.Type == "text" {
			texts[i] = p.Text
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

// ParseProposals decodes text as exactly one JSON object. Numbers keep their
// literal form so re-encoding does not lose precision.
func ParseProposals(text string) (map[string]any, error) {
	if text == "" {
		return nil, core.ErrValidation(core.CodeInvalidJSON, "empty response")
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidJSON, "response is not JSON").WithCause(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, core.ErrValidation(core.CodeInvalidJSON, "trailing data after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, core.ErrValidation(core.CodeInvalidJSON, "response is not an object").WithCause(ErrNotObject)
	}
	return obj, nil
}

// encodeProposals serializes proposals compactly for the apply tool.
func encodeProposals(p map[string]any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
