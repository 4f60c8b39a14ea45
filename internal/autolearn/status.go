package autolearn

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/fsutil"
)

// Status reasons and errors written to the status document.
const (
	ReasonNoop       = "noop"
	ErrorInvalidJSON = "invalid_json"
)

// Status is the document overwritten after every attempt that reached the
// reasoning step.
type Status struct {
	OK       bool      `json:"ok"`
	TS       time.Time `json:"ts"`
	Applied  *bool     `json:"applied,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Error    string    `json:"error,omitempty"`
	RawLen   *int      `json:"raw_len,omitempty"`
	ExitCode *int      `json:"exit_code,omitempty"`
	Stdout   *string   `json:"stdout,omitempty"`
	Stderr   *string   `json:"stderr,omitempty"`
}

// WriteStatus replaces the status document atomically. The file is indented
// JSON followed by a newline.
func WriteStatus(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	data = append(data, '\n')
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing status: %w", err)
	}
	return nil
}

// ReadStatus loads the status document.
func ReadStatus(path string) (*Status, error) {
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing status: %w", err)
	}
	return &st, nil
}
