package testutil

import (
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

// NewTestObservation creates an Observation with sensible defaults for tests.
// Use functional options to override specific fields.
func NewTestObservation(opts ...func(*core.Observation)) core.Observation {
	o := core.Observation{
		ID:        "obs-test",
		TS:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Type:      "tool.execute.after",
		SessionID: core.StringPtr("ses_test"),
		Tool:      "read",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
