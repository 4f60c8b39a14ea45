package events

// Event type constants for the observation pipeline.
const (
	TypeObservationRecorded = "observation.recorded"
	TypeAutolearnFinished   = "autolearn.finished"
	TypeNudgeFired          = "nudge.fired"
)

// ObservationRecordedEvent is emitted after a line reaches the observation log.
type ObservationRecordedEvent struct {
	BaseEvent
	ObservationID   string `json:"observation_id"`
	ObservationType string `json:"observation_type"`
	Tool            string `json:"tool,omitempty"`
	Summary         string `json:"summary,omitempty"`
}

// NewObservationRecordedEvent creates a new observation recorded event.
func NewObservationRecordedEvent(sessionID, id, obsType, tool, summary string) ObservationRecordedEvent {
	return ObservationRecordedEvent{
		BaseEvent:       NewBaseEvent(TypeObservationRecorded, sessionID),
		ObservationID:   id,
		ObservationType: obsType,
		Tool:            tool,
		Summary:         summary,
	}
}

// AutolearnFinishedEvent is emitted once per autolearn attempt that got past
// gating. Skipped attempts are not published.
type AutolearnFinishedEvent struct {
	BaseEvent
	State    string `json:"state"`
	Reason   string `json:"reason,omitempty"`
	Applied  bool   `json:"applied"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// NewAutolearnFinishedEvent creates a new autolearn finished event.
func NewAutolearnFinishedEvent(sessionID, state, reason string, applied bool, exitCode *int) AutolearnFinishedEvent {
	return AutolearnFinishedEvent{
		BaseEvent: NewBaseEvent(TypeAutolearnFinished, sessionID),
		State:     state,
		Reason:    reason,
		Applied:   applied,
		ExitCode:  exitCode,
	}
}

// NudgeFiredEvent is emitted when a reminder was appended to tool output.
type NudgeFiredEvent struct {
	BaseEvent
	Tool      string `json:"tool"`
	Signature string `json:"signature,omitempty"`
	Failed    bool   `json:"failed"`
}

// NewNudgeFiredEvent creates a new nudge fired event.
func NewNudgeFiredEvent(sessionID, tool, signature string, failed bool) NudgeFiredEvent {
	return NudgeFiredEvent{
		BaseEvent: NewBaseEvent(TypeNudgeFired, sessionID),
		Tool:      tool,
		Signature: signature,
		Failed:    failed,
	}
}
