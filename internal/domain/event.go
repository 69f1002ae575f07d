package domain

// EventType classifies wizard events.
type EventType string

const (
	EventSessionStarted  EventType = "SESSION_STARTED"
	EventStepAdvanced    EventType = "STEP_ADVANCED"
	EventStepBlocked     EventType = "STEP_BLOCKED"
	EventStepBack        EventType = "STEP_BACK"
	EventMetadataSkipped EventType = "METADATA_SKIPPED"
	EventDeployStarted   EventType = "DEPLOY_STARTED"
	EventDeploySucceeded EventType = "DEPLOY_SUCCEEDED"
	EventDeployFailed    EventType = "DEPLOY_FAILED"
	EventWizardReset     EventType = "WIZARD_RESET"
)

// WizardEvent is one entry of the append-only wizard event log.
// Corresponds to wizard_events table in ClickHouse.
type WizardEvent struct {
	EventID   string    `json:"event_id"`         // uuid
	SessionID string    `json:"session_id"`       // wizard session
	Type      EventType `json:"event_type"`       // event classification
	Step      Step      `json:"step"`             // step the wizard was on when the event happened
	Detail    string    `json:"detail,omitempty"` // free-form detail (blocked fields, failure message)
	Timestamp int64     `json:"timestamp_ms"`     // event time (ms)
}
