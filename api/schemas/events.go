// api/schemas/events.go
package schemas

import "time"

// -- Event Schemas --

// EventType names the cross-boundary notifications the engine emits. The host
// UI subscribes to these; the engine never depends on presentation code.
type EventType string

const (
	EventTourStarted       EventType = "tour-started"
	EventTourStepStarted   EventType = "tour-step-started"
	EventTourCompleted     EventType = "tour-completed"
	EventTourError         EventType = "tour-error"
	EventTourErrorHandled  EventType = "tour-error-handled"
	EventTourErrorRecovery EventType = "tour-error-recovery"
)

// ErrorKind tags the closed runtime error taxonomy.
type ErrorKind string

const (
	ErrKindElementNotFound ErrorKind = "element_not_found"
	ErrKindNavigation      ErrorKind = "navigation"
	ErrKindPermission      ErrorKind = "permission"
	ErrKindTimeout         ErrorKind = "timeout"
	ErrKindGeneric         ErrorKind = "generic"
)

// ErrorReport is one handled runtime failure, recovered or not. Reports are
// append-only until explicitly cleared.
type ErrorReport struct {
	Kind        ErrorKind `json:"kind"`
	TourID      string    `json:"tourId"`
	StepIndex   *int      `json:"stepIndex,omitempty"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
	Recovered   bool      `json:"recovered"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrorStats is computed over the accumulated report list.
type ErrorStats struct {
	TotalErrors       int               `json:"totalErrors"`
	RecoverableErrors int               `json:"recoverableErrors"`
	RecoveredErrors   int               `json:"recoveredErrors"`
	ErrorsByType      map[ErrorKind]int `json:"errorsByType"`
}

// TourEventPayload is the generic payload for tour lifecycle events.
type TourEventPayload struct {
	TourID    string    `json:"tourId"`
	StepIndex *int      `json:"stepIndex,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEventPayload accompanies the tour-error family of events.
type ErrorEventPayload struct {
	Report ErrorReport `json:"report"`
}
