package domain

import "time"

// ErrorRecord is the persisted representation of one detected failure.
type ErrorRecord struct {
	ID            string         `json:"id"`
	Kind          FailureKind    `json:"kind"`
	Location      *string        `json:"location,omitempty"`
	Category      Category       `json:"category"`
	Message       string         `json:"message"`
	Status        ErrorStatus    `json:"status"`
	StatusMessage string         `json:"status_message,omitempty"`
	Code          *string        `json:"code,omitempty"`
	StackTrace    *string        `json:"stack_trace,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

type ErrorStatus string

const (
	ErrorStatusPending   ErrorStatus = "pending"
	ErrorStatusCompleted ErrorStatus = "completed"
	ErrorStatusFailed    ErrorStatus = "failed"
)

// Final reports whether the status is a correction outcome.
func (s ErrorStatus) Final() bool {
	return s == ErrorStatusCompleted || s == ErrorStatusFailed
}
