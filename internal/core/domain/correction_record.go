package domain

import "time"

// CorrectionRecord is the persisted representation of one remediation attempt.
type CorrectionRecord struct {
	ID              string             `json:"id"`
	ErrorID         string             `json:"error_id"`
	Success         bool               `json:"success"`
	Action          string             `json:"action"`
	AppliedFixes    []AppliedFix       `json:"applied_fixes"`
	RemainingIssues []Issue            `json:"remaining_issues"`
	Verification    VerificationResult `json:"verification_result"`
	CreatedAt       time.Time          `json:"created_at"`
}

// AppliedFix is a successful handler run.
type AppliedFix struct {
	Action string         `json:"action"`
	Result map[string]any `json:"result"`
}

// Issue is a handler run that did not fix the failure.
type Issue struct {
	Action  string `json:"action,omitempty"`
	Message string `json:"message"`
}

// VerificationResult is the verdict over one correction attempt.
type VerificationResult struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Details []Issue `json:"details,omitempty"`
}
