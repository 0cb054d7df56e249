package domain

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// FailureKind is the caller-supplied tag that selects a remediation strategy.
type FailureKind string

const (
	FailureKindFileValidation FailureKind = "file_validation"
	FailureKindProcessing     FailureKind = "processing"
	FailureKindOptimization   FailureKind = "optimization"
	FailureKindSystem         FailureKind = "system"
)

// FailureKinds lists every kind the pipeline accepts.
var FailureKinds = []FailureKind{
	FailureKindFileValidation,
	FailureKindProcessing,
	FailureKindOptimization,
	FailureKindSystem,
}

// DefaultStatus is the HTTP status an uncorrected failure of this kind maps
// to when the raiser did not set one. Upload problems are client errors;
// everything else is a server error.
func (k FailureKind) DefaultStatus() int {
	if k == FailureKindFileValidation {
		return 400
	}
	return 500
}

// ParseFailureKind accepts both "file_validation" and "FileValidation" spellings.
func ParseFailureKind(s string) (FailureKind, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for _, k := range FailureKinds {
		if strings.ReplaceAll(string(k), "_", "") == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown failure kind %q", s)
}

// Failure is a failure raised by a collaborator (upload, processing, optimization,
// system health) and handed to the remediation pipeline.
type Failure struct {
	Kind       FailureKind
	Category   Category
	Message    string
	Code       string
	Location   string
	StatusCode int
	Context    map[string]any

	cause error
}

// NewFailure creates a failure and captures the caller's stack.
func NewFailure(kind FailureKind, message string, context map[string]any) *Failure {
	return &Failure{
		Kind:     kind,
		Category: CategoryUnknown,
		Message:  message,
		Context:  context,
		cause:    errors.NewWithDepth(1, message),
	}
}

// WrapFailure turns an existing error into a failure of the given kind.
func WrapFailure(kind FailureKind, err error, context map[string]any) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{
		Kind:     kind,
		Category: CategoryUnknown,
		Message:  err.Error(),
		Context:  context,
		cause:    errors.WithStackDepth(err, 1),
	}
}

// WithCategory sets the diagnostic category.
func (f *Failure) WithCategory(c Category) *Failure {
	f.Category = c
	return f
}

// WithCode sets an application error code.
func (f *Failure) WithCode(code string) *Failure {
	f.Code = code
	return f
}

// WithLocation sets the source location (usually a file path).
func (f *Failure) WithLocation(location string) *Failure {
	f.Location = location
	return f
}

// WithStatus sets the HTTP status the request layer should use when the
// failure cannot be corrected.
func (f *Failure) WithStatus(code int) *Failure {
	f.StatusCode = code
	return f
}

// Status returns the explicit status, or the kind's default when none was set.
func (f *Failure) Status() int {
	if f.StatusCode != 0 {
		return f.StatusCode
	}
	return f.Kind.DefaultStatus()
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.cause
}

// StackTrace returns the stack captured when the failure was raised, or ""
// for failures built without a cause.
func (f *Failure) StackTrace() string {
	if f.cause == nil {
		return ""
	}
	return fmt.Sprintf("%+v", f.cause)
}
