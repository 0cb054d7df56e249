// Package classifier turns a raised failure and its context into a typed
// ErrorContext.
package classifier

import (
	"github.com/vietddude/remediator/internal/core/domain"
)

// UnknownFailureMessage is used when a nil failure reaches the classifier.
const UnknownFailureMessage = "unknown failure"

// ErrorContext is the classified view of a failure.
type ErrorContext struct {
	Kind           domain.FailureKind
	Category       domain.Category
	Severity       domain.Severity
	PossibleCauses []string
	Message        string
	Location       *string
	Code           *string
	StackTrace     *string
	Extra          map[string]any
}

// Classify builds the ErrorContext for f. The category is whatever the caller
// tagged the failure with; the failure's runtime type is never inspected.
// Location falls back to the context's file_path.
func Classify(f *domain.Failure, ctx map[string]any) ErrorContext {
	ec := ErrorContext{
		Category: domain.CategoryUnknown,
		Message:  UnknownFailureMessage,
		Extra:    copyContext(ctx),
	}
	if f != nil {
		ec.Kind = f.Kind
		ec.Category = domain.ParseCategory(string(f.Category))
		if f.Message != "" {
			ec.Message = f.Message
		}
		ec.Location = optional(f.Location)
		ec.Code = optional(f.Code)
		ec.StackTrace = optional(f.StackTrace())
	}
	if ec.Location == nil {
		if path, ok := ctx["file_path"].(string); ok {
			ec.Location = optional(path)
		}
	}
	ec.Severity = ec.Category.Severity()
	ec.PossibleCauses = ec.Category.PossibleCauses()
	return ec
}

// Record converts the context into a pending ErrorRecord.
func (ec ErrorContext) Record() *domain.ErrorRecord {
	return &domain.ErrorRecord{
		Kind:       ec.Kind,
		Location:   ec.Location,
		Category:   ec.Category,
		Message:    ec.Message,
		Status:     domain.ErrorStatusPending,
		Code:       ec.Code,
		StackTrace: ec.StackTrace,
		Extra:      copyContext(ec.Extra),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func copyContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}
