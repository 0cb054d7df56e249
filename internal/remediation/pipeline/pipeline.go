// Package pipeline is the single integration point between request handling
// and remediation: it classifies a failure, attempts one correction, records
// both in the audit store and shapes the result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/remediator/internal/core/domain"
	"github.com/vietddude/remediator/internal/remediation/classifier"
	"github.com/vietddude/remediator/internal/remediation/metrics"
	"github.com/vietddude/remediator/internal/remediation/verify"
)

const (
	CorrectedMessage     = "Error corrected successfully"
	InternalErrorMessage = "internal error while handling failure"
)

// Outcome tells the transport layer which response style applies.
type Outcome string

const (
	OutcomeCorrected    Outcome = "corrected"
	OutcomeUnresolved   Outcome = "unresolved"
	OutcomeNotAttempted Outcome = "not_attempted"
	OutcomeError        Outcome = "error"
)

// CorrectionResult is the correction payload returned to the caller.
type CorrectionResult struct {
	Success         bool                      `json:"success"`
	Action          string                    `json:"action,omitempty"`
	Result          map[string]any            `json:"result,omitempty"`
	Message         string                    `json:"message,omitempty"`
	AppliedFixes    []domain.AppliedFix       `json:"applied_fixes"`
	RemainingIssues []domain.Issue            `json:"remaining_issues"`
	Verification    domain.VerificationResult `json:"verification_result"`
}

// Result is what Handle always returns.
type Result struct {
	Message             string            `json:"message"`
	CorrectionAttempted bool              `json:"correction_attempted"`
	CorrectionResult    *CorrectionResult `json:"correction_result,omitempty"`
	ErrorID             string            `json:"error_id,omitempty"`
	CorrectionID        string            `json:"correction_id,omitempty"`

	Outcome    Outcome `json:"-"`
	StatusCode int     `json:"-"`
}

// Corrected reports whether the failure was fixed.
func (r Result) Corrected() bool {
	return r.Outcome == OutcomeCorrected
}

// Runner performs one resolve/execute/verify cycle.
type Runner interface {
	Run(ctx context.Context, ec classifier.ErrorContext, failureCtx map[string]any) verify.Report
}

// AuditStore persists error and correction records. Writes report success
// and never return errors.
type AuditStore interface {
	RecordError(ctx context.Context, rec *domain.ErrorRecord) bool
	RecordCorrection(ctx context.Context, rec *domain.CorrectionRecord) bool
	UpdateCorrectionStatus(ctx context.Context, errorID string, status domain.ErrorStatus, message string) bool
}

// Pipeline is built once by the composition root and shared by all requests.
type Pipeline struct {
	runner Runner
	audit  AuditStore
	log    *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New creates a pipeline.
func New(runner Runner, audit AuditStore, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		runner: runner,
		audit:  audit,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Handle runs the failure through classification, one correction attempt,
// verification and auditing. It never panics and always returns a Result.
// Cancellation of ctx does not abort an attempt once started; the handler
// timeout is the only bound.
func (p *Pipeline) Handle(ctx context.Context, f *domain.Failure) (res Result) {
	ctx = context.WithoutCancel(ctx)

	var (
		errorID   string
		finalized bool
	)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		p.log.Error("Pipeline panicked", "panic", r, "error_id", errorID)
		if errorID != "" && !finalized {
			p.audit.UpdateCorrectionStatus(ctx, errorID, domain.ErrorStatusFailed, fmt.Sprintf("pipeline error: %v", r))
		}
		res = Result{
			Message:    failureMessage(f),
			ErrorID:    errorID,
			Outcome:    OutcomeError,
			StatusCode: statusOf(f),
		}
	}()

	var failureCtx map[string]any
	if f != nil {
		failureCtx = f.Context
	}

	ec := classifier.Classify(f, failureCtx)
	metrics.FailuresTotal.WithLabelValues(string(ec.Kind), string(ec.Category)).Inc()

	rec := ec.Record()
	rec.ID = p.newID()
	rec.CreatedAt = p.now()
	if p.audit.RecordError(ctx, rec) {
		errorID = rec.ID
	}

	log := p.log.With("error_id", rec.ID, "kind", ec.Kind, "category", ec.Category)
	log.Debug("Failure classified", "severity", ec.Severity, "message", ec.Message)

	report := p.runner.Run(ctx, ec, failureCtx)

	res = Result{
		Message:    ec.Message,
		ErrorID:    errorID,
		StatusCode: statusOf(f),
	}

	if !report.Attempted {
		metrics.StrategyMisses.WithLabelValues(string(ec.Kind)).Inc()
		log.Info("No correction strategy", "reason", report.Resolution.Message)
		if errorID != "" {
			p.audit.UpdateCorrectionStatus(ctx, errorID, domain.ErrorStatusFailed, report.Resolution.Message)
		}
		finalized = true
		res.Outcome = OutcomeNotAttempted
		res.CorrectionResult = &CorrectionResult{
			Success:         false,
			Message:         report.Resolution.Message,
			AppliedFixes:    report.AppliedFixes,
			RemainingIssues: report.RemainingIssues,
			Verification:    report.Verification,
		}
		return res
	}

	action := string(report.Resolution.Action())
	res.CorrectionAttempted = true
	res.CorrectionResult = &CorrectionResult{
		Success:         report.Success,
		Action:          action,
		Result:          report.Outcome.Result,
		Message:         report.Outcome.Message,
		AppliedFixes:    report.AppliedFixes,
		RemainingIssues: report.RemainingIssues,
		Verification:    report.Verification,
	}

	// A correction can only reference a recorded error.
	if errorID != "" {
		correction := &domain.CorrectionRecord{
			ID:              p.newID(),
			ErrorID:         errorID,
			Success:         report.Success,
			Action:          action,
			AppliedFixes:    report.AppliedFixes,
			RemainingIssues: report.RemainingIssues,
			Verification:    report.Verification,
			CreatedAt:       p.now(),
		}
		if p.audit.RecordCorrection(ctx, correction) {
			res.CorrectionID = correction.ID
		}

		status := domain.ErrorStatusFailed
		if report.Verification.Success {
			status = domain.ErrorStatusCompleted
		}
		p.audit.UpdateCorrectionStatus(ctx, errorID, status, report.Verification.Message)
	}
	finalized = true

	outcome := "failure"
	if report.Verification.Success {
		outcome = "success"
		res.Outcome = OutcomeCorrected
		res.Message = CorrectedMessage
		log.Info("Failure corrected", "action", action)
	} else {
		res.Outcome = OutcomeUnresolved
		log.Warn("Correction did not resolve failure", "action", action, "reason", report.Outcome.Message)
	}
	metrics.CorrectionsTotal.WithLabelValues(action, outcome).Inc()

	return res
}

func failureMessage(f *domain.Failure) string {
	if f == nil || f.Message == "" {
		return InternalErrorMessage
	}
	return f.Message
}

func statusOf(f *domain.Failure) int {
	if f == nil {
		return 0
	}
	return f.Status()
}
