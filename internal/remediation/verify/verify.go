// Package verify drives one resolve/execute cycle and produces a verdict.
package verify

import (
	"context"

	"github.com/vietddude/remediator/internal/core/domain"
	"github.com/vietddude/remediator/internal/remediation/classifier"
	"github.com/vietddude/remediator/internal/remediation/executor"
	"github.com/vietddude/remediator/internal/remediation/strategy"
)

const (
	PassedMessage     = "verification passed"
	UnresolvedMessage = "unresolved issues remain"
)

// Resolver chooses a remedy for a failure kind and context.
type Resolver interface {
	Resolve(kind domain.FailureKind, ctx map[string]any) strategy.Resolution
}

// Runner executes a remedy.
type Runner interface {
	Execute(ctx context.Context, remedy strategy.Remedy) executor.Outcome
}

// Report is the aggregated result of one correction cycle.
//
// Success is "at least one fix applied". With a single attempt per failure
// applied fixes and remaining issues never coexist, so Success and
// Verification.Success agree; callers that need the strict verdict read
// Verification.
type Report struct {
	Resolution      strategy.Resolution
	Attempted       bool
	Outcome         executor.Outcome
	AppliedFixes    []domain.AppliedFix
	RemainingIssues []domain.Issue
	Success         bool
	Verification    domain.VerificationResult
}

// Verifier aggregates the resolver and the executor.
type Verifier struct {
	resolver Resolver
	runner   Runner
}

// New creates a verifier.
func New(resolver Resolver, runner Runner) *Verifier {
	return &Verifier{resolver: resolver, runner: runner}
}

// Run resolves a remedy for ec and, when one exists, executes it exactly once.
func (v *Verifier) Run(ctx context.Context, ec classifier.ErrorContext, failureCtx map[string]any) Report {
	report := Report{
		Resolution:      v.resolver.Resolve(ec.Kind, failureCtx),
		AppliedFixes:    []domain.AppliedFix{},
		RemainingIssues: []domain.Issue{},
	}
	if !report.Resolution.Success || report.Resolution.Remedy == nil {
		report.Verification = domain.VerificationResult{
			Success: false,
			Message: report.Resolution.Message,
		}
		return report
	}

	report.Attempted = true
	report.Outcome = v.runner.Execute(ctx, report.Resolution.Remedy)
	action := string(report.Resolution.Action())
	if report.Outcome.Success {
		report.AppliedFixes = append(report.AppliedFixes, domain.AppliedFix{
			Action: action,
			Result: report.Outcome.Result,
		})
	} else {
		report.RemainingIssues = append(report.RemainingIssues, domain.Issue{
			Action:  action,
			Message: report.Outcome.Message,
		})
	}

	report.Success = len(report.AppliedFixes) > 0
	report.Verification = verdict(report.RemainingIssues)
	return report
}

func verdict(remaining []domain.Issue) domain.VerificationResult {
	if len(remaining) == 0 {
		return domain.VerificationResult{Success: true, Message: PassedMessage}
	}
	return domain.VerificationResult{
		Success: false,
		Message: UnresolvedMessage,
		Details: append([]domain.Issue(nil), remaining...),
	}
}
