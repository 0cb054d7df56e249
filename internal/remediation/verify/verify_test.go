package verify

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/remediator/internal/core/domain"
	"github.com/vietddude/remediator/internal/remediation/classifier"
	"github.com/vietddude/remediator/internal/remediation/executor"
	"github.com/vietddude/remediator/internal/remediation/strategy"
)

// =============================================================================
// Mock Runner
// =============================================================================

type mockRunner struct {
	calls   int
	outcome executor.Outcome
}

func (m *mockRunner) Execute(ctx context.Context, remedy strategy.Remedy) executor.Outcome {
	m.calls++
	out := m.outcome
	out.Action = remedy.Action()
	return out
}

func contextFor(kind domain.FailureKind) classifier.ErrorContext {
	return classifier.Classify(&domain.Failure{Kind: kind, Message: "boom"}, nil)
}

// =============================================================================
// Tests
// =============================================================================

func TestRun_NoStrategySkipsExecutor(t *testing.T) {
	runner := &mockRunner{}
	v := New(strategy.NewResolver(strategy.DefaultLimits()), runner)

	report := v.Run(context.Background(), contextFor(domain.FailureKindFileValidation), map[string]any{})

	if runner.calls != 0 {
		t.Errorf("executor must not run without a strategy, ran %d times", runner.calls)
	}
	if report.Attempted || report.Success {
		t.Error("expected unattempted, unsuccessful report")
	}
	if report.Verification.Success {
		t.Error("expected failed verification")
	}
	if report.Verification.Message != strategy.NoStrategyMessage {
		t.Errorf("unexpected message %q", report.Verification.Message)
	}
}

func TestRun_AppliedFix(t *testing.T) {
	runner := &mockRunner{outcome: executor.Outcome{Success: true, Result: map[string]any{"compressed_size": 1}}}
	v := New(strategy.NewResolver(strategy.DefaultLimits()), runner)

	report := v.Run(context.Background(), contextFor(domain.FailureKindFileValidation), map[string]any{
		"file_size": int64(50 * 1024 * 1024),
	})

	if runner.calls != 1 {
		t.Fatalf("expected exactly one execution, got %d", runner.calls)
	}
	if !report.Success || !report.Attempted {
		t.Fatal("expected successful attempt")
	}
	if len(report.AppliedFixes) != 1 || report.AppliedFixes[0].Action != "compress_file" {
		t.Errorf("unexpected applied fixes %#v", report.AppliedFixes)
	}
	if len(report.RemainingIssues) != 0 {
		t.Errorf("expected no remaining issues, got %#v", report.RemainingIssues)
	}
	if !report.Verification.Success || report.Verification.Message != PassedMessage {
		t.Errorf("unexpected verification %#v", report.Verification)
	}
}

func TestRun_RemainingIssue(t *testing.T) {
	runner := &mockRunner{outcome: executor.Outcome{Success: false, Message: "encoder unavailable"}}
	v := New(strategy.NewResolver(strategy.DefaultLimits()), runner)

	report := v.Run(context.Background(), contextFor(domain.FailureKindProcessing), map[string]any{
		"sample_rate": 22050,
	})

	if report.Success {
		t.Fatal("expected unsuccessful report")
	}
	if !report.Attempted {
		t.Error("expected attempt")
	}
	if len(report.RemainingIssues) != 1 || report.RemainingIssues[0].Message != "encoder unavailable" {
		t.Errorf("unexpected remaining issues %#v", report.RemainingIssues)
	}
	if report.Verification.Success || report.Verification.Message != UnresolvedMessage {
		t.Errorf("unexpected verification %#v", report.Verification)
	}
	if len(report.Verification.Details) != 1 {
		t.Errorf("expected verification details, got %#v", report.Verification.Details)
	}
}

func TestRun_WithRealExecutor(t *testing.T) {
	v := New(strategy.NewResolver(strategy.DefaultLimits()), executor.New(time.Second, nil))

	report := v.Run(context.Background(), contextFor(domain.FailureKindOptimization), map[string]any{
		"model_params": map[string]any{"invalid": "x"},
	})

	if !report.Success {
		t.Fatalf("expected success, got %#v", report)
	}
	if _, ok := report.AppliedFixes[0].Result["new_parameters"]; !ok {
		t.Errorf("expected new_parameters in result, got %v", report.AppliedFixes[0].Result)
	}
}
