package classifier

import (
	"reflect"
	"testing"

	"github.com/vietddude/remediator/internal/core/domain"
)

func TestClassify_TaggedFailure(t *testing.T) {
	f := domain.NewFailure(domain.FailureKindFileValidation, "File size exceeds limit", nil).
		WithCategory(domain.CategoryResource).
		WithCode("E_SIZE")
	ctx := map[string]any{"file_size": 11_000_000, "file_path": "uploads/test.wav"}

	ec := Classify(f, ctx)

	if ec.Kind != domain.FailureKindFileValidation {
		t.Errorf("expected kind file_validation, got %s", ec.Kind)
	}
	if ec.Category != domain.CategoryResource {
		t.Errorf("expected category RESOURCE, got %s", ec.Category)
	}
	if ec.Severity != domain.SeverityLow {
		t.Errorf("expected severity low, got %s", ec.Severity)
	}
	if ec.Location == nil || *ec.Location != "uploads/test.wav" {
		t.Errorf("expected location from file_path, got %v", ec.Location)
	}
	if ec.Code == nil || *ec.Code != "E_SIZE" {
		t.Errorf("expected code E_SIZE, got %v", ec.Code)
	}
	if ec.StackTrace == nil {
		t.Error("expected stack trace from raised failure")
	}
	if ec.Extra["file_size"] != 11_000_000 {
		t.Errorf("expected extra to carry context, got %v", ec.Extra)
	}
	if len(ec.PossibleCauses) == 0 {
		t.Error("expected possible causes")
	}
}

func TestClassify_ExplicitLocationWins(t *testing.T) {
	f := domain.NewFailure(domain.FailureKindProcessing, "bad", nil).WithLocation("worker.go:10")
	ec := Classify(f, map[string]any{"file_path": "ignored.wav"})
	if ec.Location == nil || *ec.Location != "worker.go:10" {
		t.Errorf("expected explicit location, got %v", ec.Location)
	}
}

func TestClassify_UntaggedCategoryIsUnknown(t *testing.T) {
	f := &domain.Failure{Kind: domain.FailureKindSystem, Message: "out of memory", Category: "OOM"}
	ec := Classify(f, nil)
	if ec.Category != domain.CategoryUnknown {
		t.Errorf("expected UNKNOWN, got %s", ec.Category)
	}
	if ec.StackTrace != nil {
		t.Error("expected no stack trace for failure without cause")
	}
	if ec.Extra == nil {
		t.Error("expected non-nil extra map")
	}
}

func TestClassify_NilFailure(t *testing.T) {
	ec := Classify(nil, nil)
	if ec.Message != UnknownFailureMessage {
		t.Errorf("expected %q, got %q", UnknownFailureMessage, ec.Message)
	}
	if ec.Category != domain.CategoryUnknown {
		t.Errorf("expected UNKNOWN, got %s", ec.Category)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	f := &domain.Failure{
		Kind:     domain.FailureKindProcessing,
		Category: domain.CategoryRuntime,
		Message:  "Audio quality too low",
	}
	ctx := map[string]any{"audio_quality": 0.4}

	if a, b := Classify(f, ctx), Classify(f, ctx); !reflect.DeepEqual(a, b) {
		t.Errorf("classification not deterministic: %#v vs %#v", a, b)
	}
}

func TestClassify_ExtraIsCopied(t *testing.T) {
	ctx := map[string]any{"sample_rate": 22050}
	ec := Classify(&domain.Failure{Kind: domain.FailureKindProcessing}, ctx)
	ctx["sample_rate"] = 44100
	if ec.Extra["sample_rate"] != 22050 {
		t.Error("extra must not alias the caller's context")
	}
}

func TestErrorContext_Record(t *testing.T) {
	f := &domain.Failure{Kind: domain.FailureKindOptimization, Category: domain.CategoryLogic, Message: "Invalid model parameters"}
	rec := Classify(f, map[string]any{"model_params": "x"}).Record()
	if rec.Status != domain.ErrorStatusPending {
		t.Errorf("expected pending status, got %s", rec.Status)
	}
	if rec.Category != domain.CategoryLogic || rec.Message != "Invalid model parameters" {
		t.Errorf("unexpected record %#v", rec)
	}
}
