package cli

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/remediator/internal/core/domain"
	"github.com/vietddude/remediator/internal/remediation/strategy"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"target_size=10485760", "target_quality=0.8", "target_format=.wav", "dry=true"})
	if err != nil {
		t.Fatalf("parseParams failed: %v", err)
	}
	if params["target_size"] != int64(10485760) {
		t.Errorf("expected int64, got %T", params["target_size"])
	}
	if params["target_quality"] != 0.8 {
		t.Errorf("expected 0.8, got %v", params["target_quality"])
	}
	if params["target_format"] != ".wav" {
		t.Errorf("expected .wav, got %v", params["target_format"])
	}
	if params["dry"] != true {
		t.Errorf("expected true, got %v", params["dry"])
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseParams([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestWriteHistory(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	var buf bytes.Buffer
	writeErrorHistory(&buf, []*domain.ErrorRecord{{
		ID:        "e1",
		Kind:      domain.FailureKindFileValidation,
		Category:  domain.CategoryResource,
		Status:    domain.ErrorStatusCompleted,
		Message:   "File size exceeds limit",
		CreatedAt: at,
	}})
	out := buf.String()
	for _, want := range []string{"ID", "e1", "file_validation", "RESOURCE", "completed", "2026-01-02T03:04:05Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("error history missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	writeCorrectionHistory(&buf, []*domain.CorrectionRecord{{
		ID:           "c1",
		ErrorID:      "e1",
		Action:       "compress_file",
		Success:      true,
		Verification: domain.VerificationResult{Success: true, Message: "verification passed"},
		CreatedAt:    at,
	}})
	out = buf.String()
	for _, want := range []string{"c1", "e1", "compress_file", "true", "verification passed"} {
		if !strings.Contains(out, want) {
			t.Errorf("correction history missing %q:\n%s", want, out)
		}
	}
}

func TestParseParams_DecodesTuning(t *testing.T) {
	params, err := parseParams([]string{"learning_rate=0.005", "batch_size=64"})
	if err != nil {
		t.Fatalf("parseParams failed: %v", err)
	}
	remedy, err := strategy.DecodeRemedy("adjust_parameters", params)
	if err != nil {
		t.Fatalf("DecodeRemedy failed: %v", err)
	}
	want := strategy.AdjustParameters{LearningRate: 0.005, BatchSize: 64}
	if remedy != want {
		t.Errorf("expected %#v, got %#v", want, remedy)
	}
}
