package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/remediator/internal/remediation/strategy"
)

func TestExecute_AllActions(t *testing.T) {
	e := New(time.Second, nil)
	ctx := context.Background()

	tests := []struct {
		remedy  strategy.Remedy
		wantKey string
	}{
		{strategy.CompressFile{TargetSize: 10_000_000}, "compressed_size"},
		{strategy.ConvertFormat{TargetFormat: ".wav"}, "new_format"},
		{strategy.EnhanceAudio{TargetQuality: 0.8}, "enhanced_quality"},
		{strategy.ResampleAudio{TargetRate: 44100}, "new_sample_rate"},
		{strategy.DefaultTuning(), "new_parameters"},
		{strategy.CleanupResources{TargetMemory: strategy.CleanupTargetMemory}, "memory_after_cleanup"},
	}

	for _, tt := range tests {
		out := e.Execute(ctx, tt.remedy)
		if !out.Success {
			t.Errorf("%s: expected success, got %q", tt.remedy.Action(), out.Message)
			continue
		}
		if out.Action != tt.remedy.Action() {
			t.Errorf("expected action %s, got %s", tt.remedy.Action(), out.Action)
		}
		if _, ok := out.Result[tt.wantKey]; !ok {
			t.Errorf("%s: expected result key %s, got %v", tt.remedy.Action(), tt.wantKey, out.Result)
		}
	}
}

func TestExecute_CompressPayload(t *testing.T) {
	out := New(0, nil).Execute(context.Background(), strategy.CompressFile{TargetSize: 42})
	if out.Result["compressed_size"] != int64(42) {
		t.Errorf("expected compressed_size 42, got %v", out.Result["compressed_size"])
	}
	if out.Result["compression_ratio"] != 0.5 {
		t.Errorf("expected compression_ratio 0.5, got %v", out.Result["compression_ratio"])
	}
}

func TestExecute_HandlerErrorIsContained(t *testing.T) {
	out := New(time.Second, nil).Execute(context.Background(), strategy.CompressFile{TargetSize: -1})
	if out.Success {
		t.Fatal("expected failure for negative target size")
	}
	if out.Action != strategy.ActionCompressFile {
		t.Errorf("expected action compress_file, got %s", out.Action)
	}
	if out.Message == "" {
		t.Error("expected failure message")
	}
}

func TestExecuteNamed_UnknownAction(t *testing.T) {
	out := New(time.Second, nil).ExecuteNamed(context.Background(), "reboot_server", nil)
	if out.Success {
		t.Fatal("expected failure for unknown action")
	}
	if out.Message != "no handler for action reboot_server" {
		t.Errorf("unexpected message %q", out.Message)
	}
}

func TestExecuteNamed_Decodes(t *testing.T) {
	out := New(time.Second, nil).ExecuteNamed(context.Background(), "resample_audio", map[string]any{
		"target_rate": float64(44100),
	})
	if !out.Success {
		t.Fatalf("expected success, got %q", out.Message)
	}
	if out.Result["new_sample_rate"] != 44100 {
		t.Errorf("expected new_sample_rate 44100, got %v", out.Result["new_sample_rate"])
	}
}

func TestExecute_NilRemedy(t *testing.T) {
	out := New(time.Second, nil).Execute(context.Background(), nil)
	if out.Success {
		t.Fatal("expected failure for nil remedy")
	}
	if !strings.HasPrefix(out.Message, "no handler for action") {
		t.Errorf("unexpected message %q", out.Message)
	}
}

func TestRun_PanicIsContained(t *testing.T) {
	e := New(time.Second, nil)
	out := e.run(context.Background(), "boom", func(ctx context.Context) (map[string]any, error) {
		panic("handler exploded")
	})
	if out.Success {
		t.Fatal("expected failure after panic")
	}
	if !strings.Contains(out.Message, "handler exploded") {
		t.Errorf("expected panic value in message, got %q", out.Message)
	}
}

func TestRun_Timeout(t *testing.T) {
	e := New(20*time.Millisecond, nil)
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	out := e.run(context.Background(), "slow", func(ctx context.Context) (map[string]any, error) {
		<-release
		return nil, errors.New("too late")
	})
	if out.Success {
		t.Fatal("expected timeout failure")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
	if !strings.Contains(out.Message, "did not complete") {
		t.Errorf("unexpected message %q", out.Message)
	}
}

func TestDispatch_CoversEveryAction(t *testing.T) {
	remedies := []strategy.Remedy{
		strategy.CompressFile{},
		strategy.ConvertFormat{},
		strategy.EnhanceAudio{},
		strategy.ResampleAudio{},
		strategy.AdjustParameters{},
		strategy.CleanupResources{},
	}
	for _, r := range remedies {
		if _, ok := dispatch(r); !ok {
			t.Errorf("no handler registered for %s", r.Action())
		}
	}
}
