package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/vietddude/remediator/internal/remediation/strategy"
)

// compressionRatio is the ratio reported by the compression stand-in until a
// real encoder is plugged in.
const compressionRatio = 0.5

func compressFile(ctx context.Context, r strategy.CompressFile) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.TargetSize <= 0 {
		return nil, fmt.Errorf("invalid target size %d", r.TargetSize)
	}
	return map[string]any{
		"compressed_size":   r.TargetSize,
		"compression_ratio": compressionRatio,
	}, nil
}

func convertFormat(ctx context.Context, r strategy.ConvertFormat) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(r.TargetFormat, ".") || len(r.TargetFormat) < 2 {
		return nil, fmt.Errorf("invalid target format %q", r.TargetFormat)
	}
	return map[string]any{
		"new_format":         r.TargetFormat,
		"conversion_success": true,
	}, nil
}

func enhanceAudio(ctx context.Context, r strategy.EnhanceAudio) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.TargetQuality <= 0 || r.TargetQuality > 1 {
		return nil, fmt.Errorf("target quality %.2f outside (0, 1]", r.TargetQuality)
	}
	return map[string]any{
		"enhanced_quality":    r.TargetQuality,
		"enhancement_success": true,
	}, nil
}

func resampleAudio(ctx context.Context, r strategy.ResampleAudio) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.TargetRate <= 0 {
		return nil, fmt.Errorf("invalid target rate %d", r.TargetRate)
	}
	return map[string]any{
		"new_sample_rate":    r.TargetRate,
		"resampling_success": true,
	}, nil
}

func adjustParameters(ctx context.Context, r strategy.AdjustParameters) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.LearningRate <= 0 || r.BatchSize <= 0 {
		return nil, errors.New("learning rate and batch size must be positive")
	}
	return map[string]any{
		"new_parameters":     r.TargetParams(),
		"adjustment_success": true,
	}, nil
}

func cleanupResources(ctx context.Context, r strategy.CleanupResources) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.TargetMemory <= 0 {
		return nil, fmt.Errorf("invalid target memory %d", r.TargetMemory)
	}
	debug.FreeOSMemory()
	return map[string]any{
		"memory_after_cleanup": r.TargetMemory,
		"cleanup_success":      true,
	}, nil
}
