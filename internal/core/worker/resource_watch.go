package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/vietddude/remediator/internal/core/domain"
	"github.com/vietddude/remediator/internal/remediation/pipeline"
)

// MemorySampler reports the resident memory of the running process.
type MemorySampler interface {
	RSS(ctx context.Context) (uint64, error)
}

// ProcessSampler samples this process through gopsutil.
type ProcessSampler struct {
	proc *process.Process
}

// NewProcessSampler creates a sampler for the current process.
func NewProcessSampler() (*ProcessSampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to open process handle: %w", err)
	}
	return &ProcessSampler{proc: proc}, nil
}

// RSS returns the resident set size in bytes.
func (s *ProcessSampler) RSS(ctx context.Context) (uint64, error) {
	info, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	return info.RSS, nil
}

// FailureHandler is the entry point failures are raised through.
type FailureHandler interface {
	Handle(ctx context.Context, f *domain.Failure) pipeline.Result
}

// ResourceWatcher raises a System failure when the process outgrows its
// memory limit. It fires once per excursion and re-arms once usage drops
// back under the limit.
type ResourceWatcher struct {
	sampler   MemorySampler
	handler   FailureHandler
	maxMemory int64
	interval  time.Duration
	log       *slog.Logger
	raised    bool
}

// NewResourceWatcher creates a watcher sampling every interval.
func NewResourceWatcher(
	sampler MemorySampler,
	handler FailureHandler,
	maxMemory int64,
	interval time.Duration,
	log *slog.Logger,
) *ResourceWatcher {
	if log == nil {
		log = slog.Default()
	}
	return &ResourceWatcher{
		sampler:   sampler,
		handler:   handler,
		maxMemory: maxMemory,
		interval:  interval,
		log:       log,
	}
}

// Start samples until ctx is done.
func (w *ResourceWatcher) Start(ctx context.Context) {
	if w.interval <= 0 {
		return // Sampling disabled
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// check takes one sample and raises a failure on a new excursion.
func (w *ResourceWatcher) check(ctx context.Context) {
	rss, err := w.sampler.RSS(ctx)
	if err != nil {
		w.log.Warn("Failed to sample memory usage", "error", err)
		return
	}

	if int64(rss) <= w.maxMemory {
		w.raised = false
		return
	}
	if w.raised {
		return
	}
	w.raised = true

	failure := domain.NewFailure(
		domain.FailureKindSystem,
		fmt.Sprintf("memory usage %d bytes exceeds limit of %d bytes", rss, w.maxMemory),
		map[string]any{
			"resource_usage": map[string]any{
				"memory_usage": int64(rss),
			},
		},
	).WithCategory(domain.CategoryResource).WithLocation("resource_watcher")

	res := w.handler.Handle(ctx, failure)
	w.log.Warn("Memory limit exceeded",
		"rss", rss,
		"max_memory", w.maxMemory,
		"corrected", res.Corrected(),
		"error_id", res.ErrorID,
	)
}
