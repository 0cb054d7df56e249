// Package executor runs corrective actions chosen by the strategy resolver.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/remediator/internal/remediation/metrics"
	"github.com/vietddude/remediator/internal/remediation/strategy"
)

// DefaultTimeout bounds a single handler run.
const DefaultTimeout = 2 * time.Second

// Outcome is the structured result of one handler run.
type Outcome struct {
	Success bool                `json:"success"`
	Action  strategy.ActionName `json:"action,omitempty"`
	Result  map[string]any      `json:"result,omitempty"`
	Message string              `json:"message,omitempty"`
}

func failed(action strategy.ActionName, format string, args ...any) Outcome {
	return Outcome{Success: false, Action: action, Message: fmt.Sprintf(format, args...)}
}

type handlerFunc func(ctx context.Context) (map[string]any, error)

// Executor dispatches a Remedy to its handler. It holds no mutable state.
type Executor struct {
	timeout time.Duration
	log     *slog.Logger
}

// New creates an executor. A non-positive timeout falls back to DefaultTimeout.
func New(timeout time.Duration, log *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Executor{timeout: timeout, log: log}
}

// Execute runs the handler for remedy once. Handler errors, panics and
// timeouts come back as an unsuccessful Outcome.
func (e *Executor) Execute(ctx context.Context, remedy strategy.Remedy) Outcome {
	handler, ok := dispatch(remedy)
	if !ok {
		return Outcome{Success: false, Message: "no handler for action <nil>"}
	}
	return e.run(ctx, remedy.Action(), handler)
}

// ExecuteNamed decodes an action name and parameter map and runs it.
func (e *Executor) ExecuteNamed(ctx context.Context, name string, params map[string]any) Outcome {
	remedy, err := strategy.DecodeRemedy(name, params)
	if err != nil {
		return Outcome{Success: false, Action: strategy.ActionName(name), Message: err.Error()}
	}
	return e.Execute(ctx, remedy)
}

// dispatch maps each Remedy type to its handler. Adding a Remedy type
// without a case here leaves it unhandled, which the tests catch.
func dispatch(remedy strategy.Remedy) (handlerFunc, bool) {
	switch r := remedy.(type) {
	case strategy.CompressFile:
		return func(ctx context.Context) (map[string]any, error) { return compressFile(ctx, r) }, true
	case strategy.ConvertFormat:
		return func(ctx context.Context) (map[string]any, error) { return convertFormat(ctx, r) }, true
	case strategy.EnhanceAudio:
		return func(ctx context.Context) (map[string]any, error) { return enhanceAudio(ctx, r) }, true
	case strategy.ResampleAudio:
		return func(ctx context.Context) (map[string]any, error) { return resampleAudio(ctx, r) }, true
	case strategy.AdjustParameters:
		return func(ctx context.Context) (map[string]any, error) { return adjustParameters(ctx, r) }, true
	case strategy.CleanupResources:
		return func(ctx context.Context) (map[string]any, error) { return cleanupResources(ctx, r) }, true
	default:
		return nil, false
	}
}

type handlerResult struct {
	result map[string]any
	err    error
}

func (e *Executor) run(ctx context.Context, action strategy.ActionName, handler handlerFunc) Outcome {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.HandlerDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())
	}()

	// Buffered so a handler that outlives the timeout does not leak blocked.
	done := make(chan handlerResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- handlerResult{err: fmt.Errorf("handler panicked: %v", p)}
			}
		}()
		result, err := handler(ctx)
		done <- handlerResult{result: result, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			e.log.Warn("Correction handler failed", "action", action, "error", res.err)
			metrics.HandlerOutcomes.WithLabelValues(string(action), "failed").Inc()
			return failed(action, "%s", res.err.Error())
		}
		e.log.Info("Correction handler applied", "action", action, "result", res.result)
		metrics.HandlerOutcomes.WithLabelValues(string(action), "applied").Inc()
		return Outcome{Success: true, Action: action, Result: res.result}
	case <-ctx.Done():
		e.log.Warn("Correction handler timed out", "action", action, "timeout", e.timeout)
		metrics.HandlerOutcomes.WithLabelValues(string(action), "timeout").Inc()
		return failed(action, "handler %s did not complete: %v", action, ctx.Err())
	}
}
