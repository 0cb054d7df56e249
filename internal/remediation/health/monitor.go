package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/remediator/internal/remediation/audit"
)

// Source is the audit store view the monitor needs.
type Source interface {
	Health(ctx context.Context) error
	Stats(ctx context.Context) (audit.Stats, error)
}

// Thresholds decide when failed corrections degrade the system status.
type Thresholds struct {
	// MinSample is the number of finalized records below which the ratio is ignored.
	MinSample     int
	DegradedRatio float64
	CriticalRatio float64
}

// DefaultThresholds returns the thresholds used by the service.
func DefaultThresholds() Thresholds {
	return Thresholds{MinSample: 10, DegradedRatio: 0.2, CriticalRatio: 0.5}
}

// Monitor aggregates health status from the audit store.
type Monitor struct {
	source     Source
	thresholds Thresholds
	cacheFor   time.Duration
	lastCheck  time.Time
	lastReport HealthReport
	mu         sync.RWMutex
}

// NewMonitor creates a new health monitor. Reports are cached for cacheFor.
func NewMonitor(source Source, thresholds Thresholds, cacheFor time.Duration) *Monitor {
	return &Monitor{
		source:     source,
		thresholds: thresholds,
		cacheFor:   cacheFor,
	}
}

// CheckHealth returns the current report, reusing a recent one when cached.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lastCheck.IsZero() && time.Since(m.lastCheck) < m.cacheFor {
		return m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Audit:        m.checkAudit(ctx),
		CheckedAt:    time.Now(),
	}
	report.SystemStatus = report.Audit.Status

	m.lastCheck = report.CheckedAt
	m.lastReport = report
	return report
}

func (m *Monitor) checkAudit(ctx context.Context) AuditHealth {
	h := AuditHealth{Status: StatusHealthy, Reachable: true}

	if err := m.source.Health(ctx); err != nil {
		h.Status = StatusCritical
		h.Reachable = false
		h.Error = err.Error()
		return h
	}

	stats, err := m.source.Stats(ctx)
	if err != nil {
		h.Status = StatusDegraded
		h.Error = err.Error()
		return h
	}
	h.Total = stats.Total
	h.Pending = stats.Pending
	h.Completed = stats.Completed
	h.Failed = stats.Failed
	h.FailureRatio = stats.FailureRatio()

	if stats.Completed+stats.Failed < m.thresholds.MinSample {
		return h
	}
	if h.FailureRatio >= m.thresholds.CriticalRatio {
		h.Status = StatusCritical
	} else if h.FailureRatio >= m.thresholds.DegradedRatio {
		h.Status = StatusDegraded
	}
	return h
}
