// Package health provides system health monitoring and status reporting.
package health

import "time"

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// AuditHealth describes the audit store as seen by the monitor.
type AuditHealth struct {
	Status       SystemStatus `json:"status"`
	Reachable    bool         `json:"reachable"`
	Error        string       `json:"error,omitempty"`
	Total        int          `json:"total_errors"`
	Pending      int          `json:"pending"`
	Completed    int          `json:"completed"`
	Failed       int          `json:"failed"`
	FailureRatio float64      `json:"failure_ratio"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus `json:"system_status"`
	Audit        AuditHealth  `json:"audit"`
	CheckedAt    time.Time    `json:"checked_at"`
}
