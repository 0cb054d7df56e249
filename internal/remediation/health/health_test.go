package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/remediator/internal/remediation/audit"
)

// =============================================================================
// Mocks
// =============================================================================

type stubSource struct {
	healthErr error
	statsErr  error
	stats     audit.Stats
	calls     int
}

func (s *stubSource) Health(ctx context.Context) error {
	s.calls++
	return s.healthErr
}

func (s *stubSource) Stats(ctx context.Context) (audit.Stats, error) {
	return s.stats, s.statsErr
}

// =============================================================================
// Monitor
// =============================================================================

func TestMonitor_CheckHealth(t *testing.T) {
	tests := []struct {
		name   string
		source *stubSource
		want   SystemStatus
	}{
		{"empty store", &stubSource{}, StatusHealthy},
		{"unreachable store", &stubSource{healthErr: errors.New("dial tcp: refused")}, StatusCritical},
		{"stats unavailable", &stubSource{statsErr: errors.New("timeout")}, StatusDegraded},
		{"small sample ignored", &stubSource{stats: audit.Stats{Total: 3, Failed: 3}}, StatusHealthy},
		{"mostly corrected", &stubSource{stats: audit.Stats{Total: 20, Completed: 19, Failed: 1}}, StatusHealthy},
		{"some failures", &stubSource{stats: audit.Stats{Total: 20, Completed: 15, Failed: 5}}, StatusDegraded},
		{"mostly failing", &stubSource{stats: audit.Stats{Total: 20, Completed: 5, Failed: 15}}, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(tt.source, DefaultThresholds(), 0)
			report := m.CheckHealth(context.Background())
			if report.SystemStatus != tt.want {
				t.Errorf("expected %s, got %s (%+v)", tt.want, report.SystemStatus, report.Audit)
			}
		})
	}
}

func TestMonitor_CachesReport(t *testing.T) {
	source := &stubSource{}
	m := NewMonitor(source, DefaultThresholds(), time.Minute)

	m.CheckHealth(context.Background())
	m.CheckHealth(context.Background())

	if source.calls != 1 {
		t.Errorf("expected 1 source call, got %d", source.calls)
	}
}

// =============================================================================
// HTTP
// =============================================================================

func TestHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		source     *stubSource
		wantCode   int
		wantStatus string
	}{
		{"healthy", &stubSource{}, http.StatusOK, "healthy"},
		{"critical", &stubSource{healthErr: errors.New("down")}, http.StatusServiceUnavailable, "critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			NewHandler(NewMonitor(tt.source, DefaultThresholds(), 0)).Register(mux)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("expected %s, got %s", tt.wantStatus, body["status"])
			}
		})
	}
}

func TestHandler_Detailed(t *testing.T) {
	source := &stubSource{stats: audit.Stats{Total: 4, Pending: 1, Completed: 2, Failed: 1}}
	mux := http.NewServeMux()
	NewHandler(NewMonitor(source, DefaultThresholds(), 0)).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))

	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if report.Audit.Total != 4 || report.Audit.Pending != 1 || !report.Audit.Reachable {
		t.Errorf("unexpected audit health %+v", report.Audit)
	}
}

func TestHandler_Metrics(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(NewMonitor(&stubSource{}, DefaultThresholds(), 0)).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// =============================================================================
// gRPC
// =============================================================================

func TestGRPCServer_Sync(t *testing.T) {
	source := &stubSource{}
	s := NewGRPCServer(NewMonitor(source, DefaultThresholds(), 0), 0, nil)
	ctx := context.Background()

	s.Sync(ctx)
	status, err := s.Check(ctx, ServiceName)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %s", status)
	}

	source.healthErr = errors.New("down")
	s.Sync(ctx)
	status, _ = s.Check(ctx, "")
	if status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("expected NOT_SERVING, got %s", status)
	}
}
