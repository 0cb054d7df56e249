package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service reported through the gRPC health protocol.
const ServiceName = "remediator"

// GRPCServer mirrors the monitor status into the standard gRPC health service.
type GRPCServer struct {
	monitor *Monitor
	port    int
	server  *grpc.Server
	health  *grpchealth.Server
	log     *slog.Logger
}

// NewGRPCServer creates a gRPC health server listening on port.
func NewGRPCServer(monitor *Monitor, port int, log *slog.Logger) *GRPCServer {
	if log == nil {
		log = slog.Default()
	}
	hs := grpchealth.NewServer()
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	return &GRPCServer{
		monitor: monitor,
		port:    port,
		server:  server,
		health:  hs,
		log:     log,
	}
}

// Start serves until Stop is called.
func (s *GRPCServer) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port %d: %w", s.port, err)
	}
	s.log.Info("gRPC health server listening", "port", s.port)
	return s.server.Serve(lis)
}

// Stop stops the server gracefully.
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

// Sync pushes the current monitor status into the health service.
func (s *GRPCServer) Sync(ctx context.Context) {
	status := servingStatus(s.monitor.CheckHealth(ctx).SystemStatus)
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Watch syncs the status every interval until ctx is done.
func (s *GRPCServer) Watch(ctx context.Context, interval time.Duration) {
	s.Sync(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sync(ctx)
		}
	}
}

// Check answers a health check in process.
func (s *GRPCServer) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// degraded still serves; only critical takes the service out of rotation
func servingStatus(status SystemStatus) healthpb.HealthCheckResponse_ServingStatus {
	if status == StatusCritical {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
