package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/remediator/internal/api"
	"github.com/vietddude/remediator/internal/core/config"
	"github.com/vietddude/remediator/internal/core/worker"
	"github.com/vietddude/remediator/internal/remediation/executor"
	"github.com/vietddude/remediator/internal/remediation/health"
	"github.com/vietddude/remediator/internal/remediation/pipeline"
	"github.com/vietddude/remediator/internal/remediation/strategy"
	"github.com/vietddude/remediator/internal/remediation/verify"
)

const (
	healthCacheFor     = 10 * time.Second
	healthSyncInterval = 15 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// Remediator is the main application struct that owns the pipeline and
// manages the lifecycle of the servers and background workers.
type Remediator struct {
	cfg        *config.AppConfig
	backend    *Backend
	executor   *executor.Executor
	pipeline   *pipeline.Pipeline
	monitor    *health.Monitor
	apiServer  *api.Server
	grpcServer *health.GRPCServer
	pruner     *worker.Pruner
	watcher    *worker.ResourceWatcher
	log        *slog.Logger

	cancel   context.CancelFunc
	group    *errgroup.Group
	stopOnce sync.Once
}

// NewRemediator creates a new Remediator with all dependencies initialized.
func NewRemediator(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*Remediator, error) {
	if log == nil {
		log = slog.Default()
	}

	// 1. Initialize Storage
	backend, err := OpenBackend(ctx, cfg, true, log)
	if err != nil {
		return nil, err
	}

	// 2. Initialize the pipeline
	exec := executor.New(cfg.Remediation.HandlerTimeout, log)
	resolver := strategy.NewResolver(cfg.Remediation.Limits())
	p := pipeline.New(verify.New(resolver, exec), backend.Store, log)

	// 3. Health, transport and workers
	monitor := health.NewMonitor(backend.Store, health.DefaultThresholds(), healthCacheFor)
	r := &Remediator{
		cfg:       cfg,
		backend:   backend,
		executor:  exec,
		pipeline:  p,
		monitor:   monitor,
		apiServer: api.NewServer(cfg.Server.Port, p, backend.Store, log, health.NewHandler(monitor)),
		pruner:    worker.NewPruner(backend.Store, cfg.Audit.RetentionPeriod, cfg.Audit.PruneInterval, log),
		log:       log,
	}

	if cfg.Server.GRPCPort > 0 {
		r.grpcServer = health.NewGRPCServer(monitor, cfg.Server.GRPCPort, log)
	}

	if cfg.System.SampleInterval > 0 {
		sampler, err := worker.NewProcessSampler()
		if err != nil {
			log.Warn("Resource watcher disabled", "error", err)
		} else {
			r.watcher = worker.NewResourceWatcher(sampler, p, cfg.Remediation.MaxMemory, cfg.System.SampleInterval, log)
		}
	}

	return r, nil
}

// Pipeline returns the shared remediation pipeline.
func (r *Remediator) Pipeline() *pipeline.Pipeline {
	return r.pipeline
}

// Backend returns the opened audit backend.
func (r *Remediator) Backend() *Backend {
	return r.backend
}

// Start starts the servers and background workers. It returns immediately;
// use Wait to block until they exit.
func (r *Remediator) Start(ctx context.Context) error {
	if r.group != nil {
		return errors.New("remediator already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	r.cancel = cancel
	r.group = g

	// Start HTTP Server
	g.Go(func() error {
		if err := r.apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	// Start gRPC health mirror
	if r.grpcServer != nil {
		g.Go(func() error {
			if err := r.grpcServer.Start(); err != nil {
				return fmt.Errorf("grpc server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			r.grpcServer.Watch(gctx, healthSyncInterval)
			return nil
		})
	}

	// Shut the servers down once anything fails or Stop is called
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if r.grpcServer != nil {
			r.grpcServer.Stop()
		}
		if err := r.apiServer.Stop(shutdownCtx); err != nil {
			r.log.Warn("Failed to stop HTTP server", "error", err)
		}
		return nil
	})

	// Start DB Metrics Collector
	if r.backend.DB != nil {
		r.backend.DB.StartMetricsCollector(gctx, 15*time.Second)
	}

	// Start Pruner
	if r.cfg.Audit.RetentionPeriod > 0 {
		r.log.Info("Starting pruner", "retention", r.cfg.Audit.RetentionPeriod)
		g.Go(func() error {
			r.pruner.Start(gctx)
			return nil
		})
	}

	// Start Resource Watcher
	if r.watcher != nil {
		r.log.Info("Starting resource watcher", "interval", r.cfg.System.SampleInterval)
		g.Go(func() error {
			r.watcher.Start(gctx)
			return nil
		})
	}

	return nil
}

// Wait blocks until every component has exited and returns the first error.
func (r *Remediator) Wait() error {
	if r.group == nil {
		return nil
	}
	return r.group.Wait()
}

// Stop stops the remediator and releases its connections.
func (r *Remediator) Stop(ctx context.Context) error {
	var err error
	r.stopOnce.Do(func() {
		r.log.Info("Stopping Remediator...")

		if r.cancel != nil {
			r.cancel()
			done := make(chan error, 1)
			go func() { done <- r.group.Wait() }()
			select {
			case err = <-done:
			case <-ctx.Done():
				err = ctx.Err()
			}
		}

		if cerr := r.backend.Close(); cerr != nil {
			r.log.Warn("Failed to close audit backend", "error", cerr)
		}
	})
	return err
}
