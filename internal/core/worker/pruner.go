package worker

import (
	"context"
	"log/slog"
	"time"
)

// Prunable deletes audit records older than a retention period.
type Prunable interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// Pruner deletes old audit records based on the retention policy.
type Pruner struct {
	store     Prunable
	retention time.Duration
	interval  time.Duration
	log       *slog.Logger
}

// NewPruner creates a new Pruner worker. The check interval is 10% of the
// retention period, capped by maxInterval and never below one minute.
func NewPruner(store Prunable, retention, maxInterval time.Duration, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	if maxInterval <= 0 {
		maxInterval = time.Hour
	}
	interval := min(retention/10, maxInterval)
	interval = max(interval, time.Minute)

	return &Pruner{
		store:     store,
		retention: retention,
		interval:  interval,
		log:       log,
	}
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	deleted, err := p.store.Prune(ctx, p.retention)
	if err != nil {
		p.log.Error("Failed to prune audit records", "error", err)
		return
	}
	if deleted > 0 {
		p.log.Info("Pruned audit records", "deleted", deleted, "retention", p.retention)
	}
}
