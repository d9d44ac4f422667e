package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/copyforge/internal/store"
)

const (
	// DefaultRetention is how long finished and stale jobs are kept.
	DefaultRetention = 30 * 24 * time.Hour
	// defaultSweepInterval is how often the sweeper runs.
	defaultSweepInterval = 24 * time.Hour
)

// Sweeper deletes job rows older than the retention window.
type Sweeper struct {
	store     store.Store
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

func NewSweeper(st store.Store, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:     st,
		retention: DefaultRetention,
		interval:  defaultSweepInterval,
		logger:    logger,
	}
}

// Run sweeps once immediately, then once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
			}
		}
	}
}

// Sweep deletes everything created before the retention cutoff and returns
// how many rows went away.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	deleted, err := s.store.DeleteJobsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete jobs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "retention sweep removed jobs",
			"deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
