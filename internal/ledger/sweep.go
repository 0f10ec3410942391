package ledger

import (
	"context"
	"log/slog"
	"time"
)

// Reconciler runs the pending-trade sweep on a fixed interval until its
// context is cancelled.
type Reconciler struct {
	ledger   *Ledger
	interval time.Duration
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler sweeping every interval.
func NewReconciler(l *Ledger, interval time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		ledger:   l,
		interval: interval,
		logger:   logger.With(slog.String("component", "reconciler")),
	}
}

// Run sweeps immediately, then on every tick. It returns when ctx is
// cancelled. Sweep errors are logged; the loop never stops on them.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("reconciler started", slog.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	if _, err := r.ledger.SweepPending(ctx); err != nil {
		r.logger.Error("sweep failed", slog.String("error", err.Error()))
	}
}
