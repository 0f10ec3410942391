package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// shutdownGrace bounds how long in-flight HTTP requests may drain.
const shutdownGrace = 10 * time.Second

// ServeMode runs the full agent: the HTTP/websocket front, the pending-trade
// reconciler, and the snapshot exporter. It blocks until ctx is cancelled or
// a component fails.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	if deps.Server == nil {
		return fmt.Errorf("app: serve mode requires server.enabled")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Server.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return deps.Server.Shutdown(shutdownCtx)
	})

	if deps.Hub != nil {
		g.Go(func() error {
			return ignoreCanceled(deps.Hub.Run(ctx))
		})
	}

	if a.cfg.Sweep.Enabled {
		g.Go(func() error {
			return ignoreCanceled(deps.Reconciler.Run(ctx))
		})
	}

	if deps.Exporter != nil {
		g.Go(func() error {
			return ignoreCanceled(deps.Exporter.Run(ctx, deps.ExportEvery))
		})
	}

	return g.Wait()
}

// SweepMode runs only the pending-trade reconciler, for a cron-style
// deployment next to a serve instance that has sweeping disabled.
func (a *App) SweepMode(ctx context.Context, deps *Dependencies) error {
	return ignoreCanceled(deps.Reconciler.Run(ctx))
}

// ignoreCanceled treats context cancellation as a clean exit so a shutdown
// signal never reports as a component failure.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
