package telemetry

import (
	"context"
	"log/slog"
	"time"
)

// AliveChecker is a snapshot of the current engine handle's liveness;
// the watchdog never holds the lifecycle lock while polling it.
type AliveChecker interface {
	IsAlive() bool
}

// Watchdog implements spec §4.8: when the engine handle reports death
// while Running, it asks the lifecycle to perform one supervised
// restart using the last effective plan.
type Watchdog struct {
	interval      time.Duration
	checker       func() AliveChecker
	onDeath       func(ctx context.Context) error
}

func NewWatchdog(interval time.Duration, checker func() AliveChecker, onDeath func(ctx context.Context) error) *Watchdog {
	return &Watchdog{interval: interval, checker: checker, onDeath: onDeath}
}

// Run blocks until ctx is cancelled, checking liveness every interval.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkOnce(ctx)
		}
	}
}

func (w *Watchdog) checkOnce(ctx context.Context) {
	handle := w.checker()
	if handle == nil || handle.IsAlive() {
		return
	}
	slog.Warn("watchdog: engine handle reported dead, attempting supervised restart")
	if err := w.onDeath(ctx); err != nil {
		slog.Error("watchdog: supervised restart failed", "err", err)
	}
}
