package hub

import (
	"context"
	"log/slog"
	"time"

	"github.com/micro-ha/korea-connect/internal/integration"
)

// runner drives one coordinator on its interval plus manual triggers.
// The trigger channel is buffered at one and sent non-blocking, so any
// burst of requests collapses into a single extra cycle; the coordinator
// coalesces whatever still overlaps.
type runner struct {
	coordinator *integration.Coordinator
	interval    time.Duration
	refreshCh   chan struct{}
	logger      *slog.Logger
	onOutcome   func(integration.Outcome)
}

func newRunner(coordinator *integration.Coordinator, interval time.Duration, logger *slog.Logger, onOutcome func(integration.Outcome)) *runner {
	return &runner{
		coordinator: coordinator,
		interval:    interval,
		refreshCh:   make(chan struct{}, 1),
		logger:      logger,
		onOutcome:   onOutcome,
	}
}

func (r *runner) TriggerRefresh() {
	select {
	case r.refreshCh <- struct{}{}:
	default:
	}
}

func (r *runner) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-r.refreshCh:
			timer.Stop()
		case <-timer.C:
		}

		outcome := r.coordinator.Refresh(ctx)
		if ctx.Err() != nil {
			return
		}
		if r.onOutcome != nil {
			r.onOutcome(outcome)
		}
	}
}
