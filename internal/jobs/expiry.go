package jobs

import (
	"context"
	"log/slog"
	"time"

	"tessera/internal/service"
)

// ExpirySweep reconciles holds against their persisted deadlines. The
// in-process timer registry handles the common case; the sweep catches
// holds lost to a process restart and expiries that exhausted their
// retries. Any instance may expire any draft past its deadline.
type ExpirySweep struct {
	reservations *service.ReservationService
	interval     time.Duration
	done         chan struct{}
	ticker       *time.Ticker
}

func NewExpirySweep(reservations *service.ReservationService, interval time.Duration) *ExpirySweep {
	return &ExpirySweep{
		reservations: reservations,
		interval:     interval,
		done:         make(chan struct{}),
	}
}

// Start begins the periodic sweep. An initial pass runs immediately so a
// restarted instance reclaims orphaned holds without waiting a full
// interval.
func (j *ExpirySweep) Start(ctx context.Context) {
	slog.Info("Starting hold expiry sweep", "interval", j.interval.String())

	j.ticker = time.NewTicker(j.interval)

	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				j.sweep(ctx)
			case <-j.done:
				slog.Info("Hold expiry sweep stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweep.
func (j *ExpirySweep) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *ExpirySweep) sweep(ctx context.Context) {
	swept, err := j.reservations.SweepExpired(ctx)
	if err != nil {
		slog.Error("Hold expiry sweep failed", "error", err)
		return
	}
	if swept > 0 {
		slog.Info("Expired overdue holds", "count", swept)
	}
}
