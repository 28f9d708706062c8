package ledger

import (
	"context"
	"log"
	"time"
)

// Sweeper drives the settlement outbox. The first sweep runs immediately so
// tasks left behind by a restart are completed on startup.
type Sweeper struct {
	Ledger   *Service
	Interval time.Duration
}

func (w *Sweeper) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	w.sweep(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) {
	n, err := w.Ledger.SweepDue(ctx, w.Ledger.now())
	if err != nil && ctx.Err() == nil {
		log.Printf("[ledger] sweep: %v", err)
	}
	if n > 0 {
		log.Printf("[ledger] sweep settled %d transaction(s)", n)
	}
}
