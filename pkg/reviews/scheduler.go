package reviews

import (
	"context"
	"time"

	"github.com/getzep/reviewpulse/pkg/models"
)

const DefaultInterval = 5 * time.Minute

// Scheduler invokes a ReviewFetcher on a fixed interval.
type Scheduler struct {
	fetcher  models.ReviewFetcher
	interval time.Duration
}

func NewScheduler(fetcher models.ReviewFetcher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{fetcher: fetcher, interval: interval}
}

// Start runs the scheduler in a goroutine until ctx is done. The returned channel is
// closed once the loop has exited.
func (s *Scheduler) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return done
}

// Run blocks, fetching once per tick. A failed fetch is logged and the loop keeps going.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Infof("review fetcher scheduled every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("review fetcher stopped")
			return
		case t := <-ticker.C:
			log.Infof("review fetch triggered at: %s", t.UTC().Format(time.RFC3339))
			// the error is already logged by the fetcher
			_, _ = s.fetcher.Fetch(ctx)
		}
	}
}
