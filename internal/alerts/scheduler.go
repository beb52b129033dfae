package alerts

import (
	"context"
	"log"
	"time"
)

// StartScheduler runs a daily check cycle at local midnight until ctx is
// cancelled.
func (s *Service) StartScheduler(ctx context.Context) {
	go func() {
		for {
			next := nextMidnight(time.Now())
			timer := time.NewTimer(time.Until(next))
			log.Printf("scheduler: next check at %s", next.Format(time.RFC3339))

			select {
			case <-ctx.Done():
				timer.Stop()
				log.Println("scheduler: stopped")
				return
			case <-timer.C:
			}

			log.Println("scheduler: running daily check")
			triggered := s.CheckAll(ctx)
			log.Printf("scheduler: check complete, %d signal(s)", len(triggered))
		}
	}()
}

// nextMidnight returns the first local midnight strictly after t.
func nextMidnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, t.Location())
}
