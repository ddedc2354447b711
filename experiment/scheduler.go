package experiment

import (
	"context"
	"time"
)

// Scheduler runs fire once after d unless ctx ends first.
type Scheduler interface {
	Schedule(ctx context.Context, d time.Duration, fire func())
}

// TimerScheduler starts one goroutine per scheduled interval.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(ctx context.Context, d time.Duration, fire func()) {
	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			fire()
		}
	}()
}
