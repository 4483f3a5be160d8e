package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FortuneScanner/internal/ports"
)

// DailyScheduler fires the job once per day at a fixed local wall-clock
// time. Used only in daemon mode; single-shot runs never construct it.
type DailyScheduler struct {
	hour   int
	minute int
	loc    *time.Location

	mu   sync.Mutex
	stop chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler parses an "HH:MM" trigger time in the given location.
func NewDailyScheduler(at string, loc *time.Location) (*DailyScheduler, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid trigger time %q: %w", at, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{hour: t.Hour(), minute: t.Minute(), loc: loc}, nil
}

// NextRun returns the first trigger instant strictly after now.
func (d *DailyScheduler) NextRun(now time.Time) time.Time {
	local := now.In(d.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start launches the trigger loop. Jobs run sequentially; a slow job delays
// the next trigger rather than overlapping it.
func (d *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil
	}

	// The goroutine holds its own reference so Stop can nil the field
	// without racing the loop.
	stop := make(chan struct{})
	d.stop = stop
	go func() {
		for {
			timer := time.NewTimer(time.Until(d.NextRun(time.Now())))
			select {
			case t := <-timer.C:
				job(t)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the trigger goroutine. Safe to call repeatedly.
func (d *DailyScheduler) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	d.stop = nil
	return nil
}
