package hal

import (
	"context"
	"errors"
	"runtime"
	"time"
)

// ErrTimeout is returned by Poller.Until when the condition never held within the budget.
var ErrTimeout = errors.New("poll budget exhausted")

const DefaultPollAttempts = 100_000

// Poller is a bounded busy-wait on a hardware condition.
// A zero Poller checks DefaultPollAttempts times without sleeping.
type Poller struct {
	Attempts int
	Interval time.Duration
}

// Until evaluates cond until it holds, the attempt budget is spent or ctx is done.
func (p Poller) Until(ctx context.Context, cond func() bool) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	var timer *time.Timer
	if p.Interval > 0 {
		timer = time.NewTimer(p.Interval)
		defer timer.Stop()
	}
	for i := 0; i < attempts; i++ {
		if cond() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if timer == nil {
			runtime.Gosched()
			continue
		}
		timer.Reset(p.Interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if cond() {
		return nil
	}
	return ErrTimeout
}
