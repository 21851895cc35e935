package surveilans

import (
	"context"
	"time"
)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// sleep blocks for d on the given clock, returning early with the context
// error if ctx is done first.
func sleep(ctx context.Context, clock Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}

// pacer spaces out calls so that delay elapses between the end of one query
// and the start of the next. The portal tolerates roughly two queries per
// second.
type pacer struct {
	clock Clock
	delay time.Duration
}

func newPacer(clock Clock, delay time.Duration) *pacer {
	return &pacer{
		clock: clock,
		delay: delay,
	}
}

// Done marks the end of a paced call and waits out the delay.
func (p *pacer) Done(ctx context.Context) error {
	return sleep(ctx, p.clock, p.delay)
}
