package douban

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	DefaultDelayMin = 1 * time.Second
	DefaultDelayMax = 3 * time.Second
)

// DelayFunc pauses between requests. It returns early when ctx is done.
type DelayFunc func(ctx context.Context)

// RandomDelay waits a uniformly distributed duration in [lo, hi).
func RandomDelay(lo, hi time.Duration) DelayFunc {
	return func(ctx context.Context) {
		d := lo
		if hi > lo {
			d += rand.N(hi - lo)
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
}

// NoDelay does not wait at all.
func NoDelay(context.Context) {}
