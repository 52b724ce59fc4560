package heartbeat

import (
	"math/rand/v2"
	"time"
)

// Backoff is an exponential reconnect delay with +/-20% jitter.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
	cur  time.Duration
}

// Next returns the delay before the next attempt and advances the backoff.
func (b *Backoff) Next() time.Duration {
	if b.Base <= 0 {
		b.Base = time.Second
	}
	if b.Max < b.Base {
		b.Max = b.Base
	}
	if b.cur <= 0 {
		b.cur = b.Base
	} else {
		b.cur *= 2
		if b.cur > b.Max {
			b.cur = b.Max
		}
	}
	j := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(b.cur) * j)
}

func (b *Backoff) Reset() { b.cur = 0 }
