package ratelimit

import "time"

// Backoff computes how long to hold off an upstream after consecutive
// failures: Base * 2^(failures-1), capped at Max. A zero Base disables it.
type Backoff struct {
    Base time.Duration
    Max  time.Duration
}

// Delay returns the hold-off after the given number of consecutive failures.
func (b Backoff) Delay(failures int) time.Duration {
    if b.Base <= 0 || failures <= 0 {
        return 0
    }
    ceiling := b.Max
    if ceiling < b.Base {
        ceiling = b.Base
    }
    // cap the shift before it can overflow
    if failures > 30 {
        return ceiling
    }
    d := b.Base * time.Duration(1<<(failures-1))
    if d <= 0 || d > ceiling {
        return ceiling
    }
    return d
}
