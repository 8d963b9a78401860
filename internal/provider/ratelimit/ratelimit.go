package ratelimit

import (
    "context"
    "sync"
    "time"

    "pricequote/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between calls.
// Concurrent calls wait until the interval has elapsed since the last call,
// or return early if the context is canceled.
type MinInterval struct {
    P        provider.Provider
    Interval time.Duration

    mu   sync.Mutex
    last time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) Fetch(ctx context.Context, assetIDs []string) ([]provider.RawQuote, error) {
    if m.Interval > 0 {
        m.mu.Lock()
        wait := time.Until(m.last.Add(m.Interval))
        m.mu.Unlock()
        if wait > 0 {
            t := time.NewTimer(wait)
            defer t.Stop()
            select {
            case <-ctx.Done():
                return nil, ctx.Err()
            case <-t.C:
            }
        }
    }
    qs, err := m.P.Fetch(ctx, assetIDs)
    if m.Interval > 0 {
        m.mu.Lock()
        m.last = time.Now()
        m.mu.Unlock()
    }
    return qs, err
}

// Wrap gates p with a token bucket when maxPerMinute > 0, otherwise with a
// minimum interval when minInterval > 0. With neither set p is returned as is.
func Wrap(p provider.Provider, maxPerMinute, burst int, minInterval time.Duration) provider.Provider {
    if maxPerMinute > 0 {
        rate := float64(maxPerMinute) / 60.0
        if burst <= 0 { burst = 1 }
        return &TokenBucketProvider{P: p, Bucket: NewTokenBucket(rate, burst)}
    }
    if minInterval > 0 {
        return &MinInterval{P: p, Interval: minInterval}
    }
    return p
}
