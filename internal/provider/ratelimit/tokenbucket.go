package ratelimit

import (
    "context"
    "math"
    "sync"
    "time"

    "pricequote/internal/provider"
)

// TokenBucket admits refill tokens per second with bursts of up to burst.
// A caller that finds it empty reserves a token against future refill and
// sleeps until the reservation matures, so waiters go out in arrival order.
type TokenBucket struct {
    refill float64
    burst  float64
    now    func() time.Time

    mu      sync.Mutex
    level   float64 // negative while reservations are outstanding
    updated time.Time
}

func NewTokenBucket(perSecond float64, burst int) *TokenBucket {
    if perSecond <= 0 { perSecond = 1e-7 }
    if burst <= 0 { burst = 1 }
    tb := &TokenBucket{refill: perSecond, burst: float64(burst), now: time.Now}
    tb.level = tb.burst
    tb.updated = tb.now()
    return tb
}

// reserve takes one token and reports how long the caller must wait for it.
func (tb *TokenBucket) reserve() time.Duration {
    tb.mu.Lock()
    defer tb.mu.Unlock()
    now := tb.now()
    if dt := now.Sub(tb.updated).Seconds(); dt > 0 {
        tb.level = math.Min(tb.burst, tb.level+dt*tb.refill)
        tb.updated = now
    }
    tb.level--
    if tb.level >= 0 {
        return 0
    }
    return time.Duration(-tb.level / tb.refill * float64(time.Second))
}

func (tb *TokenBucket) release() {
    tb.mu.Lock()
    tb.level = math.Min(tb.burst, tb.level+1)
    tb.mu.Unlock()
}

// Wait blocks until a token is available or ctx is done. An abandoned wait
// hands its token back.
func (tb *TokenBucket) Wait(ctx context.Context) error {
    d := tb.reserve()
    if d <= 0 {
        return nil
    }
    timer := time.NewTimer(d)
    defer timer.Stop()
    select {
    case <-ctx.Done():
        tb.release()
        return ctx.Err()
    case <-timer.C:
        return nil
    }
}

// TokenBucketProvider gates every upstream fetch on Bucket.
type TokenBucketProvider struct {
    P      provider.Provider
    Bucket *TokenBucket
}

func (t *TokenBucketProvider) Name() string { return t.P.Name() }

func (t *TokenBucketProvider) Fetch(ctx context.Context, assetIDs []string) ([]provider.RawQuote, error) {
    if t.Bucket != nil {
        if err := t.Bucket.Wait(ctx); err != nil {
            return nil, err
        }
    }
    return t.P.Fetch(ctx, assetIDs)
}
