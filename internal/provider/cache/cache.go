package cache

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "sync"
    "time"

    "github.com/shopspring/decimal"
    "github.com/sirupsen/logrus"
    "golang.org/x/sync/singleflight"

    "pricequote/internal/provider"
    "pricequote/internal/provider/ratelimit"
)

const (
    WarningCacheFallback = "Using cached price due to API error"
    WarningFallback      = "Using fallback price due to API error"
)

// Clock returns the current time.
type Clock func() time.Time

// Config describes the single asset a QuoteCache serves.
type Config struct {
    AssetID      string
    Currency     string
    TTL          time.Duration
    FetchTimeout time.Duration
    DefaultPrice decimal.Decimal
    // RetryBackoff holds off the upstream after consecutive failures.
    // The zero value re-attempts on every call past TTL.
    RetryBackoff ratelimit.Backoff
}

// QuoteCache holds at most one quote for one asset and refreshes it lazily
// from the upstream provider once it is TTL old. Quote never fails: upstream
// errors degrade to the last stored quote, or to DefaultPrice when nothing
// was ever fetched.
type QuoteCache struct {
    cfg Config
    p   provider.Provider
    now Clock
    log logrus.FieldLogger
    sf  singleflight.Group

    mu         sync.Mutex
    stored     *provider.Quote
    failures   int
    retryAfter time.Time
}

type Option func(*QuoteCache)

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
    return func(qc *QuoteCache) { qc.now = c }
}

func WithLogger(l logrus.FieldLogger) Option {
    return func(qc *QuoteCache) { qc.log = l }
}

func New(cfg Config, p provider.Provider, opts ...Option) *QuoteCache {
    if cfg.TTL <= 0 { cfg.TTL = 60 * time.Second }
    if cfg.FetchTimeout <= 0 { cfg.FetchTimeout = 5 * time.Second }
    if cfg.Currency == "" { cfg.Currency = "usd" }
    qc := &QuoteCache{cfg: cfg, p: p, now: time.Now, log: logrus.StandardLogger()}
    for _, opt := range opts {
        opt(qc)
    }
    qc.log = qc.log.WithFields(logrus.Fields{"asset": cfg.AssetID, "upstream": p.Name()})
    return qc
}

// Quote returns the freshest quote it can without ever failing.
func (c *QuoteCache) Quote(ctx context.Context) provider.Quote {
    now := c.now()

    c.mu.Lock()
    if q, ok := c.freshLocked(now); ok {
        c.mu.Unlock()
        return q
    }
    if now.Before(c.retryAfter) {
        q := c.degradedLocked()
        c.mu.Unlock()
        return q
    }
    c.mu.Unlock()

    // Callers arriving during an in-flight refresh share its result.
    v, _, _ := c.sf.Do(c.cfg.AssetID, func() (any, error) {
        c.mu.Lock()
        q, ok := c.freshLocked(c.now())
        c.mu.Unlock()
        if ok {
            return q, nil
        }
        return c.refresh(ctx), nil
    })
    // Every caller of a shared flight gets its own copy.
    q := v.(provider.Quote)
    return withSource(q, q.Source, q.Warning)
}

// freshLocked returns the stored quote tagged as a cache hit while it is
// younger than TTL. Exactly TTL old counts as expired.
func (c *QuoteCache) freshLocked(now time.Time) (provider.Quote, bool) {
    if c.stored == nil || now.Sub(*c.stored.FetchedAt) >= c.cfg.TTL {
        return provider.Quote{}, false
    }
    return withSource(*c.stored, provider.SourceCache, ""), true
}

func (c *QuoteCache) refresh(ctx context.Context) provider.Quote {
    started := c.now()
    fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FetchTimeout)
    defer cancel()

    raw, err := c.fetch(fctx)

    c.mu.Lock()
    defer c.mu.Unlock()
    if err != nil {
        c.failures++
        if d := c.cfg.RetryBackoff.Delay(c.failures); d > 0 {
            c.retryAfter = c.now().Add(d)
        }
        q := c.degradedLocked()
        c.log.WithError(err).WithFields(logrus.Fields{
            "source":   q.Source,
            "failures": c.failures,
        }).Warn("price fetch failed; serving degraded quote")
        return q
    }

    c.failures = 0
    c.retryAfter = time.Time{}
    fetchedAt := started
    q := provider.Quote{
        AssetID:   raw.AssetID,
        Price:     raw.Price,
        Change24h: RoundChange(raw.Change24h),
        Currency:  strings.ToUpper(c.cfg.Currency),
        Source:    provider.SourceLive,
        FetchedAt: &fetchedAt,
    }
    c.stored = &q
    return withSource(q, provider.SourceLive, "")
}

func (c *QuoteCache) fetch(ctx context.Context) (provider.RawQuote, error) {
    qs, err := c.p.Fetch(ctx, []string{c.cfg.AssetID})
    if err != nil {
        if errors.Is(err, provider.ErrUpstreamUnavailable) {
            return provider.RawQuote{}, err
        }
        return provider.RawQuote{}, fmt.Errorf("%w: %w", provider.ErrUpstreamUnavailable, err)
    }
    for _, q := range qs {
        if q.AssetID == c.cfg.AssetID && q.Price.IsPositive() {
            return q, nil
        }
    }
    return provider.RawQuote{}, fmt.Errorf("%w: no usable quote for %q", provider.ErrUpstreamUnavailable, c.cfg.AssetID)
}

// degradedLocked must be called with c.mu held.
func (c *QuoteCache) degradedLocked() provider.Quote {
    if c.stored != nil {
        return withSource(*c.stored, provider.SourceCacheFallback, WarningCacheFallback)
    }
    return provider.Quote{
        AssetID:  c.cfg.AssetID,
        Price:    c.cfg.DefaultPrice,
        Currency: strings.ToUpper(c.cfg.Currency),
        Source:   provider.SourceFallback,
        Warning:  WarningFallback,
    }
}

// withSource copies q, including its pointer fields, so callers can never
// reach the stored slot or each other's quotes.
func withSource(q provider.Quote, src provider.Source, warning string) provider.Quote {
    if q.FetchedAt != nil {
        t := *q.FetchedAt
        q.FetchedAt = &t
    }
    if q.Change24h != nil {
        d := *q.Change24h
        q.Change24h = &d
    }
    q.Source = src
    q.Warning = warning
    return q
}

// RoundChange rounds a 24h percentage change to 2 decimal places.
func RoundChange(d *decimal.Decimal) *decimal.Decimal {
    if d == nil {
        return nil
    }
    r := d.Round(2)
    return &r
}
