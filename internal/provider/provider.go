package provider

import (
    "context"
    "errors"
    "time"

    "github.com/shopspring/decimal"
)

// ErrUpstreamUnavailable covers every way an upstream fetch can fail:
// transport errors, non-2xx status, malformed payloads and timeouts.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// Source tags how a returned Quote was obtained.
type Source string

const (
    SourceLive          Source = "live"
    SourceCache         Source = "cache"
    SourceCacheFallback Source = "cache-fallback"
    SourceFallback      Source = "fallback"
)

// Degraded reports whether the quote was built from stale or default data.
func (s Source) Degraded() bool {
    return s == SourceCacheFallback || s == SourceFallback
}

// RawQuote is one asset's price as parsed from an upstream payload.
type RawQuote struct {
    AssetID   string
    Currency  string
    Price     decimal.Decimal
    Change24h *decimal.Decimal
}

// Quote is the normalized quote handed to callers.
// Price stays a decimal to avoid float rounding.
type Quote struct {
    AssetID   string
    Price     decimal.Decimal
    Change24h *decimal.Decimal
    Currency  string
    Source    Source
    FetchedAt *time.Time
    Warning   string
}

//go:generate mockgen -package=cache_test -destination=cache/mock_provider_test.go -source=provider.go Provider
//go:generate mockgen -package=main -destination=../../cmd/server/mock_provider_test.go -source=provider.go Provider
type Provider interface {
    Name() string
    Fetch(ctx context.Context, assetIDs []string) ([]RawQuote, error)
}
