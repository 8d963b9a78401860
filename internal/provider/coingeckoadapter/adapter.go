package coingeckoadapter

import (
    "context"
    "fmt"
    "strings"

    "pricequote/internal/provider"
    "pricequote/internal/provider/coingecko"
)

type Config struct {
    Name     string // display name, default: CoinGecko
    Currency string // vs_currency, e.g. usd
}

// SimplePricer is the slice of the CoinGecko client the adapter needs.
type SimplePricer interface {
    GetSimplePrice(ctx context.Context, ids []string, vsCurrencies []string, include24hChange bool, opts ...coingecko.ClientOption) (coingecko.SimplePrice, error)
}

// Adapter exposes the CoinGecko simple-price endpoint as a provider.Provider.
// Every failure it returns wraps provider.ErrUpstreamUnavailable.
type Adapter struct {
    cfg    Config
    client SimplePricer
}

func New(cfg Config, client SimplePricer) *Adapter {
    if cfg.Name == "" { cfg.Name = "CoinGecko" }
    if cfg.Currency == "" { cfg.Currency = "usd" }
    cfg.Currency = strings.ToLower(cfg.Currency)
    return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// Fetch returns one RawQuote per requested asset, in request order.
// A missing or non-positive price for any asset fails the whole batch.
func (a *Adapter) Fetch(ctx context.Context, assetIDs []string) ([]provider.RawQuote, error) {
    prices, err := a.client.GetSimplePrice(ctx, assetIDs, []string{a.cfg.Currency}, true)
    if err != nil {
        return nil, fmt.Errorf("%w: %s: %w", provider.ErrUpstreamUnavailable, a.cfg.Name, err)
    }

    out := make([]provider.RawQuote, 0, len(assetIDs))
    for _, id := range assetIDs {
        price, ok := prices.Price(id, a.cfg.Currency)
        if !ok {
            return nil, fmt.Errorf("%w: %s: no %s price for %q", provider.ErrUpstreamUnavailable, a.cfg.Name, a.cfg.Currency, id)
        }
        if !price.IsPositive() {
            return nil, fmt.Errorf("%w: %s: non-positive price %s for %q", provider.ErrUpstreamUnavailable, a.cfg.Name, price, id)
        }
        rq := provider.RawQuote{AssetID: id, Currency: a.cfg.Currency, Price: price}
        if change, ok := prices.Change24h(id, a.cfg.Currency); ok {
            rq.Change24h = &change
        }
        out = append(out, rq)
    }
    return out, nil
}
