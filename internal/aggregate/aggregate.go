package aggregate

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/shopspring/decimal"

    "pricequote/internal/provider"
)

// Asset maps an upstream asset id to the key it is published under.
type Asset struct {
    ID   string `json:"id"`
    Name string `json:"name"`
}

// Entry is one asset's row on the board.
type Entry struct {
    Price     decimal.Decimal
    Change24h *string
}

// Board is a point-in-time multi-asset summary.
type Board struct {
    Entries   map[string]Entry
    FetchedAt time.Time
}

var ErrEmptyBoard = errors.New("no board assets configured")

// FormatChange renders a 24h change with exactly two decimals, or nil when absent.
func FormatChange(d *decimal.Decimal) *string {
    if d == nil {
        return nil
    }
    s := d.StringFixed(2)
    return &s
}

// Summarize keys quotes by their display name. Every asset must be present
// in quotes; a missing one is reported rather than silently dropped.
func Summarize(assets []Asset, quotes []provider.RawQuote, at time.Time) (Board, error) {
    byID := make(map[string]provider.RawQuote, len(quotes))
    for _, q := range quotes {
        byID[q.AssetID] = q
    }
    b := Board{Entries: make(map[string]Entry, len(assets)), FetchedAt: at.UTC()}
    for _, a := range assets {
        q, ok := byID[a.ID]
        if !ok {
            return Board{}, fmt.Errorf("%w: missing %q", provider.ErrUpstreamUnavailable, a.ID)
        }
        name := a.Name
        if name == "" { name = a.ID }
        b.Entries[name] = Entry{Price: q.Price, Change24h: FormatChange(q.Change24h)}
    }
    return b, nil
}

// Fetch pulls all assets in one upstream call and summarizes them.
// The board is never cached.
func Fetch(ctx context.Context, p provider.Provider, assets []Asset, now func() time.Time) (Board, error) {
    if len(assets) == 0 {
        return Board{}, ErrEmptyBoard
    }
    ids := make([]string, 0, len(assets))
    seen := make(map[string]struct{}, len(assets))
    for _, a := range assets {
        if _, dup := seen[a.ID]; dup { continue }
        seen[a.ID] = struct{}{}
        ids = append(ids, a.ID)
    }
    quotes, err := p.Fetch(ctx, ids)
    if err != nil {
        return Board{}, fmt.Errorf("fetch board: %w", err)
    }
    return Summarize(assets, quotes, now())
}
