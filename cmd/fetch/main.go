package main

import (
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/sirupsen/logrus"

    "pricequote/internal/aggregate"
    "pricequote/internal/config"
    "pricequote/internal/httpx"
    "pricequote/internal/logx"
    "pricequote/internal/provider"
    "pricequote/internal/provider/cache"
    "pricequote/internal/provider/coingecko"
    "pricequote/internal/provider/coingeckoadapter"
)

// fetch queries the upstream once and prints the result, bypassing the
// server. With -quote it goes through a fresh quote cache instead, which
// shows the degraded answer the server would give when the upstream is down.
func main() {
    var assetsCSV string
    var currency string
    var timeout int
    var configPath string
    var quoteMode bool
    var verbose bool

    flag.StringVar(&assetsCSV, "assets", getenv("ASSETS", ""), "comma-separated CoinGecko ids (default: board assets from config)")
    flag.StringVar(&currency, "currency", getenv("QUOTE_CURRENCY", ""), "quote currency (default: from config)")
    flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 10), "request timeout seconds")
    flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
    flag.BoolVar(&quoteMode, "quote", false, "resolve the configured quote asset through the cache with fallback")
    flag.BoolVar(&verbose, "v", false, "debug logging")
    flag.Parse()

    cfg, err := config.Load(configPath)
    if err != nil { logrus.Fatalf("config: %v", err) }
    if currency != "" { cfg.Quote.Currency = strings.ToLower(currency) }
    level := cfg.Log.Level
    if verbose { level = "debug" }
    log := logx.New(level, cfg.Log.Format, os.Stderr)

    httpClient := httpx.New(time.Duration(timeout) * time.Second)
    cg, err := coingecko.NewClient(cfg.CoinGecko.APIKey, coingecko.WithHTTPClient(httpClient), coingecko.WithBaseURL(cfg.CoinGecko.BaseURL))
    if err != nil { log.Fatalf("coingecko client: %v", err) }
    var p provider.Provider = coingeckoadapter.New(coingeckoadapter.Config{Currency: cfg.Quote.Currency}, cg)

    ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
    defer cancel()

    if quoteMode {
        qc := cache.New(cache.Config{
            AssetID:      cfg.Quote.AssetID,
            Currency:     cfg.Quote.Currency,
            TTL:          time.Duration(cfg.Quote.CacheTTLSeconds) * time.Second,
            FetchTimeout: time.Duration(timeout) * time.Second,
            DefaultPrice: cfg.Quote.DefaultPrice,
        }, p, cache.WithLogger(log))
        q := qc.Quote(ctx)
        out := map[string]any{
            "asset":  q.AssetID,
            "price":  json.Number(q.Price.String()),
            "source": q.Source,
        }
        if c := aggregate.FormatChange(q.Change24h); c != nil { out["change_24h"] = *c }
        if q.Warning != "" { out["warning"] = q.Warning }
        printJSON(out)
        return
    }

    var assets []aggregate.Asset
    if assetsCSV != "" {
        for _, id := range splitCSV(assetsCSV) {
            assets = append(assets, aggregate.Asset{ID: id, Name: id})
        }
    } else {
        for _, a := range cfg.Board.Assets {
            assets = append(assets, aggregate.Asset{ID: a.ID, Name: a.Name})
        }
    }
    if len(assets) == 0 { log.Fatal("no assets provided") }

    b, err := aggregate.Fetch(ctx, p, assets, time.Now)
    if err != nil { log.Fatalf("%s: %v", p.Name(), err) }
    log.Debugf("%s: %d quotes", p.Name(), len(b.Entries))

    out := make(map[string]any, len(b.Entries))
    for name, e := range b.Entries {
        out[name] = map[string]any{"price": json.Number(e.Price.String()), "change_24h": e.Change24h}
    }
    printJSON(map[string]any{"data": out, "fetched_at": b.FetchedAt.Format(time.RFC3339)})
}

func printJSON(v any) {
    b, _ := json.MarshalIndent(v, "", "  ")
    fmt.Println(string(b))
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }
func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        var x int
        _, _ = fmt.Sscanf(v, "%d", &x)
        if x != 0 { return x }
    }
    return def
}
