package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "strconv"
    "strings"

    "github.com/joho/godotenv"
    "github.com/shopspring/decimal"
)

type Server struct {
    Port              string `json:"port"`
    RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type CoinGecko struct {
    BaseURL               string `json:"base_url"`
    APIKey                string `json:"api_key"`
    RequestTimeoutSec     int    `json:"request_timeout_sec"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
}

type Quote struct {
    AssetID            string          `json:"asset_id"`
    Currency           string          `json:"currency"`
    CacheTTLSeconds    int             `json:"cache_ttl_sec"`
    FetchTimeoutSec    int             `json:"fetch_timeout_sec"`
    DefaultPrice       decimal.Decimal `json:"default_price"`
    RetryBackoffSec    int             `json:"retry_backoff_sec"`
    RetryBackoffMaxSec int             `json:"retry_backoff_max_sec"`
}

type BoardAsset struct {
    ID   string `json:"id"`
    Name string `json:"name"`
}

type Board struct {
    Assets []BoardAsset `json:"assets"`
}

type Log struct {
    Level  string `json:"level"`
    Format string `json:"format"` // text | json
}

type Config struct {
    Server    Server    `json:"server"`
    CoinGecko CoinGecko `json:"coingecko"`
    Quote     Quote     `json:"quote"`
    Board     Board     `json:"board"`
    Log       Log       `json:"log"`
}

func Default() Config {
    return Config{
        Server: Server{Port: "4000", RequestTimeoutSec: 15},
        CoinGecko: CoinGecko{
            BaseURL:              "https://api.coingecko.com/api/v3",
            RequestTimeoutSec:    5,
            MaxRequestsPerMinute: 30,
            Burst:                5,
        },
        Quote: Quote{
            AssetID:            "ethereum",
            Currency:           "usd",
            CacheTTLSeconds:    60,
            FetchTimeoutSec:    5,
            DefaultPrice:       decimal.NewFromInt(2000),
            RetryBackoffMaxSec: 60,
        },
        Board: Board{Assets: []BoardAsset{
            {ID: "ethereum", Name: "ethereum"},
            {ID: "bitcoin", Name: "bitcoin"},
            {ID: "matic-network", Name: "polygon"},
        }},
        Log: Log{Level: "info", Format: "text"},
    }
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. A .env file in the working directory is loaded into the
// environment first, and environment variables then override select fields.
func Load(path string) (Config, error) {
    if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
        return Default(), fmt.Errorf("load .env: %w", err)
    }

    cfg := Default()
    if path == "" {
        if _, err := os.Stat("config.json"); err == nil {
            path = "config.json"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := json.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    if err := applyEnv(&cfg); err != nil {
        return cfg, err
    }
    if err := cfg.Validate(); err != nil {
        return cfg, err
    }
    return cfg, nil
}

// Validate rejects settings the quote cache cannot serve with.
func (c Config) Validate() error {
    var errs []error
    if strings.TrimSpace(c.Quote.AssetID) == "" {
        errs = append(errs, errors.New("quote.asset_id is empty"))
    }
    if strings.TrimSpace(c.Quote.Currency) == "" {
        errs = append(errs, errors.New("quote.currency is empty"))
    }
    if c.Quote.CacheTTLSeconds <= 0 {
        errs = append(errs, fmt.Errorf("quote.cache_ttl_sec must be positive, got %d", c.Quote.CacheTTLSeconds))
    }
    if !c.Quote.DefaultPrice.IsPositive() {
        errs = append(errs, fmt.Errorf("quote.default_price must be positive, got %s", c.Quote.DefaultPrice))
    }
    for i, a := range c.Board.Assets {
        if strings.TrimSpace(a.ID) == "" {
            errs = append(errs, fmt.Errorf("board.assets[%d].id is empty", i))
        }
    }
    if len(errs) > 0 {
        return fmt.Errorf("invalid config: %w", errors.Join(errs...))
    }
    return nil
}

func applyEnv(cfg *Config) error {
    var errs []error
    intVar := func(key string, dst *int, floor int) {
        v := os.Getenv(key)
        if v == "" { return }
        x, err := strconv.Atoi(strings.TrimSpace(v))
        if err != nil {
            errs = append(errs, fmt.Errorf("%s: %w", key, err))
            return
        }
        if x < floor {
            errs = append(errs, fmt.Errorf("%s: must be >= %d, got %d", key, floor, x))
            return
        }
        *dst = x
    }

    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    intVar("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec, 1)

    if v := os.Getenv("COINGECKO_BASE_URL"); v != "" { cfg.CoinGecko.BaseURL = v }
    if v := os.Getenv("COINGECKO_API_KEY"); v != "" { cfg.CoinGecko.APIKey = v }
    intVar("COINGECKO_TIMEOUT_SEC", &cfg.CoinGecko.RequestTimeoutSec, 1)
    intVar("COINGECKO_MAX_RPM", &cfg.CoinGecko.MaxRequestsPerMinute, 0)
    intVar("COINGECKO_MIN_INTERVAL_SEC", &cfg.CoinGecko.MinRequestIntervalSec, 0)
    intVar("COINGECKO_BURST", &cfg.CoinGecko.Burst, 1)

    if v := os.Getenv("QUOTE_ASSET_ID"); v != "" { cfg.Quote.AssetID = v }
    if v := os.Getenv("QUOTE_CURRENCY"); v != "" { cfg.Quote.Currency = strings.ToLower(v) }
    intVar("QUOTE_CACHE_TTL_SEC", &cfg.Quote.CacheTTLSeconds, 1)
    intVar("QUOTE_FETCH_TIMEOUT_SEC", &cfg.Quote.FetchTimeoutSec, 1)
    if v := os.Getenv("QUOTE_DEFAULT_PRICE"); v != "" {
        d, err := decimal.NewFromString(v)
        if err != nil {
            errs = append(errs, fmt.Errorf("QUOTE_DEFAULT_PRICE: %w", err))
        } else {
            cfg.Quote.DefaultPrice = d
        }
    }
    intVar("QUOTE_RETRY_BACKOFF_SEC", &cfg.Quote.RetryBackoffSec, 0)
    intVar("QUOTE_RETRY_BACKOFF_MAX_SEC", &cfg.Quote.RetryBackoffMaxSec, 0)

    if v := os.Getenv("BOARD_ASSETS"); v != "" { cfg.Board.Assets = parseAssets(v) }

    if v := os.Getenv("LOG_LEVEL"); v != "" { cfg.Log.Level = v }
    if v := os.Getenv("LOG_FORMAT"); v != "" { cfg.Log.Format = strings.ToLower(v) }
    return errors.Join(errs...)
}

// parseAssets reads "id[=name],id[=name]" pairs; the name defaults to the id.
func parseAssets(s string) []BoardAsset {
    var out []BoardAsset
    for _, part := range splitCSV(s) {
        id, name, _ := strings.Cut(part, "=")
        id, name = strings.TrimSpace(id), strings.TrimSpace(name)
        if name == "" { name = id }
        out = append(out, BoardAsset{ID: id, Name: name})
    }
    return out
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
