package config

import (
    "os"
    "path/filepath"
    "testing"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
    t.Setenv("PORT", "")
    cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
    require.NoError(t, err)
    require.Equal(t, "4000", cfg.Server.Port, "storefront checkout calls localhost:4000")
    require.Equal(t, "ethereum", cfg.Quote.AssetID)
    require.Equal(t, 60, cfg.Quote.CacheTTLSeconds)
    require.True(t, decimal.NewFromInt(2000).Equal(cfg.Quote.DefaultPrice))
    require.Len(t, cfg.Board.Assets, 3)
    require.Equal(t, "polygon", cfg.Board.Assets[2].Name)
}

func TestLoad_FileThenEnv(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    require.NoError(t, os.WriteFile(path, []byte(`{
        "server": {"port": "9090"},
        "quote": {"asset_id": "bitcoin", "cache_ttl_sec": 30, "default_price": "50000.5"}
    }`), 0o600))

    t.Setenv("PORT", "")
    t.Setenv("QUOTE_CACHE_TTL_SEC", "45")
    t.Setenv("COINGECKO_API_KEY", "secret")
    t.Setenv("QUOTE_CURRENCY", "EUR")
    t.Setenv("BOARD_ASSETS", "ethereum, solana=sol")

    cfg, err := Load(path)
    require.NoError(t, err)
    require.Equal(t, "9090", cfg.Server.Port)
    require.Equal(t, "bitcoin", cfg.Quote.AssetID)
    require.Equal(t, 45, cfg.Quote.CacheTTLSeconds)
    require.Equal(t, "eur", cfg.Quote.Currency)
    require.Equal(t, "secret", cfg.CoinGecko.APIKey)
    require.Equal(t, "50000.5", cfg.Quote.DefaultPrice.String())
    require.Equal(t, []BoardAsset{{ID: "ethereum", Name: "ethereum"}, {ID: "solana", Name: "sol"}}, cfg.Board.Assets)
}

func TestLoad_BadInputs(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
    _, err := Load(path)
    require.ErrorContains(t, err, "parse config")

    t.Setenv("QUOTE_DEFAULT_PRICE", "abc")
    _, err = Load("")
    require.ErrorContains(t, err, "QUOTE_DEFAULT_PRICE")
}

func TestLoad_BadIntegerEnv(t *testing.T) {
    missing := filepath.Join(t.TempDir(), "missing.json")
    tests := []struct {
        key, val, want string
    }{
        {"QUOTE_CACHE_TTL_SEC", "abc", "QUOTE_CACHE_TTL_SEC"},
        {"QUOTE_CACHE_TTL_SEC", "0", "must be >= 1"},
        {"COINGECKO_MAX_RPM", "-1", "must be >= 0"},
        {"REQUEST_TIMEOUT_SEC", "10s", "REQUEST_TIMEOUT_SEC"},
    }
    for _, tt := range tests {
        t.Run(tt.key+"="+tt.val, func(t *testing.T) {
            t.Setenv(tt.key, tt.val)
            _, err := Load(missing)
            require.ErrorContains(t, err, tt.want)
        })
    }

    t.Setenv("COINGECKO_MAX_RPM", "0")
    t.Setenv("QUOTE_RETRY_BACKOFF_SEC", " 5 ")
    cfg, err := Load(missing)
    require.NoError(t, err)
    require.Zero(t, cfg.CoinGecko.MaxRequestsPerMinute)
    require.Equal(t, 5, cfg.Quote.RetryBackoffSec)
}

func TestValidate(t *testing.T) {
    cfg := Default()
    require.NoError(t, cfg.Validate())

    cfg.Quote.AssetID = " "
    cfg.Quote.CacheTTLSeconds = 0
    cfg.Quote.DefaultPrice = decimal.Zero
    cfg.Board.Assets = append(cfg.Board.Assets, BoardAsset{})
    err := cfg.Validate()
    require.ErrorContains(t, err, "quote.asset_id is empty")
    require.ErrorContains(t, err, "cache_ttl_sec must be positive")
    require.ErrorContains(t, err, "default_price must be positive")
    require.ErrorContains(t, err, "board.assets[3].id is empty")
}
