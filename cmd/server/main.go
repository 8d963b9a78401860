package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/sirupsen/logrus"

    "pricequote/internal/aggregate"
    "pricequote/internal/config"
    "pricequote/internal/httpx"
    "pricequote/internal/logx"
    "pricequote/internal/provider"
    "pricequote/internal/provider/cache"
    "pricequote/internal/provider/coingecko"
    "pricequote/internal/provider/coingeckoadapter"
    "pricequote/internal/provider/ratelimit"
)

func main() {
    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    if err != nil { logrus.Fatalf("config: %v", err) }
    log := logx.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

    httpClient := httpx.New(time.Duration(cfg.CoinGecko.RequestTimeoutSec) * time.Second)
    cg, err := coingecko.NewClient(
        cfg.CoinGecko.APIKey,
        coingecko.WithHTTPClient(httpClient),
        coingecko.WithBaseURL(cfg.CoinGecko.BaseURL),
    )
    if err != nil { log.Fatalf("coingecko client: %v", err) }

    // Quote cache and board share one gate so together they respect the upstream limit.
    var upstream provider.Provider = coingeckoadapter.New(coingeckoadapter.Config{Currency: cfg.Quote.Currency}, cg)
    upstream = ratelimit.Wrap(upstream,
        cfg.CoinGecko.MaxRequestsPerMinute,
        cfg.CoinGecko.Burst,
        time.Duration(cfg.CoinGecko.MinRequestIntervalSec)*time.Second,
    )

    quotes := cache.New(cache.Config{
        AssetID:      cfg.Quote.AssetID,
        Currency:     cfg.Quote.Currency,
        TTL:          time.Duration(cfg.Quote.CacheTTLSeconds) * time.Second,
        FetchTimeout: time.Duration(cfg.Quote.FetchTimeoutSec) * time.Second,
        DefaultPrice: cfg.Quote.DefaultPrice,
        RetryBackoff: ratelimit.Backoff{
            Base: time.Duration(cfg.Quote.RetryBackoffSec) * time.Second,
            Max:  time.Duration(cfg.Quote.RetryBackoffMaxSec) * time.Second,
        },
    }, upstream, cache.WithLogger(log))

    assets := make([]aggregate.Asset, 0, len(cfg.Board.Assets))
    for _, a := range cfg.Board.Assets {
        assets = append(assets, aggregate.Asset{ID: a.ID, Name: a.Name})
    }

    a := &api{
        quotes:       quotes,
        board:        upstream,
        assets:       assets,
        now:          time.Now,
        log:          log,
        boardTimeout: time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
    }

    srv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           newRouter(a, log),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      20 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.WithFields(logrus.Fields{"port": cfg.Server.Port, "asset": cfg.Quote.AssetID}).Info("server listening")
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Fatalf("server: %v", err)
        }
    }()

    // graceful shutdown
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        log.WithError(err).Warn("shutdown")
    }
}

func newRouter(a *api, log logrus.FieldLogger) http.Handler {
    r := chi.NewRouter()
    r.Use(
        withRequestID,
        withAccessLog(log),
        recoverPanic(log),
        withJSONHeaders,
        middleware.Compress(5, "application/json"),
    )
    r.NotFound(handleNotFound)
    r.MethodNotAllowed(handleMethodNotAllowed)

    r.Get("/healthz", handleHealthz)
    r.Get("/health", a.handleHealth)
    r.Route("/api/crypto", func(r chi.Router) {
        r.Get("/eth-price", a.handleQuote)
        r.Get("/quote", a.handleQuote)
        r.Get("/prices", a.handleBoard)
    })
    return r
}
