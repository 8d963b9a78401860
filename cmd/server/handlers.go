package main

import (
    "context"
    "encoding/json"
    "net/http"
    "time"

    "github.com/sirupsen/logrus"

    "pricequote/internal/aggregate"
    "pricequote/internal/provider"
)

// isoMillis matches the millisecond ISO-8601 timestamps existing clients parse.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type quoter interface {
    Quote(ctx context.Context) provider.Quote
}

type api struct {
    quotes quoter
    board  provider.Provider
    assets []aggregate.Asset
    now    func() time.Time
    log    logrus.FieldLogger
    // boardTimeout bounds the uncached board fetch.
    boardTimeout time.Duration
}

type envelope struct {
    Status    string  `json:"status"`
    Data      any     `json:"data,omitempty"`
    Message   string  `json:"message,omitempty"`
    Path      string  `json:"path,omitempty"`
    FetchedAt *string `json:"fetched_at,omitempty"`
}

type quoteData struct {
    Price     json.Number     `json:"price"`
    Change24h *string         `json:"change_24h"`
    Currency  string          `json:"currency"`
    Source    provider.Source `json:"source"`
    FetchedAt *string         `json:"fetched_at,omitempty"`
    CachedAt  *string         `json:"cached_at,omitempty"`
    Warning   string          `json:"warning,omitempty"`
}

// boardEntry leaves change_24h out when the upstream had none.
type boardEntry struct {
    Price     json.Number `json:"price"`
    Change24h *string     `json:"change_24h,omitempty"`
}

type healthResponse struct {
    Status    string `json:"status"`
    Message   string `json:"message"`
    Timestamp string `json:"timestamp"`
}

func isoTime(t time.Time) *string {
    s := t.UTC().Format(isoMillis)
    return &s
}

// toQuoteData shapes q for the wire: live quotes report fetched_at, cached
// ones cached_at, and the default fallback neither.
func toQuoteData(q provider.Quote) quoteData {
    d := quoteData{
        Price:    json.Number(q.Price.String()),
        Currency: q.Currency,
        Source:   q.Source,
        Warning:  q.Warning,
    }
    if q.Change24h != nil {
        s := q.Change24h.StringFixed(2)
        d.Change24h = &s
    }
    if q.FetchedAt != nil {
        switch q.Source {
        case provider.SourceLive:
            d.FetchedAt = isoTime(*q.FetchedAt)
        case provider.SourceCache, provider.SourceCacheFallback:
            d.CachedAt = isoTime(*q.FetchedAt)
        }
    }
    return d
}

// handleQuote always answers 200; degradation shows only in source and warning.
func (a *api) handleQuote(w http.ResponseWriter, r *http.Request) {
    q := a.quotes.Quote(r.Context())
    if q.Source.Degraded() {
        a.log.WithFields(logrus.Fields{"source": q.Source, "request_id": requestIDFrom(r.Context())}).
            Debug("serving degraded quote")
    }
    writeJSON(w, http.StatusOK, envelope{Status: "success", Data: toQuoteData(q)})
}

func (a *api) handleBoard(w http.ResponseWriter, r *http.Request) {
    ctx := r.Context()
    if a.boardTimeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, a.boardTimeout)
        defer cancel()
    }
    b, err := aggregate.Fetch(ctx, a.board, a.assets, a.now)
    if err != nil {
        a.log.WithError(err).WithField("request_id", requestIDFrom(r.Context())).Error("fetch crypto prices")
        writeJSON(w, http.StatusInternalServerError, envelope{Status: "fail", Message: "Failed to fetch crypto prices"})
        return
    }
    data := make(map[string]boardEntry, len(b.Entries))
    for name, e := range b.Entries {
        data[name] = boardEntry{Price: json.Number(e.Price.String()), Change24h: e.Change24h}
    }
    writeJSON(w, http.StatusOK, envelope{Status: "success", Data: data, FetchedAt: isoTime(b.FetchedAt)})
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, healthResponse{
        Status:    "ok",
        Message:   "Server is running",
        Timestamp: *isoTime(a.now()),
    })
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "text/plain; charset=utf-8")
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write([]byte("ok"))
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusNotFound, envelope{Status: "error", Message: "Endpoint not found", Path: r.URL.Path})
}

// Every route is read-only.
func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Allow", "GET, OPTIONS")
    writeJSON(w, http.StatusMethodNotAllowed, envelope{Status: "error", Message: "Method not allowed", Path: r.URL.Path})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.WriteHeader(status)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(v)
}
