package main

import (
    "context"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5/middleware"
    "github.com/google/uuid"
    "github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

func requestIDFrom(ctx context.Context) string {
    id, _ := ctx.Value(requestIDKey).(string)
    return id
}

// withRequestID propagates an inbound X-Request-ID or mints a new one.
func withRequestID(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        id := r.Header.Get(requestIDHeader)
        if id == "" || len(id) > 128 {
            id = uuid.NewString()
        }
        w.Header().Set(requestIDHeader, id)
        next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
    })
}

func withJSONHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json; charset=utf-8")
        // The storefront frontend is served from another origin.
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Authorization, Origin, X-Requested-With, Content-Type, Accept")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withAccessLog logs one line per request.
func withAccessLog(log logrus.FieldLogger) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            start := time.Now()
            ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
            next.ServeHTTP(ww, r)
            log.WithFields(logrus.Fields{
                "method":     r.Method,
                "path":       r.URL.Path,
                "status":     ww.Status(),
                "bytes":      ww.BytesWritten(),
                "duration":   time.Since(start).String(),
                "request_id": requestIDFrom(r.Context()),
            }).Info("request")
        })
    }
}

// recoverPanic protects handlers from panics.
func recoverPanic(log logrus.FieldLogger) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            defer func() {
                if rec := recover(); rec != nil {
                    if rec == http.ErrAbortHandler {
                        panic(rec)
                    }
                    log.WithField("panic", rec).WithField("request_id", requestIDFrom(r.Context())).Error("handler panic")
                    writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: "internal server error"})
                }
            }()
            next.ServeHTTP(w, r)
        })
    }
}
