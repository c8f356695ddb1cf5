package main

import (
    "compress/gzip"
    "context"
    "encoding/json"
    "io"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "sync"
    "syscall"
    "time"

    "github.com/sirupsen/logrus"
    "github.com/spf13/pflag"

    "marketprice/internal/config"
    "marketprice/internal/httpx"
    "marketprice/internal/lookup"
    "marketprice/internal/lookup/cache"
    "marketprice/internal/quote"
    "marketprice/internal/ratelimit"
    "marketprice/internal/resolver"
    "marketprice/internal/upstream/alphavantage"
)

type errorDetail struct {
    Detail string `json:"detail"`
}

type healthResponse struct {
    Status  string `json:"status"`
    Message string `json:"message"`
}

func main() {
    var configPath string
    pflag.StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "path to marketprice.yml (optional)")
    pflag.Parse()

    logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

    cfg, err := config.Load(configPath)
    if err != nil {
        logrus.Fatalf("config: %v", err)
    }
    if cfg.Server.Debug {
        logrus.SetLevel(logrus.DebugLevel)
    }
    if cfg.Upstream.APIKey == "" || cfg.Upstream.APIKey == "demo" {
        logrus.Warn("ALPHA_VANTAGE_API_KEY not set; using the 'demo' key, most symbols will fail")
    }

    timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
    httpClient := httpx.New(timeout)

    var fetcher quote.Fetcher = alphavantage.New(
        cfg.Upstream.APIKey,
        alphavantage.WithBaseURL(cfg.Upstream.BaseURL),
        alphavantage.WithQuoteCurrency(cfg.Upstream.QuoteCurrency),
        alphavantage.WithHTTPClient(httpClient),
    )
    if cfg.Upstream.MaxRequestsPerMinute > 0 {
        rate := float64(cfg.Upstream.MaxRequestsPerMinute) / 60.0
        burst := cfg.Upstream.Burst
        if burst <= 0 {
            burst = 1
        }
        fetcher = &ratelimit.Fetcher{F: fetcher, TB: ratelimit.NewTokenBucket(rate, burst)}
    }

    var svc lookup.Service = lookup.New(resolver.Default(), fetcher)
    if cfg.Cache.TTLSeconds > 0 {
        svc = cache.New(svc, time.Duration(cfg.Cache.TTLSeconds)*time.Second, cfg.Cache.MaxItems)
    }

    mux := newMux(svc, timeout)

    srv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           withJSONHeaders(withGzip(recoverPanic(logRequests(mux)))),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      20 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        logrus.Infof("server listening on :%s", cfg.Server.Port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            logrus.Fatalf("server: %v", err)
        }
    }()

    // graceful shutdown
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    logrus.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
}

func newMux(svc lookup.Service, timeout time.Duration) *http.ServeMux {
    mux := http.NewServeMux()
    mux.HandleFunc("GET /health", handleHealth)
    mux.HandleFunc("GET /price/{symbol}", handleGetPrice(svc, timeout))
    return mux
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
    writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Message: "Market Data API is running."})
}

func handleGetPrice(svc lookup.Service, timeout time.Duration) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        symbol := r.PathValue("symbol")
        if strings.TrimSpace(symbol) == "" {
            writeJSON(w, http.StatusNotFound, errorDetail{Detail: "missing symbol"})
            return
        }

        ctx := r.Context()
        if timeout > 0 {
            var cancel context.CancelFunc
            ctx, cancel = context.WithTimeout(ctx, timeout)
            defer cancel()
        }

        q, err := svc.Lookup(ctx, symbol)
        if err != nil {
            writeJSON(w, statusFor(err), errorDetail{Detail: err.Error()})
            return
        }
        writeJSON(w, http.StatusOK, q)
    }
}

// statusFor maps error kinds to HTTP statuses: a missing symbol is the
// caller's problem, everything else is ours.
func statusFor(err error) int {
    if quote.KindOf(err) == quote.KindNotFound {
        return http.StatusNotFound
    }
    return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
    w.WriteHeader(status)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    if err := enc.Encode(body); err != nil {
        logrus.Warnf("encode response: %v", err)
    }
}

func withJSONHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json; charset=utf-8")
        // Basic CORS for browser usage; adjust as needed.
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        // Prefer best speed to reduce CPU usage since payloads are JSON
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
        next.ServeHTTP(gw, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
    return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                logrus.Errorf("panic serving %s: %v", r.URL.Path, rec)
                writeJSON(w, http.StatusInternalServerError, errorDetail{Detail: "internal server error"})
            }
        }()
        next.ServeHTTP(w, r)
    })
}

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (s *statusRecorder) WriteHeader(code int) {
    s.status = code
    s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
        next.ServeHTTP(rec, r)
        logrus.WithFields(logrus.Fields{
            "method":   r.Method,
            "path":     r.URL.Path,
            "status":   rec.status,
            "duration": time.Since(start).Round(time.Millisecond).String(),
        }).Info("request")
    })
}
