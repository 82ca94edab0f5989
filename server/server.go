// Package server exposes the bot's HTTP surface: health, readiness, status,
// metrics and the Twitch OAuth flow that stores the bot's user token.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haxgun/Arcane/telemetry"
)

const correlationHeader = "X-Correlation-ID"

// NewMux returns the root handler. ctx bounds the rate limiter's cleanup loop.
func NewMux(ctx context.Context, opts Options) http.Handler {
	h := NewHandlers(opts)
	limiter := newIPRateLimiter(ctx, opts.limiterConfig())
	guarded := func(fn http.HandlerFunc) http.Handler { return rateLimitMiddleware(fn, limiter) }

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", h.HandleHealthz)
	mux.HandleFunc("GET /readyz", h.HandleReadyz)
	mux.HandleFunc("GET /status", h.HandleStatus)
	if opts.OAuth != nil {
		mux.Handle("GET /auth/twitch/start", adminAuth(guarded(h.HandleTwitchOAuthStart), opts.adminCreds()))
		mux.Handle("GET /auth/twitch/callback", guarded(h.HandleTwitchOAuthCallback))
	}
	return instrument(mux)
}

// instrument tags every request with a correlation id (reusing the caller's)
// and a span carrying the response status.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get(correlationHeader)
		if corr == "" {
			corr = uuid.NewString()
		}
		w.Header().Set(correlationHeader, corr)

		ctx := telemetry.WithCorrelation(r.Context(), corr)
		ctx, span := telemetry.StartSpan(ctx, telemetry.TracerName, r.Method+" "+r.URL.Path, telemetry.HTTPAttrs(r.Method, r.URL.Path)...)
		defer span.End()
		telemetry.LoggerWithCorr(ctx).Debug("http request", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		telemetry.SetHTTPStatus(span, rec.statusCode)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Start serves addr until ctx ends, then shuts down with a five second grace
// period. An empty addr disables HTTP.
func Start(ctx context.Context, opts Options, addr string) error {
	if addr == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(ctx, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       time.Minute,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr), slog.String("component", "http"))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
