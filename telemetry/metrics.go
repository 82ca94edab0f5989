// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	EventsReceived     *prometheus.CounterVec // kind
	DecodeErrors       prometheus.Counter
	CommandsDispatched *prometheus.CounterVec // status, reason
	MessagesSent       *prometheus.CounterVec // kind
	SendFailures       prometheus.Counter
	Reconnects         prometheus.Counter
	TokenRefreshes     *prometheus.CounterVec // result

	// Histograms (seconds)
	DispatchDuration prometheus.Observer

	// Gauges
	ConnectedGauge prometheus.Gauge // 1=connected,0=disconnected
	ChannelsGauge  prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{Name: "arcane_events_received_total", Help: "Decoded chat events by kind"}, []string{"kind"})
		DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "arcane_decode_errors_total", Help: "Lines dropped because they could not be decoded"})
		CommandsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{Name: "arcane_commands_dispatched_total", Help: "Dispatch outcomes by status and reason"}, []string{"status", "reason"})
		MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{Name: "arcane_messages_sent_total", Help: "Lines written to chat by kind"}, []string{"kind"})
		SendFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "arcane_send_failures_total", Help: "Lines that could not be written"})
		Reconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "arcane_reconnects_total", Help: "Chat sessions restarted after a failure"})
		TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{Name: "arcane_token_refreshes_total", Help: "User token refresh attempts by result"}, []string{"result"})
		DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "arcane_dispatch_duration_seconds",
			Help:    "Time from receiving a chat message to the end of its handler",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		})
		ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "arcane_connected", Help: "Chat connection up=1 down=0"})
		ChannelsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "arcane_channels_joined", Help: "Channels currently joined"})
	})
}

// SetConnected sets the connection gauge.
func SetConnected(up bool) {
	if ConnectedGauge == nil {
		return
	}
	if up {
		ConnectedGauge.Set(1)
	} else {
		ConnectedGauge.Set(0)
	}
}

func SetChannels(n int) {
	if ChannelsGauge != nil {
		ChannelsGauge.Set(float64(n))
	}
}

// CountEvent records one decoded event.
func CountEvent(kind string) {
	if EventsReceived != nil {
		EventsReceived.WithLabelValues(kind).Inc()
	}
}

func CountDecodeError() {
	if DecodeErrors != nil {
		DecodeErrors.Inc()
	}
}

// ObserveDispatch records the outcome and duration of one dispatch.
func ObserveDispatch(status, reason string, d time.Duration) {
	if CommandsDispatched != nil {
		CommandsDispatched.WithLabelValues(status, reason).Inc()
	}
	if DispatchDuration != nil {
		DispatchDuration.Observe(d.Seconds())
	}
}

// CountSent records a written line, or a failure when err is non-nil.
func CountSent(kind string, err error) {
	if err != nil {
		if SendFailures != nil {
			SendFailures.Inc()
		}
		return
	}
	if MessagesSent != nil {
		MessagesSent.WithLabelValues(kind).Inc()
	}
}

func CountReconnect() {
	if Reconnects != nil {
		Reconnects.Inc()
	}
}

func CountTokenRefresh(ok bool) {
	if TokenRefreshes == nil {
		return
	}
	if ok {
		TokenRefreshes.WithLabelValues("success").Inc()
	} else {
		TokenRefreshes.WithLabelValues("failure").Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
