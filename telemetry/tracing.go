package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is used for spans started by the bot runtime.
const TracerName = "github.com/haxgun/Arcane"

const exportTimeout = 5 * time.Second

var (
	tracing     atomic.Bool
	ratioMu     sync.Mutex
	sampleRatio = 0.1
)

// SetSampleRatio sets the fraction of root traces kept; values outside
// [0, 1] are ignored. It only affects a later InitTracing.
func SetSampleRatio(r float64) {
	if r < 0 || r > 1 {
		return
	}
	ratioMu.Lock()
	sampleRatio = r
	ratioMu.Unlock()
}

func currentRatio() float64 {
	ratioMu.Lock()
	defer ratioMu.Unlock()
	return sampleRatio
}

// InitTracing installs a global tracer provider exporting over OTLP/gRPC to
// endpoint. With no endpoint it leaves the no-op provider in place. The
// returned func flushes pending spans.
func InitTracing(endpoint, serviceName, serviceVersion string) (func(), error) {
	if endpoint == "" {
		slog.Info("tracing disabled: OTEL_EXPORTER_OTLP_ENDPOINT not set", slog.String("component", "tracing"))
		return func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithInsecure(), otlptracegrpc.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(currentRatio()))),
	)
	otel.SetTracerProvider(tp)
	tracing.Store(true)
	slog.Info("tracing initialized", slog.String("component", "tracing"),
		slog.String("endpoint", endpoint), slog.Float64("sample_ratio", currentRatio()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("tracer provider shutdown failed", slog.Any("err", err))
		}
		tracing.Store(false)
	}, nil
}

// IsTracingEnabled reports whether spans are exported.
func IsTracingEnabled() bool { return tracing.Load() }

// StartSpan starts a span tagged with the context's correlation id.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if corr := GetCorrelation(ctx); corr != "" {
		attrs = append(attrs, attribute.String("correlation_id", corr))
	}
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// ChatAttrs describe an incoming chat message.
func ChatAttrs(channel, author string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("chat.channel", channel), attribute.String("chat.author", author)}
}

// SetOutcome records a dispatch result on span.
func SetOutcome(span trace.Span, status, command string) {
	span.SetAttributes(attribute.String("dispatch.status", status), attribute.String("dispatch.command", command))
}

// HTTPAttrs describe an incoming request.
func HTTPAttrs(method, route string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("http.method", method), attribute.String("http.route", route)}
}

// SetHTTPStatus records the response code; 4xx and 5xx mark the span failed.
func SetHTTPStatus(span trace.Span, code int) {
	span.SetAttributes(attribute.Int("http.status_code", code))
	if code >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", code))
	}
}

// RecordError marks span failed with err; nil is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanSuccess(span trace.Span) { span.SetStatus(codes.Ok, "") }
