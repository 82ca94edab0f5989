package telemetry

import (
	"context"
	"errors"
	"testing"
)

func TestInitTracingDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing("", "arcane", "test")
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	shutdown()
	if IsTracingEnabled() {
		t.Error("tracing should be disabled without an endpoint")
	}
}

func TestStartSpanNoop(t *testing.T) {
	ctx := WithCorrelation(context.Background(), "corr-1")
	ctx, span := StartSpan(ctx, TracerName, "dispatch", ChatAttrs("chan", "viewer")...)
	defer span.End()
	if ctx == nil {
		t.Fatal("nil context")
	}
	SetOutcome(span, "invoked", "ping")
	SetHTTPStatus(span, 503)
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	SetSpanSuccess(span)
}

func TestSetSampleRatioIgnoresOutOfRange(t *testing.T) {
	old := currentRatio()
	defer SetSampleRatio(old)

	SetSampleRatio(0.5)
	SetSampleRatio(2)
	SetSampleRatio(-1)
	if got := currentRatio(); got != 0.5 {
		t.Errorf("sampleRatio = %v, want 0.5", got)
	}
}
