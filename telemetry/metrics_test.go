package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMetricsInitialized(t *testing.T) {
	Init()
	Init()

	if EventsReceived == nil || CommandsDispatched == nil || MessagesSent == nil {
		t.Fatal("counter vectors not initialized")
	}
	if DispatchDuration == nil {
		t.Error("DispatchDuration histogram not initialized")
	}
	if ConnectedGauge == nil || ChannelsGauge == nil {
		t.Error("gauges not initialized")
	}
}

func TestObserveDispatchCounts(t *testing.T) {
	Init()

	c := CommandsDispatched.WithLabelValues("suppressed", "cooldown")
	before := counterValue(t, c)
	ObserveDispatch("suppressed", "cooldown", 3*time.Millisecond)
	ObserveDispatch("suppressed", "cooldown", time.Millisecond)
	if got := counterValue(t, c) - before; got != 2 {
		t.Errorf("suppressed/cooldown delta = %v, want 2", got)
	}
}

func TestCountSent(t *testing.T) {
	Init()

	sent := MessagesSent.WithLabelValues("reply")
	beforeSent, beforeFail := counterValue(t, sent), counterValue(t, SendFailures)
	CountSent("reply", nil)
	CountSent("reply", context.Canceled)
	if got := counterValue(t, sent) - beforeSent; got != 1 {
		t.Errorf("reply delta = %v, want 1", got)
	}
	if got := counterValue(t, SendFailures) - beforeFail; got != 1 {
		t.Errorf("failure delta = %v, want 1", got)
	}
}

func TestConnectedGauge(t *testing.T) {
	Init()

	for _, up := range []bool{true, false} {
		SetConnected(up)
		m := &dto.Metric{}
		if err := ConnectedGauge.Write(m); err != nil {
			t.Fatalf("write gauge: %v", err)
		}
		want := 0.0
		if up {
			want = 1
		}
		if m.GetGauge().GetValue() != want {
			t.Errorf("gauge = %v, want %v", m.GetGauge().GetValue(), want)
		}
	}
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})

	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 10ms", duration)
	}
	metric := &dto.Metric{}
	if err := testHistogram.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.GetHistogram().GetSampleCount() == 0 {
		t.Error("TimeFunc did not record observation in histogram")
	}
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if GetCorrelation(ctx) != "" {
		t.Error("expected no correlation id")
	}
	ctx = WithCorrelation(ctx, "abc")
	if got := GetCorrelation(ctx); got != "abc" {
		t.Errorf("GetCorrelation = %q", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("nil logger")
	}
}
