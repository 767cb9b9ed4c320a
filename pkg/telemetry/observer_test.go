package telemetry_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/germanamz/mystic/pkg/telemetry"
	"github.com/germanamz/mystic/pkg/tools/toolbox"
)

// newTestMeter creates a ManualReader-backed MeterProvider for tests.
func newTestMeter() (*metric.ManualReader, *metric.MeterProvider) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return reader, mp
}

// collectMetrics reads all metrics from the reader.
func collectMetrics(t *testing.T, reader *metric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

// findMetric searches for a metric by name in the collected data.
func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s type = %T, want Sum[int64]", m.Name, m.Data)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

type echoArgs struct {
	Text string `json:"text"`
}

func echo(_ context.Context, in echoArgs) (string, error) {
	return in.Text, nil
}

func TestToolObserverRecordsMetrics(t *testing.T) {
	reader, mp := newTestMeter()
	tracer := noop.NewTracerProvider().Tracer("test-tool-observer")

	observer, err := telemetry.NewToolObserver(mp.Meter("test-tool-observer"), tracer)
	require.NoError(t, err)

	tb := toolbox.New(toolbox.WithObserver(observer))
	toolbox.MustRegister(tb, echo)
	toolbox.MustRegister(tb, func(context.Context, struct{}) (string, error) {
		return "", errors.New("boom")
	}, toolbox.WithName("fail"))

	tb.Dispatch(context.Background(), "echo", json.RawMessage(`{"text":"hi"}`))
	tb.Dispatch(context.Background(), "echo", json.RawMessage(`{"text":1}`))
	tb.Dispatch(context.Background(), "fail", nil)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "mystic.tool.registrations")))
	assert.Equal(t, int64(3), sumOf(t, findMetric(rm, "mystic.tool.invocations")))

	latency := findMetric(rm, "mystic.tool.latency")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "latency type = %T, want Histogram[float64]", latency.Data)

	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestToolObserverRecordsSpans(t *testing.T) {
	_, mp := newTestMeter()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	observer, err := telemetry.NewToolObserver(mp.Meter("test"), tp.Tracer("test"))
	require.NoError(t, err)

	tb := toolbox.New(toolbox.WithObserver(observer))
	toolbox.MustRegister(tb, echo)

	tb.Dispatch(context.Background(), "echo", json.RawMessage(`{"text":"hi"}`))
	tb.Dispatch(context.Background(), "echo", json.RawMessage(`{}`))

	spans := sr.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "tool.invoke", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	var outcome string
	for _, kv := range spans[1].Attributes() {
		if kv.Key == "outcome" {
			outcome = kv.Value.AsString()
		}
	}
	assert.Equal(t, "invalid_arguments", outcome)
}

func TestToolObserverWithoutTracer(t *testing.T) {
	reader, mp := newTestMeter()

	observer, err := telemetry.NewToolObserver(mp.Meter("test"), nil)
	require.NoError(t, err)

	ctx, finish := observer.ToolInvoked(context.Background(), toolbox.Tool{Name: "x"})
	assert.NotNil(t, ctx)
	finish(nil)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "mystic.tool.invocations")))
}

func TestNewGlobalToolObserver(t *testing.T) {
	observer, err := telemetry.NewGlobalToolObserver()
	require.NoError(t, err)
	assert.NotNil(t, observer)
}
