// Package telemetry records tool registrations and invocations into
// OpenTelemetry.
package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/germanamz/mystic/pkg/tools/toolbox"
)

const instrumentationName = "github.com/germanamz/mystic"

// ToolObserver implements toolbox.Observer with OpenTelemetry metrics and
// spans.
type ToolObserver struct {
	tracer trace.Tracer

	registrations metric.Int64Counter
	invocations   metric.Int64Counter
	latency       metric.Float64Histogram
}

// NewToolObserver creates a tool observer bound to the provided meter/tracer.
// A nil tracer disables spans.
func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	registrations, err := meter.Int64Counter(
		"mystic.tool.registrations",
		metric.WithDescription("Number of tool registrations"),
	)
	if err != nil {
		return nil, err
	}
	invocations, err := meter.Int64Counter(
		"mystic.tool.invocations",
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"mystic.tool.latency",
		metric.WithDescription("Tool latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ToolObserver{
		tracer:        tracer,
		registrations: registrations,
		invocations:   invocations,
		latency:       latency,
	}, nil
}

// NewGlobalToolObserver creates a tool observer from the globally registered
// meter and tracer providers.
func NewGlobalToolObserver() (*ToolObserver, error) {
	return NewToolObserver(
		otel.GetMeterProvider().Meter(instrumentationName),
		otel.GetTracerProvider().Tracer(instrumentationName),
	)
}

// ToolRegistered counts one registration.
func (o *ToolObserver) ToolRegistered(ctx context.Context, t toolbox.Tool) {
	o.registrations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool_name", t.Name),
		attribute.Bool("async", t.Async),
	))
}

// ToolInvoked starts a span for the invocation. The returned finish records
// the outcome and ends the span.
func (o *ToolObserver) ToolInvoked(ctx context.Context, t toolbox.Tool) (context.Context, func(error)) {
	attrs := []attribute.KeyValue{
		attribute.String("tool_name", t.Name),
		attribute.Bool("async", t.Async),
	}

	var span trace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "tool.invoke", trace.WithAttributes(attrs...))
	}

	start := time.Now()

	return ctx, func(err error) {
		attrs := append(attrs,
			attribute.Bool("success", err == nil),
			attribute.String("outcome", outcome(err)),
		)

		options := metric.WithAttributes(attrs...)
		o.invocations.Add(ctx, 1, options)
		o.latency.Record(ctx, time.Since(start).Seconds(), options)

		if span == nil {
			return
		}
		span.SetAttributes(attrs...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, toolbox.ErrInvalidArguments):
		return "invalid_arguments"
	case errors.Is(err, toolbox.ErrPanic):
		return "panic"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

var _ toolbox.Observer = (*ToolObserver)(nil)
