// Package telemetry installs the OpenTelemetry meter provider and holds the
// engine's metric instruments.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const instrumentationName = "github.com/cardmachinequote/quote-engine"

type Config struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string // host:port of an OTLP gRPC collector; empty disables export
	Insecure       bool
	Interval       time.Duration
}

// Setup installs a global meter provider exporting over OTLP gRPC. Without an
// endpoint the global no-op provider stays in place. The returned function
// flushes and stops the exporter.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.OTLPEndpoint == "" {
		log.Info().Msg("metrics export disabled")
		return func(context.Context) error { return nil }, nil
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
	)
	otel.SetMeterProvider(mp)

	log.Info().Str("endpoint", cfg.OTLPEndpoint).Dur("interval", cfg.Interval).Msg("metrics export enabled")
	return mp.Shutdown, nil
}

// Metrics are the engine counters. A nil *Metrics records nothing.
type Metrics struct {
	analyses metric.Int64Counter
	aiCalls  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates the instruments on mp, or on the global provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	var (
		m   Metrics
		err error
	)
	m.analyses, err = meter.Int64Counter("quote.analyses.total",
		metric.WithDescription("Statement analyses by outcome"),
		metric.WithUnit("{analysis}"),
	)
	if err != nil {
		return nil, err
	}
	m.aiCalls, err = meter.Int64Counter("quote.ai.calls.total",
		metric.WithDescription("AI extractor calls by result"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}
	m.duration, err = meter.Float64Histogram("quote.analysis.duration",
		metric.WithDescription("Statement analysis duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 240),
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordAnalysis counts one finished analysis. reason is empty on success.
func (m *Metrics) RecordAnalysis(ctx context.Context, outcome, reason string, took time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", reason),
	)
	m.analyses.Add(ctx, 1, attrs)
	m.duration.Record(ctx, took.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordAICall counts one AI extractor call: ok, error, timeout or skipped.
func (m *Metrics) RecordAICall(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.aiCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
