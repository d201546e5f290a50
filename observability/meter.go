package observability

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/rpcclient/logger"
	"github.com/kbukum/rpcclient/version"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name reported in the resource.
	ServiceName string
	// ServiceVersion is the version reported in the resource.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure disables TLS towards the collector.
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Get().Short(),
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs an OTLP/HTTP backed meter provider as the global one.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Config enables both exporters at once. An empty Endpoint leaves the
// global no-op providers in place.
type Config struct {
	ServiceName string        `mapstructure:"service_name"`
	Endpoint    string        `mapstructure:"endpoint"`
	Insecure    bool          `mapstructure:"insecure"`
	SampleRate  float64       `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Interval    time.Duration `mapstructure:"interval" validate:"gte=0"`
}

// ShutdownFunc flushes and stops whatever Setup installed.
type ShutdownFunc func(context.Context) error

// Setup initializes tracing and metrics from cfg.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	tc := DefaultTracerConfig(cfg.ServiceName)
	tc.Endpoint = cfg.Endpoint
	tc.Insecure = cfg.Insecure
	if cfg.SampleRate > 0 {
		tc.SampleRate = cfg.SampleRate
	}
	tp, err := InitTracer(ctx, tc)
	if err != nil {
		return nil, err
	}

	mc := DefaultMeterConfig(cfg.ServiceName)
	mc.Endpoint = cfg.Endpoint
	mc.Insecure = cfg.Insecure
	if cfg.Interval > 0 {
		mc.Interval = cfg.Interval
	}
	mp, err := InitMeter(ctx, &mc)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// Metric names.
const (
	MetricRequestTotal      = "rpcclient.request.total"
	MetricRequestDuration   = "rpcclient.request.duration"
	MetricStreamEvents      = "rpcclient.stream.events"
	MetricStreamReconnects  = "rpcclient.stream.reconnects"
	MetricStreamParseErrors = "rpcclient.stream.parse_errors"
)

// ClientMetrics holds the instruments recorded by the HTTP and stream paths.
type ClientMetrics struct {
	requestTotal     metric.Int64Counter
	requestDuration  metric.Float64Histogram
	streamEvents     metric.Int64Counter
	streamReconnects metric.Int64Counter
	parseErrors      metric.Int64Counter
}

// NewClientMetrics creates the client instruments on the given meter.
func NewClientMetrics(meter metric.Meter) (*ClientMetrics, error) {
	requestTotal, err := meter.Int64Counter(MetricRequestTotal,
		metric.WithDescription("Total number of request/response calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRequestTotal, err)
	}

	requestDuration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("Duration of request/response calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricRequestDuration, err)
	}

	streamEvents, err := meter.Int64Counter(MetricStreamEvents,
		metric.WithDescription("Stream events delivered to handlers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricStreamEvents, err)
	}

	streamReconnects, err := meter.Int64Counter(MetricStreamReconnects,
		metric.WithDescription("Stream reconnects triggered by inactivity"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricStreamReconnects, err)
	}

	parseErrors, err := meter.Int64Counter(MetricStreamParseErrors,
		metric.WithDescription("Stream payloads that were not valid JSON"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricStreamParseErrors, err)
	}

	return &ClientMetrics{
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		streamEvents:     streamEvents,
		streamReconnects: streamReconnects,
		parseErrors:      parseErrors,
	}, nil
}

// DefaultClientMetrics builds instruments on the global provider. Instrument
// creation only fails on invalid names, so a failure here yields nil, which
// every Record method tolerates.
func DefaultClientMetrics() *ClientMetrics {
	m, err := NewClientMetrics(Meter(InstrumentationName))
	if err != nil {
		logger.WithComponent("observability").WithError(err).Warn("client metrics disabled")
		return nil
	}
	return m
}

// RecordRequest records one completed call. status is 0 when no response
// was received.
func (m *ClientMetrics) RecordRequest(ctx context.Context, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", statusLabel(status)),
	)
	m.requestTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
}

// RecordStreamEvent counts one event handed to a stream handler.
func (m *ClientMetrics) RecordStreamEvent(ctx context.Context) {
	if m == nil {
		return
	}
	m.streamEvents.Add(ctx, 1)
}

// RecordReconnect counts one inactivity reconnect.
func (m *ClientMetrics) RecordReconnect(ctx context.Context) {
	if m == nil {
		return
	}
	m.streamReconnects.Add(ctx, 1)
}

// RecordParseError counts one undecodable stream payload.
func (m *ClientMetrics) RecordParseError(ctx context.Context) {
	if m == nil {
		return
	}
	m.parseErrors.Add(ctx, 1)
}

func statusLabel(status int) string {
	if status == 0 {
		return "network_error"
	}
	return strconv.Itoa(status)
}
