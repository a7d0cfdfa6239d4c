// pkg/telemetry/telemetry.go

package telemetry

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	tracer   trace.Tracer = noop.NewTracerProvider().Tracer(shared.ServiceName)
	outcomes metric.Int64Counter
)

// OutcomeMetric counts finished sync attempts by status and kind.
const OutcomeMetric = "mirrorhook.sync.outcomes"

// Options controls where spans and metrics go. A disabled config installs noop providers.
type Options struct {
	Service string
	Enabled bool
	// File receives JSONL spans and metrics. Empty means stdout.
	File string
	// MetricReader is registered next to the stdout exporter when set.
	MetricReader sdkmetric.Reader
}

// Init configures OpenTelemetry and returns a shutdown func that flushes spans.
func Init(opts Options) (func(context.Context) error, error) {
	if !opts.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		tracer = tp.Tracer(opts.Service)
		initMetrics(metricnoop.NewMeterProvider(), opts.Service)
		return func(context.Context) error { return nil }, nil
	}

	var out io.Writer = os.Stdout
	var file *os.File
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), shared.DirPermStandard); err != nil {
			return nil, cerr.Wrap(err, "failed to create telemetry directory")
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, shared.FilePermStandard)
		if err != nil {
			return nil, cerr.Wrap(err, "failed to open telemetry file")
		}
		file, out = f, f
	}

	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(out),
		stdouttrace.WithoutTimestamps(),
	)
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, cerr.Wrap(err, "failed to create span exporter")
	}

	res := sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.Service),
		attribute.String("host.name", hostname()),
	)

	mexp, err := stdoutmetric.New(
		stdoutmetric.WithWriter(out),
		stdoutmetric.WithoutTimestamps(),
	)
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, cerr.Wrap(err, "failed to create metric exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	mopts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(mexp)),
	}
	if opts.MetricReader != nil {
		mopts = append(mopts, sdkmetric.WithReader(opts.MetricReader))
	}
	mp := sdkmetric.NewMeterProvider(mopts...)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	tracer = tp.Tracer(opts.Service)
	initMetrics(mp, opts.Service)

	return func(ctx context.Context) error {
		// metrics first so the final collection is exported before the file closes
		err := cerr.CombineErrors(mp.Shutdown(ctx), tp.Shutdown(ctx))
		if file != nil {
			_ = file.Close()
		}
		return err
	}, nil
}

func initMetrics(mp metric.MeterProvider, service string) {
	meter := mp.Meter(service)
	c, err := meter.Int64Counter(OutcomeMetric,
		metric.WithDescription("Sync attempts by HTTP status and outcome kind"))
	if err == nil {
		outcomes = c
	}
}

// Start a telemetry span with optional attributes.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordOutcome counts one finished sync attempt.
func RecordOutcome(ctx context.Context, status int, kind string) {
	if outcomes == nil {
		return
	}
	outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("status", status),
		attribute.String("kind", kind),
	))
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
