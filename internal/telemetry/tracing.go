package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const ServiceName = "imagemin"

// Exporter selects where compression and request spans go.
type Exporter string

const (
	ExporterNone   Exporter = "none"
	ExporterStdout Exporter = "stdout"
	ExporterOTLP   Exporter = "otlp"
)

var ErrUnknownExporter = errors.New("unknown trace exporter")

func ParseExporter(raw string) (Exporter, error) {
	switch Exporter(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExporterNone:
		return ExporterNone, nil
	case ExporterStdout:
		return ExporterStdout, nil
	case ExporterOTLP:
		return ExporterOTLP, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExporter, raw)
	}
}

type TraceConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
	// Backend names the image encoder ("govips" or "stdlib") and is recorded
	// on every span's resource.
	Backend string
	// Output receives stdout-exporter spans. Defaults to stderr so command
	// output on stdout stays clean.
	Output io.Writer
}

// Shutdown flushes buffered spans and stops the provider.
type Shutdown func(context.Context) error

// SetupTracing installs the global tracer provider used by the pipeline,
// batch and api packages. ExporterNone keeps the no-op provider.
func SetupTracing(ctx context.Context, cfg TraceConfig, logger *logrus.Logger) (Shutdown, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	kind, err := ParseExporter(cfg.Exporter)
	if err != nil {
		return nil, err
	}

	otel.SetTextMapPropagator(propagation.TraceContext{})
	if kind == ExporterNone {
		logger.Debug("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newExporter(ctx, kind, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s trace exporter: %w", kind, err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		attribute.String("imagemin.encoder.backend", cfg.Backend),
	))
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	logger.WithFields(logrus.Fields{
		"exporter": kind,
		"backend":  cfg.Backend,
	}).Info("tracing enabled")

	return func(ctx context.Context) error {
		return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
	}, nil
}

func newExporter(ctx context.Context, kind Exporter, cfg TraceConfig) (sdktrace.SpanExporter, error) {
	switch kind {
	case ExporterStdout:
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		return stdouttrace.New(stdouttrace.WithWriter(out))
	case ExporterOTLP:
		endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
		if endpoint == "" {
			return nil, errors.New("otlp endpoint is required")
		}
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, kind)
}
