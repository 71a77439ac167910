// Package telemetry configures OpenTelemetry tracing and metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gitlab.com/yelinaung/splitly-bot/internal/config"
	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InstrumentationName is the tracer and meter name used across the app.
const InstrumentationName = "gitlab.com/yelinaung/splitly-bot"

// Options selects exporters for Setup.
type Options struct {
	Exporter       string
	Protocol       string
	ServiceName    string
	ServiceVersion string
	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer
}

// OptionsFromConfig builds Options from application config.
func OptionsFromConfig(cfg *config.Config, version string) Options {
	return Options{
		Exporter:       cfg.TelemetryExporter,
		Protocol:       cfg.OTLPProtocol,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
	}
}

// ShutdownFunc flushes and stops the providers installed by Setup.
type ShutdownFunc func(context.Context) error

// Setup installs global tracer and meter providers for the chosen exporter.
// With the "none" exporter the OpenTelemetry no-op globals are left in place.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if opts.Exporter == "" || opts.Exporter == config.ExporterNone {
		return func(context.Context) error { return nil }, nil
	}

	spanExporter, err := newSpanExporter(ctx, opts)
	if err != nil {
		return nil, err
	}
	metricExporter, err := newMetricExporter(ctx, opts)
	if err != nil {
		_ = spanExporter.Shutdown(ctx)
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", opts.ServiceName),
		attribute.String("service.version", opts.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	logger.Log.Info().
		Str("exporter", opts.Exporter).
		Str("protocol", opts.Protocol).
		Msg("Telemetry initialized")

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func newSpanExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)
	switch opts.Exporter {
	case config.ExporterStdout:
		var o []stdouttrace.Option
		if opts.Writer != nil {
			o = append(o, stdouttrace.WithWriter(opts.Writer))
		}
		exp, err = stdouttrace.New(o...)
	case config.ExporterOTLP:
		if opts.Protocol == config.ProtocolHTTP {
			exp, err = otlptracehttp.New(ctx)
		} else {
			exp, err = otlptracegrpc.New(ctx)
		}
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", opts.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create span exporter: %w", err)
	}
	return exp, nil
}

func newMetricExporter(ctx context.Context, opts Options) (sdkmetric.Exporter, error) {
	var (
		exp sdkmetric.Exporter
		err error
	)
	switch opts.Exporter {
	case config.ExporterStdout:
		var o []stdoutmetric.Option
		if opts.Writer != nil {
			o = append(o, stdoutmetric.WithWriter(opts.Writer))
		}
		exp, err = stdoutmetric.New(o...)
	case config.ExporterOTLP:
		if opts.Protocol == config.ProtocolHTTP {
			exp, err = otlpmetrichttp.New(ctx)
		} else {
			exp, err = otlpmetricgrpc.New(ctx)
		}
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", opts.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	return exp, nil
}
