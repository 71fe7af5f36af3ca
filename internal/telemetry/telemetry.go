// Package telemetry wires OpenTelemetry tracing around RPC calls and
// maintenance rounds: one InitTracer call at boot returns a shutdown func,
// and individual spans are opened with the package-level Tracer.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/feng-zhe/zhechord/internal/config"
)

const instrumentationName = "github.com/feng-zhe/zhechord/internal/chordnode"

// ShutdownFunc flushes and tears down the tracer provider. Callers defer it.
type ShutdownFunc func(context.Context) error

// InitTracer builds and installs a global TracerProvider per cfg. When
// tracing is disabled it installs nothing, leaving otel's default no-op
// global provider in place, and returns a no-op shutdown, so call sites
// never need to branch on whether tracing is on.
func InitTracer(cfg config.TracingConfig, serviceName, nodeID string) ShutdownFunc {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }
	}

	exporter, err := buildExporter(cfg)
	if err != nil {
		// Tracing is an observability add-on, not a correctness dependency;
		// keep the default no-op provider rather than failing node boot.
		otel.Handle(fmt.Errorf("telemetry: %w, tracing disabled", err))
		return func(context.Context) error { return nil }
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceInstanceIDKey.String(nodeID),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown
}

func buildExporter(cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp":
		opts := []otlptracegrpc.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(context.Background(), opts...)
	case "stdout", "":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unsupported telemetry exporter %q", cfg.Exporter)
	}
}

// Tracer returns the package-wide tracer used to open spans around RPC
// calls and maintenance rounds.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
