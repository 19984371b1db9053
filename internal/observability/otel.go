// Package observability configures distributed tracing for the service.
// Traces flow to an OTLP gRPC collector; spans are created by the Gin
// instrumentation middleware and by the search and chat pipelines.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"google.golang.org/grpc/credentials"

	"github.com/connexus-ai/hr-rag-service/internal/config"
)

// Test seams: exporter and resource construction are indirected so tests can
// intercept them without a live collector.
var (
	newOTLPClient = otlptracegrpc.NewClient

	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newTraceResourceFn = traceResource
)

// traceResource identifies this deployment on every exported span. Attributes
// from OTEL_RESOURCE_ATTRIBUTES are merged in first, so operators can tag
// instances (region, cluster) without a rebuild; the service identity set
// here wins on conflict.
func traceResource(ctx context.Context, serviceName, version, environment string) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
			semconv.DeploymentEnvironment(environment),
		),
	)
}

// collectorOptions translates endpoint settings into gRPC dial options.
// Insecure collectors are the common case in-cluster; anything else gets
// host-verified TLS from the system roots.
func collectorOptions(cfg config.OTELConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		return append(opts, otlptracegrpc.WithInsecure())
	}
	return append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
}

// SetupOTel configures OpenTelemetry tracing and returns a shutdown function.
// When tracing is disabled the returned shutdown is a no-op and the global
// tracer provider is left untouched.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, version, environment string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := newTraceResourceFn(ctx, cfg.ServiceName, version, environment)
	if err != nil {
		return nil, err
	}

	exp, err := newOTLPExporterFn(ctx, newOTLPClient(collectorOptions(cfg)...))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
