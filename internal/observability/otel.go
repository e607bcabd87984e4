// Package observability sets up OpenTelemetry tracing for the API server and
// the recompute CLI. HTTP spans come from otelgin, query spans from the GORM
// tracing plugin and recompute spans from the attribution service.
package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"google.golang.org/grpc/credentials"

	"github.com/yuvraj-bhatia/virio-pulse/internal/config"
)

// ServiceInfo describes the running process on the trace resource.
type ServiceInfo struct {
	Version  string
	DBDriver string // sqlite|postgres
	TZ       string // IANA zone used for window boundaries
}

// attrTZ records the attribution time zone on the resource.
const attrTZ = attribute.Key("pulse.attribution.tz")

// test seams
var (
	newOTLPClient = otlptracegrpc.NewClient

	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newServiceResourceFn = func(ctx context.Context, serviceName string, info ServiceInfo) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(resourceAttributes(serviceName, info)...))
	}
)

// resourceAttributes lists the attributes stamped on every exported span.
// Empty fields are left out.
func resourceAttributes(serviceName string, info ServiceInfo) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if info.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(info.Version))
	}
	switch strings.ToLower(info.DBDriver) {
	case "postgres":
		attrs = append(attrs, semconv.DBSystemKey.String("postgresql"))
	case "sqlite":
		attrs = append(attrs, semconv.DBSystemKey.String("sqlite"))
	}
	if info.TZ != "" {
		attrs = append(attrs, attrTZ.String(info.TZ))
	}
	return attrs
}

// SetupOTel configures OpenTelemetry tracing and returns a shutdown function.
// When tracing is disabled the returned shutdown is a no-op and the global
// provider is left alone.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, info ServiceInfo) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		creds := credentials.NewClientTLSFromCert(nil, "")
		opts = append(opts, otlptracegrpc.WithTLSCredentials(creds))
	}

	exp, err := newOTLPExporterFn(ctx, newOTLPClient(opts...))
	if err != nil {
		return nil, err
	}

	res, err := newServiceResourceFn(ctx, cfg.ServiceName, info)
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
