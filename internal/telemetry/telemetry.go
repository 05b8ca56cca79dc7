// Package telemetry installs the OpenTelemetry tracer and meter providers.
//
// Metrics recorded through otel.Meter are exported by a Prometheus reader
// registered on the caller's registry, so the same /metrics endpoint serves
// both the otel instruments and plain client_golang collectors.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrNilRegistry is returned when Init is given no Prometheus registry.
var ErrNilRegistry = errors.New("telemetry: nil prometheus registry")

type Config struct {
	ServiceName    string
	ServiceVersion string

	// TraceStdout prints finished spans to stdout. When false spans are
	// sampled but never exported.
	TraceStdout bool
}

// Init installs global providers and returns a shutdown func that flushes them.
func Init(ctx context.Context, cfg Config, reg prometheus.Registerer) (func(context.Context) error, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "saferoute"
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceStdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	shutdowns = append(shutdowns, tp.Shutdown)

	exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)
	shutdowns = append(shutdowns, mp.Shutdown)

	return shutdown, nil
}
