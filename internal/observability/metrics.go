// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
// The shutdown function should be called on application exit for graceful cleanup.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// RegisterLiveTimelinesGauge exposes the number of currently live
// timelines as an observable gauge. count is invoked at scrape time.
func RegisterLiveTimelinesGauge(count func(context.Context) int64) error {
	meter := otel.Meter("showplane-scheduler")
	_, err := meter.Int64ObservableGauge("showplane.timelines.live",
		api.WithDescription("Timelines currently live"),
		api.WithInt64Callback(func(ctx context.Context, o api.Int64Observer) error {
			o.Observe(count(ctx))
			return nil
		}))
	if err != nil {
		return fmt.Errorf("failed to register live-timelines gauge: %w", err)
	}
	return nil
}
