package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// newPrometheusReader returns an OTel metric reader backed by a private
// Prometheus registry, and the scrape handler for that registry. The registry
// also carries the Go runtime and process collectors.
func newPrometheusReader() (http.Handler, sdkmetric.Reader, error) {
	registry := prometheus.NewRegistry()

	err := registry.Register(collectors.NewGoCollector())
	if err != nil {
		return nil, nil, fmt.Errorf("register go collector: %w", err)
	}

	err = registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err != nil {
		return nil, nil, fmt.Errorf("register process collector: %w", err)
	}

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), exporter, nil
}

// PrometheusProvider returns a standalone MeterProvider whose instruments are
// served by the returned handler. Each call gets its own registry.
func PrometheusProvider() (*sdkmetric.MeterProvider, http.Handler, error) {
	handler, reader, err := newPrometheusReader()
	if err != nil {
		return nil, nil, err
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), handler, nil
}
