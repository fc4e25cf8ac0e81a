package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// RegistryMetrics holds the Prometheus instruments for registry operations.
// Each public registry operation reports one counter increment and one
// duration observation; the cache reports hits and misses separately.
type RegistryMetrics struct {
	registry *prometheus.Registry
	logger   *logrus.Logger
	server   *http.Server

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	productionModels  prometheus.Gauge
}

// NewRegistryMetrics creates and registers the registry instrument set
func NewRegistryMetrics(logger *logrus.Logger) *RegistryMetrics {
	if logger == nil {
		logger = logrus.New()
	}

	reg := prometheus.NewRegistry()

	m := &RegistryMetrics{
		registry: reg,
		logger:   logger,
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelregistry",
			Name:      "operations_total",
			Help:      "Registry operations by name and outcome",
		}, []string{"operation", "status"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modelregistry",
			Name:      "operation_duration_seconds",
			Help:      "Registry operation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modelregistry",
			Name:      "production_cache_hits_total",
			Help:      "Production cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modelregistry",
			Name:      "production_cache_misses_total",
			Help:      "Production cache misses",
		}),
		productionModels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "modelregistry",
			Name:      "production_models",
			Help:      "Number of models with a production version",
		}),
	}

	reg.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.cacheHits,
		m.cacheMisses,
		m.productionModels,
	)

	return m
}

// ObserveOperation records one completed operation. A nil RegistryMetrics
// is a no-op so callers never need to guard.
func (m *RegistryMetrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordCacheHit counts one production cache hit
func (m *RegistryMetrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// RecordCacheMiss counts one production cache miss or fall-through
func (m *RegistryMetrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// SetProductionModels updates the production model gauge
func (m *RegistryMetrics) SetProductionModels(count int) {
	if m == nil {
		return
	}
	m.productionModels.Set(float64(count))
}

// StartServer exposes the metrics endpoint on addr. It returns immediately;
// serve errors other than graceful shutdown are logged.
func (m *RegistryMetrics) StartServer(addr, path string) {
	if m == nil {
		return
	}

	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	m.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.WithError(err).Error("Metrics server failed")
		}
	}()

	m.logger.WithFields(logrus.Fields{
		"addr": addr,
		"path": path,
	}).Info("Metrics server started")
}

// Stop shuts the metrics endpoint down
func (m *RegistryMetrics) Stop(ctx context.Context) error {
	if m == nil || m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
