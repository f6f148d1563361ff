// Package metrics provides Prometheus metrics collection for the context engine.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/lewisedginton/travel_context_engine/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	subsystem = "context_engine"
)

// Metrics provides Prometheus metrics collection for context engine operations.
type Metrics struct {
	reg *prometheus.Registry

	TurnsAnalyzedCounter      prometheus.Counter
	OrchestrationsCounter     prometheus.Counter
	OrchestrationHistogram    prometheus.Histogram
	MemoriesStoredCounter     prometheus.Counter
	MemoriesForgottenCounter  prometheus.Counter
	PatternsLearnedCounter    prometheus.Counter
	StoreFailuresCounter      prometheus.Counter
	ContextQualityHistogram   prometheus.Histogram

	customMetrics []prometheus.Collector

	stopChan chan os.Signal
	errChan  chan error
	log      logger.Logger
}

// NewMetrics creates a new Metrics instance with all engine collectors registered.
func NewMetrics(l logger.Logger) Metrics {
	m := Metrics{
		reg: prometheus.NewRegistry(),
		log: l,
	}

	m.TurnsAnalyzedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_turns_analyzed",
		Help:      "Total conversation turns analyzed",
	})
	m.reg.MustRegister(m.TurnsAnalyzedCounter)

	m.OrchestrationsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_orchestrations",
		Help:      "Total context orchestration flows executed",
	})
	m.reg.MustRegister(m.OrchestrationsCounter)

	m.OrchestrationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "orchestration_duration_seconds",
		Help:      "Context orchestration duration in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1.0, 3.0, 5.0},
	})
	m.reg.MustRegister(m.OrchestrationHistogram)

	m.MemoriesStoredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_memories_stored",
		Help:      "Total memory entries stored",
	})
	m.reg.MustRegister(m.MemoriesStoredCounter)

	m.MemoriesForgottenCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_memories_forgotten",
		Help:      "Total memory entries removed by the decay sweep",
	})
	m.reg.MustRegister(m.MemoriesForgottenCounter)

	m.PatternsLearnedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_patterns_learned",
		Help:      "Total preference patterns created or reinforced",
	})
	m.reg.MustRegister(m.PatternsLearnedCounter)

	m.StoreFailuresCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_store_failures",
		Help:      "Total persistence collaborator failures degraded to defaults",
	})
	m.reg.MustRegister(m.StoreFailuresCounter)

	m.ContextQualityHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "context_quality",
		Help:      "Quality score of assembled context bundles",
		Buckets:   []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0},
	})
	m.reg.MustRegister(m.ContextQualityHistogram)

	return m
}

// Listen starts the metrics HTTP server on the specified port.
func (m *Metrics) Listen(port int) {
	m.log.Info("Starting metrics listener", logger.IntField("port", port))
	mux := http.NewServeMux()
	mux.Handle("/", http.NotFoundHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal)
	errChan := make(chan error)
	go func() {
		errChan <- server.ListenAndServe()
	}()
	go func() {
		for {
			sig := <-sigChan
			if sig == os.Interrupt {
				m.log.Info("Stopping metrics listener")
				_ = server.Shutdown(context.Background())
				return
			}
		}
	}()
	m.errChan = errChan
	m.stopChan = sigChan
}

// Stop signals the metrics listener to shut down.
func (m *Metrics) Stop() {
	if m.stopChan != nil {
		m.stopChan <- os.Interrupt
	}
}

// AddCustomMetric registers a custom Prometheus collector.
func (m *Metrics) AddCustomMetric(c prometheus.Collector) {
	m.customMetrics = append(m.customMetrics, c)
	m.reg.MustRegister(m.customMetrics[len(m.customMetrics)-1])
}

// ObserveOrchestration records one orchestration flow with its duration and
// the quality of the resulting bundle.
func (m *Metrics) ObserveOrchestration(duration time.Duration, quality float64) {
	m.OrchestrationsCounter.Inc()
	m.OrchestrationHistogram.Observe(duration.Seconds())
	m.ContextQualityHistogram.Observe(quality)
}
