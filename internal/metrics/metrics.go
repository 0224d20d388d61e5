// Package metrics defines the Prometheus metrics of the analysis pipeline and
// the HTTP endpoint that exposes them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "telellmgram"

// Call status labels.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Metrics holds the pipeline metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	LLMCalls    *prometheus.CounterVec
	LLMLatency  *prometheus.HistogramVec
	ChunksBuilt prometheus.Counter
	Runs        *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LLMCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total number of LLM calls by pipeline stage and status.",
		}, []string{"stage", "status"}), // status: ok, degraded
		LLMLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Latency of LLM calls by pipeline stage.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"stage"}),
		ChunksBuilt: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "chunks_built_total",
			Help:      "Total number of prompt chunks built.",
		}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by variant and final state.",
		}, []string{"variant", "state"}),
	}
}

// ObserveCall records one LLM call.
func (m *Metrics) ObserveCall(stage string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	status := StatusOK
	if !ok {
		status = StatusDegraded
	}
	m.LLMCalls.WithLabelValues(stage, status).Inc()
	m.LLMLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// AddChunks records n built chunks.
func (m *Metrics) AddChunks(n int) {
	if m == nil {
		return
	}
	m.ChunksBuilt.Add(float64(n))
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(variant, state string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(variant, state).Inc()
}

// Serve exposes the metrics of gatherer on addr under /metrics until ctx is
// done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, log *slog.Logger) error {
	log = log.With("component", "metrics_server")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down metrics server", "error", err)
		}
		log.Info("Metrics server stopped")
		return nil
	}
}
