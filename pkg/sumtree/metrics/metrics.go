// Package metrics exposes Prometheus metrics for long-running sumtree
// processes such as watch mode.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
)

var (
	sessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumtree_sessions_total",
			Help: "Checksum sessions by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	failuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumtree_verify_failures_total",
			Help: "Failed verifications by reason",
		},
		[]string{"reason"},
	)

	filesHashed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sumtree_files_hashed_total",
			Help: "Files whose content was hashed",
		},
	)

	bytesHashed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sumtree_bytes_hashed_total",
			Help: "Bytes read while hashing",
		},
	)

	sessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sumtree_session_duration_seconds",
			Help:    "Checksum session latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"operation"},
	)

	lastVerifyOK = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sumtree_last_verify_success",
			Help: "1 if the most recent verification succeeded, 0 otherwise",
		},
	)

	sessionFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sumtree_session_files",
			Help: "Files in the running session",
		},
	)

	sessionFilesDone = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sumtree_session_files_done",
			Help: "Files completed by the running session",
		},
	)

	watchEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sumtree_watch_events_total",
			Help: "Filesystem events observed in watch mode",
		},
	)
)

// Observe records a finished session. operation is "generate" or "verify".
func Observe(operation string, res engine.Result) {
	sessionsTotal.WithLabelValues(operation, res.Outcome.String()).Inc()
	filesHashed.Add(float64(res.FilesHashed))
	bytesHashed.Add(float64(res.BytesHashed))
	sessionDuration.WithLabelValues(operation).Observe(res.Elapsed.Seconds())

	if operation != "verify" {
		return
	}
	switch res.Outcome {
	case engine.OutcomeSuccess:
		lastVerifyOK.Set(1)
	case engine.OutcomeFailed:
		failuresTotal.WithLabelValues(res.Reason.String()).Inc()
		lastVerifyOK.Set(0)
	case engine.OutcomeError:
		lastVerifyOK.Set(0)
	}
}

type progress struct{}

// Progress reports a running session's file counts as gauges.
func Progress() engine.Progress {
	return progress{}
}

func (progress) SetTotal(n int) {
	sessionFiles.Set(float64(n))
	sessionFilesDone.Set(0)
}

func (progress) Advance(done int) { sessionFilesDone.Set(float64(done)) }

func (progress) Chunk(int, int64, int64) {}

// WatchEvent counts one filesystem event.
func WatchEvent() {
	watchEvents.Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logging.Get("metrics").Info("serving metrics", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
