// Package metrics defines the Prometheus collectors of ocpool.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ocpool"

// Recorder records orchestrator metrics. A nil *Recorder records nothing.
type Recorder struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	pollAttemptsTotal *prometheus.CounterVec
	phaseRunsTotal    *prometheus.CounterVec
	poolClusters      prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "orchestrator",
				Name:      "operations_total",
				Help:      "Total number of orchestrator operations by result",
			},
			[]string{"operation", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "orchestrator",
				Name:      "operation_duration_seconds",
				Help:      "Duration of orchestrator operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 13), // 1s to ~68min
			},
			[]string{"operation"},
		),
		pollAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "orchestrator",
				Name:      "poll_attempts_total",
				Help:      "Total number of status and reachability polls by wait step",
			},
			[]string{"step"},
		),
		phaseRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "deploy",
				Name:      "phase_runs_total",
				Help:      "Total number of configuration phase runs by exit code",
			},
			[]string{"phase", "exit_code"},
		),
		poolClusters: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "clusters",
				Help:      "Number of clusters tracked by the pool",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		r.operationsTotal, r.operationDuration, r.pollAttemptsTotal, r.phaseRunsTotal, r.poolClusters,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return r, nil
}

// ObserveOperation records the outcome and duration of an operation that began at start.
func (r *Recorder) ObserveOperation(operation string, start time.Time, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.operationsTotal.WithLabelValues(operation, result).Inc()
	r.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// PollAttempt counts one poll of a wait step.
func (r *Recorder) PollAttempt(step string) {
	if r == nil {
		return
	}
	r.pollAttemptsTotal.WithLabelValues(step).Inc()
}

// PhaseRun counts one configuration phase run.
func (r *Recorder) PhaseRun(phase string, exitCode int) {
	if r == nil {
		return
	}
	r.phaseRunsTotal.WithLabelValues(phase, strconv.Itoa(exitCode)).Inc()
}

// SetPoolClusters sets the number of tracked clusters.
func (r *Recorder) SetPoolClusters(n int) {
	if r == nil {
		return
	}
	r.poolClusters.Set(float64(n))
}

// WriteTextfile writes everything gathered by g to path in the text exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
