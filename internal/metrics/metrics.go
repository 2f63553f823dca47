// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes Prometheus collectors for the pipeline engine.
// Collectors register with the default registry; serve them with
// promhttp.Handler().
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Attempt outcomes recorded by RecordAttempt.
const (
	AttemptSuccess   = "success"
	AttemptRetry     = "retry"
	AttemptExhausted = "exhausted"
	AttemptCancelled = "cancelled"
)

// Gate labels.
const (
	GateGlobal = "global"
	GateModule = "module"
)

var (
	// runsTotal counts inputs that reached a terminal state
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_runs_total",
			Help: "Total pipeline runs by terminal status",
		},
		[]string{"status"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_run_duration_seconds",
			Help:    "Pipeline run duration in seconds, including time spent waiting for admission",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// stepsTotal counts observed step executions (all attempts count as one)
	stepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_steps_total",
			Help: "Total step executions by step name and status",
		},
		[]string{"step", "status"},
	)

	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_step_duration_seconds",
			Help:    "Step execution duration in seconds across all attempts",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_step_attempts_total",
			Help: "Total step attempts by step name and outcome",
		},
		[]string{"step", "outcome"},
	)

	gateWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_gate_wait_seconds",
			Help:    "Time spent waiting for an admission permit",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"gate", "key"},
	)

	gateInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_gate_permits_in_use",
			Help: "Admission permits currently held",
		},
		[]string{"gate", "key"},
	)

	activeRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_active_runs",
			Help: "Number of runs currently holding a global permit",
		},
	)

	auditErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_audit_errors_total",
			Help: "Total audit write failures by operation",
		},
		[]string{"operation"},
	)
)

// RecordRun records the terminal status of one input.
func RecordRun(status string, duration time.Duration) {
	runsTotal.WithLabelValues(status).Inc()
	runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordStep records one observed step execution.
func RecordStep(step, status string, duration time.Duration) {
	stepsTotal.WithLabelValues(step, status).Inc()
	stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordAttempt records the outcome of a single attempt.
func RecordAttempt(step, outcome string) {
	attemptsTotal.WithLabelValues(step, outcome).Inc()
}

// ObserveGateWait records how long an acquirer waited for a permit.
func ObserveGateWait(gate, key string, wait time.Duration) {
	gateWait.WithLabelValues(gate, key).Observe(wait.Seconds())
}

// SetGateInUse records the number of permits currently held.
func SetGateInUse(gate, key string, n int64) {
	gateInUse.WithLabelValues(gate, key).Set(float64(n))
}

// RunStarted increments the active runs gauge.
func RunStarted() { activeRuns.Inc() }

// RunFinished decrements the active runs gauge.
func RunFinished() { activeRuns.Dec() }

// RecordAuditError counts a failed audit write.
// operation is one of: input, success, failure, summary
func RecordAuditError(operation string) {
	auditErrors.WithLabelValues(operation).Inc()
}
