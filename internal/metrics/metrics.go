// Package metrics provides the Prometheus collectors shared by all
// stressors. Collectors are labelled by stressor name and instance so a
// single scrape distinguishes every running copy.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Stress holds the per-stressor Prometheus collectors. A nil *Stress is
// valid and records nothing, so tests can run stressors unmetered.
type Stress struct {
	ops        *prometheus.CounterVec
	iterations *prometheus.CounterVec
	limited    *prometheus.CounterVec
	threads    *prometheus.GaugeVec
}

// New creates the stress collectors and registers them with reg.
func New(reg prometheus.Registerer) *Stress {
	s := &Stress{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magma_ops_total",
				Help: "Total number of stress operations completed.",
			},
			[]string{"stressor", "instance"},
		),
		iterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magma_iterations_total",
				Help: "Total number of stress iterations completed.",
			},
			[]string{"stressor", "instance"},
		),
		limited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magma_limited_iterations_total",
				Help: "Iterations that hit a resource limit before reaching the requested load.",
			},
			[]string{"stressor", "instance"},
		),
		threads: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "magma_threads_running",
				Help: "OS threads currently spawned by a stressor iteration.",
			},
			[]string{"stressor", "instance"},
		),
	}

	reg.MustRegister(s.ops, s.iterations, s.limited, s.threads)
	return s
}

// IncOps records one completed stress operation.
func (s *Stress) IncOps(stressor string, instance uint32) {
	if s == nil {
		return
	}
	s.ops.WithLabelValues(stressor, label(instance)).Inc()
}

// IncIteration records one completed stress iteration.
func (s *Stress) IncIteration(stressor string, instance uint32) {
	if s == nil {
		return
	}
	s.iterations.WithLabelValues(stressor, label(instance)).Inc()
}

// IncLimited records an iteration that could not reach the requested load.
func (s *Stress) IncLimited(stressor string, instance uint32) {
	if s == nil {
		return
	}
	s.limited.WithLabelValues(stressor, label(instance)).Inc()
}

// SetThreadsRunning records the number of live worker threads.
func (s *Stress) SetThreadsRunning(stressor string, instance uint32, n float64) {
	if s == nil {
		return
	}
	s.threads.WithLabelValues(stressor, label(instance)).Set(n)
}

func label(instance uint32) string {
	return strconv.FormatUint(uint64(instance), 10)
}
