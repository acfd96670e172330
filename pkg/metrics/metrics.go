// Package metrics counts pipeline outcomes for one run. The registry is
// written to a node_exporter textfile when the run ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bmrcheck"

type Metrics struct {
	Registry *prometheus.Registry

	stages   *prometheus.CounterVec
	chunks   *prometheus.CounterVec
	calls    *prometheus.HistogramVec
	findings *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_total",
			Help:      "Pipeline stage results by stage and outcome (ok, degraded).",
		}, []string{"stage", "outcome"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Chunks processed by outcome.",
		}, []string{"outcome"}),
		calls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_call_seconds",
			Help:      "Latency of generative and embedding calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"call", "result"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Compliance findings by compliance status.",
		}, []string{"compliant"}),
	}
	m.Registry.MustRegister(m.stages, m.chunks, m.calls, m.findings)
	return m
}

func outcome(degraded bool) string {
	if degraded {
		return "degraded"
	}
	return "ok"
}

func (m *Metrics) Stage(stage string, degraded bool) {
	m.stages.WithLabelValues(stage, outcome(degraded)).Inc()
}

func (m *Metrics) Chunk(degraded bool) {
	m.chunks.WithLabelValues(outcome(degraded)).Inc()
}

func (m *Metrics) Finding(compliant bool) {
	if compliant {
		m.findings.WithLabelValues("true").Inc()
		return
	}
	m.findings.WithLabelValues("false").Inc()
}

// ObserveCall matches throttle.GateConfig.OnCall.
func (m *Metrics) ObserveCall(name string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.calls.WithLabelValues(name, result).Observe(elapsed.Seconds())
}

// WriteTextfile writes the registry in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
