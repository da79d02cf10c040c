package report

import (
	"github.com/bu-isciii/tierarch/backend/internal/orchestrator"
	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "tierarch"

// `Metrics` implements `orchestrator.Sink`.  The metrics are written to a
// node exporter textfile after the run, since tierarch is not a service
// that could be scraped.
type Metrics struct {
	reg        *prometheus.Registry
	outcomes   *prometheus.CounterVec
	bytesSaved prometheus.Gauge
	lastRun    prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stage_outcomes_total",
			Help:      "Pipeline stage outcomes by stage and outcome",
		}, []string{"stage", "outcome"}),
		bytesSaved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "bytes_saved",
			Help:      "Bytes saved by compression in the last run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Completion time of the last run",
		}),
	}
	m.reg.MustRegister(m.outcomes, m.bytesSaved, m.lastRun)

	// Export zeros for all combinations.
	for _, s := range orchestrator.Stages {
		for _, o := range orchestrator.Outcomes {
			m.outcomes.WithLabelValues(s.String(), o.String())
		}
	}
	return m
}

func (m *Metrics) StageDone(
	stage orchestrator.Stage, service string,
	outcome orchestrator.Outcome, err error,
) {
	m.outcomes.WithLabelValues(stage.String(), outcome.String()).Inc()
}

// `Finish()` records the run totals.
func (m *Metrics) Finish(rep *orchestrator.Report) {
	m.bytesSaved.Set(float64(rep.BytesSaved))
	m.lastRun.SetToCurrentTime()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// `WriteTextfile()` atomically writes the metrics in text format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
