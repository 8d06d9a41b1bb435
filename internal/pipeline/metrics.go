package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

const namespace = "osm_audit"

// Metrics holds the counters for one processing run on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	ElementsRead   *prometheus.CounterVec // labels: kind
	RecordsEmitted *prometheus.CounterVec // labels: table
	Normalized     *prometheus.CounterVec // labels: rule, outcome={unchanged,changed,blanked}
	RunDuration    prometheus.Gauge
	Running        prometheus.Gauge
}

// NewMetrics creates the pipeline metrics and registers them on a fresh
// registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ElementsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elements_read_total",
			Help:      "Elements read from the source document by kind.",
		}, []string{"kind"}),
		RecordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_emitted_total",
			Help:      "Records written to each output table.",
		}, []string{"table"}),
		Normalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalized_values_total",
			Help:      "Tag values routed through a normalizer by rule and outcome.",
		}, []string{"rule", "outcome"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last processing run.",
		}),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while a processing run is active.",
		}),
	}

	m.Registry.MustRegister(
		m.ElementsRead,
		m.RecordsEmitted,
		m.Normalized,
		m.RunDuration,
		m.Running,
	)
	return m
}

// WriteTextfile writes the current values in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return eris.Wrapf(err, "pipeline: write metrics textfile %s", path)
	}
	return nil
}

func outcome(before, after string) string {
	switch {
	case before == after:
		return "unchanged"
	case after == "":
		return "blanked"
	}
	return "changed"
}
