package checks

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
)

// Metrics exposes the last report of every check as Prometheus gauges.
type Metrics struct {
	registry *prometheus.Registry
	status   *prometheus.GaugeVec
	flagged  *prometheus.GaugeVec
	perfdata *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rhdp_probe",
			Name:      "check_status",
			Help:      "Exit code of the last run: 0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN.",
		}, []string{"check"}),
		flagged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rhdp_probe",
			Name:      "check_flagged_records",
			Help:      "Records with at least one finding in the last run.",
		}, []string{"check"}),
		perfdata: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rhdp_probe",
			Name:      "check_perfdata",
			Help:      "Performance data values of the last run.",
		}, []string{"check", "label"}),
	}
	m.registry.MustRegister(m.status, m.flagged, m.perfdata)
	return m
}

// Observe records a finished run.
func (m *Metrics) Observe(check string, report *domain.CheckReport) {
	m.status.WithLabelValues(check).Set(float64(report.Status.ExitCode()))
	m.flagged.WithLabelValues(check).Set(float64(report.Errors))
	m.perfdata.DeletePartialMatch(prometheus.Labels{"check": check})
	for _, p := range report.PerfData {
		m.perfdata.WithLabelValues(check, p.Label).Set(float64(p.Value))
	}
}

// Failed marks a run that could not be evaluated.
func (m *Metrics) Failed(check string) {
	m.status.WithLabelValues(check).Set(float64(domain.SeverityUnknown.ExitCode()))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
