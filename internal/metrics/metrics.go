package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives analysis observations. Kind is "condition" or "tone";
// outcome is "detected", "nothing_detected" or "failed".
type Recorder interface {
	ObserveAnalysis(kind, outcome string, findings int)
	ObserveUpstream(kind string, elapsed time.Duration, err error)
}

// Prometheus records analysis metrics into a registry.
type Prometheus struct {
	analyses *prometheus.CounterVec
	findings *prometheus.HistogramVec
	upstream *prometheus.HistogramVec
}

// NewPrometheus registers the analysis collectors with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skin_analysis",
			Name:      "analyses_total",
			Help:      "Analyses by kind and outcome.",
		}, []string{"kind", "outcome"}),
		findings: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skin_analysis",
			Name:      "findings_per_analysis",
			Help:      "Surfaced findings per successful analysis.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}, []string{"kind"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skin_analysis",
			Name:      "classifier_request_seconds",
			Help:      "Latency of classifier requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "status"}),
	}
	for _, c := range []prometheus.Collector{p.analyses, p.findings, p.upstream} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ObserveAnalysis counts a finished analysis and its number of findings.
func (p *Prometheus) ObserveAnalysis(kind, outcome string, findings int) {
	p.analyses.WithLabelValues(kind, outcome).Inc()
	if outcome != "failed" {
		p.findings.WithLabelValues(kind).Observe(float64(findings))
	}
}

// ObserveUpstream records classifier latency and failures.
func (p *Prometheus) ObserveUpstream(kind string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.upstream.WithLabelValues(kind, status).Observe(elapsed.Seconds())
}

// Nop discards observations.
type Nop struct{}

// ObserveAnalysis implements Recorder.
func (Nop) ObserveAnalysis(string, string, int) {}

// ObserveUpstream implements Recorder.
func (Nop) ObserveUpstream(string, time.Duration, error) {}
