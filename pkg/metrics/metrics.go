package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samvad-hq/samvad-envelope/pkg/envelope"
)

// Metrics records envelope classification outcomes and probe latencies.
// A nil *Metrics, or one built with a nil registerer, discards everything.
type Metrics struct {
	results      *prometheus.CounterVec
	unauthorized *prometheus.CounterVec
	probe        *prometheus.HistogramVec
}

var _ envelope.Observer = (*Metrics)(nil)

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "envelope_results_total",
		Help: "Envelopes classified, by profile and result kind.",
	}, []string{"profile", "kind"})
	unauthorized := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "envelope_unauthorized_total",
		Help: "Envelopes that carried the unauthorized code.",
	}, []string{"profile"})
	probe := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "probe_request_duration_seconds",
		Help:    "Duration of probe requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"target"})
	reg.MustRegister(results, unauthorized, probe)
	return &Metrics{
		results:      results,
		unauthorized: unauthorized,
		probe:        probe,
	}
}

// ObserveResult implements envelope.Observer.
func (m *Metrics) ObserveResult(profile string, kind envelope.Kind) {
	if m == nil || m.results == nil {
		return
	}
	m.results.WithLabelValues(normalizeLabel(profile), kind.String()).Inc()
}

// ObserveUnauthorized implements envelope.Observer.
func (m *Metrics) ObserveUnauthorized(profile string) {
	if m == nil || m.unauthorized == nil {
		return
	}
	m.unauthorized.WithLabelValues(normalizeLabel(profile)).Inc()
}

// ObserveProbeDuration records how long a probe request to target took.
func (m *Metrics) ObserveProbeDuration(target string, d time.Duration) {
	if m == nil || m.probe == nil {
		return
	}
	m.probe.WithLabelValues(normalizeLabel(target)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
