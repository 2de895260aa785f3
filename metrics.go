package facetnav

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "facetnav"

// Metrics prometheus collectors of an engine; a nil *Metrics records nothing
type Metrics struct {
	cacheLookups *prometheus.CounterVec
	views        *prometheus.HistogramVec
	viewErrors   *prometheus.CounterVec
}

// NewMetrics create the collectors and register them with reg when not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Document set and facet count cache lookups.",
		}, []string{"cache", "result"}),
		views: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "view_duration_seconds",
			Help:      "Duration of navigation views by mode.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"mode"}),
		viewErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "view_errors_total",
			Help:      "Navigation views answered with an error or a zero result.",
		}, []string{"mode", "kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.cacheLookups, m.views, m.viewErrors)
	}
	return m
}

// Record implements doccache.Recorder
func (m *Metrics) Record(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) observeView(mode string, start time.Time) {
	if m == nil {
		return
	}
	m.views.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func (m *Metrics) viewError(mode, kind string) {
	if m == nil {
		return
	}
	m.viewErrors.WithLabelValues(mode, kind).Inc()
}
