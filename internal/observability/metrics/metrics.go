package metrics

import "github.com/prometheus/client_golang/prometheus"

// EncounterMetrics exposes counters/histograms for the encounter lifecycle.
type EncounterMetrics struct {
	transitionsTotal *prometheus.CounterVec
	rejectionsTotal  *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
}

func NewEncounterMetrics(reg prometheus.Registerer) *EncounterMetrics {
	m := &EncounterMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ehr",
			Subsystem: "encounters",
			Name:      "transitions_total",
			Help:      "Total encounter status transitions",
		}, []string{"from", "to"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ehr",
			Subsystem: "encounters",
			Name:      "rejections_total",
			Help:      "Total rejected encounter operations by error kind",
		}, []string{"operation", "kind"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ehr",
			Subsystem: "encounters",
			Name:      "operation_latency_seconds",
			Help:      "Latency of encounter service operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.rejectionsTotal, m.requestLatency)
	return m
}

func (m *EncounterMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *EncounterMetrics) ObserveRejection(operation, kind string) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(operation, kind).Inc()
}

func (m *EncounterMetrics) ObserveLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.requestLatency.WithLabelValues(operation).Observe(seconds)
}

// AuditMetrics tracks audit trail health. Audit writes never fail the primary
// operation, so the failure counter is the main signal that the trail is
// degrading.
type AuditMetrics struct {
	recordsTotal  *prometheus.CounterVec
	failuresTotal prometheus.Counter
}

func NewAuditMetrics(reg prometheus.Registerer) *AuditMetrics {
	m := &AuditMetrics{
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ehr",
			Subsystem: "audit",
			Name:      "records_total",
			Help:      "Total audit records written by action",
		}, []string{"action"}),
		failuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ehr",
			Subsystem: "audit",
			Name:      "write_failures_total",
			Help:      "Total audit writes that failed and were dropped",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.recordsTotal, m.failuresTotal)
	return m
}

func (m *AuditMetrics) ObserveRecord(action string) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues(action).Inc()
}

func (m *AuditMetrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.failuresTotal.Inc()
}
