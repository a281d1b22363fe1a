package metrics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// ViewerMetrics exposes counters/histograms for remote record fetches,
// the profile cache, and attached sessions.
type ViewerMetrics struct {
	remoteTotal    *prometheus.CounterVec
	remoteLatency  *prometheus.HistogramVec
	cacheEvents    *prometheus.CounterVec
	sessionsActive prometheus.Gauge
}

func NewViewerMetrics(reg prometheus.Registerer) *ViewerMetrics {
	m := &ViewerMetrics{
		remoteTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "viewer",
			Subsystem: "records",
			Name:      "remote_requests_total",
			Help:      "Total requests issued to the records API",
		}, []string{"operation", "outcome"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "viewer",
			Subsystem: "records",
			Name:      "remote_request_seconds",
			Help:      "Latency of records API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "viewer",
			Subsystem: "profile_cache",
			Name:      "events_total",
			Help:      "Profile cache hits, misses, fills, and flush failures",
		}, []string{"event"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "viewer",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Patient sessions currently attached to a client",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.remoteTotal, m.remoteLatency, m.cacheEvents, m.sessionsActive)
	return m
}

func (m *ViewerMetrics) ObserveRemote(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.remoteTotal.WithLabelValues(operation, outcome).Inc()
	m.remoteLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *ViewerMetrics) ObserveCacheEvent(event string) {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues(event).Inc()
}

func (m *ViewerMetrics) SessionAttached() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *ViewerMetrics) SessionDetached() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// RemoteLatencySnapshot summarizes the remote request histogram for the
// status endpoint.
type RemoteLatencySnapshot struct {
	Total int64   `json:"total"`
	P90Ms float64 `json:"p90_ms"`
	P95Ms float64 `json:"p95_ms"`
}

// SnapshotRemoteLatency reads the remote request histogram back out of
// the registry, aggregated across operations. Returns the zero snapshot
// when nothing has been observed yet.
func SnapshotRemoteLatency(gatherer prometheus.Gatherer) RemoteLatencySnapshot {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return RemoteLatencySnapshot{}
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == "viewer_records_remote_request_seconds" {
			family = mf
			break
		}
	}
	if family == nil {
		return RemoteLatencySnapshot{}
	}

	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64
	for _, metric := range family.Metric {
		if metric == nil {
			continue
		}
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		sampleCount += h.GetSampleCount()
		for _, b := range h.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if sampleCount == 0 || len(cumulativeByUpper) == 0 {
		return RemoteLatencySnapshot{}
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	return RemoteLatencySnapshot{
		Total: int64(sampleCount),
		P90Ms: histogramQuantile(0.90, sampleCount, uppers, cumulativeByUpper) * 1000.0,
		P95Ms: histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper) * 1000.0,
	}
}

func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 {
		return 0
	}
	rank := uint64(math.Ceil(q * float64(total)))
	for _, upper := range uppers {
		if cumulativeByUpper[upper] >= rank {
			if math.IsInf(upper, 1) {
				break
			}
			return upper
		}
	}
	// Everything landed in the +Inf bucket; report the largest finite bound.
	for i := len(uppers) - 1; i >= 0; i-- {
		if !math.IsInf(uppers[i], 1) {
			return uppers[i]
		}
	}
	return 0
}
