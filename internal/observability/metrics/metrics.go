package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "salon"

// Fully qualified names read back by Totals.
const (
	FetchTotalName  = namespace + "_sheets_fetch_total"
	SubmitTotalName = namespace + "_sheets_submit_total"
)

// WidgetMetrics exposes counters/histograms for schedule refreshes and
// booking submissions.
type WidgetMetrics struct {
	fetchTotal      *prometheus.CounterVec
	fetchLatency    prometheus.Histogram
	submitTotal     *prometheus.CounterVec
	dropsTotal      *prometheus.CounterVec
	snapshotRecords *prometheus.GaugeVec
	snapshotFetched prometheus.Gauge
	slotsOffered    prometheus.Histogram
	cacheTotal      *prometheus.CounterVec
}

func NewWidgetMetrics(reg prometheus.Registerer) *WidgetMetrics {
	m := &WidgetMetrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sheets",
			Name:      "fetch_total",
			Help:      "Schedule downloads from the spreadsheet service",
		}, []string{"result"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sheets",
			Name:      "fetch_latency_seconds",
			Help:      "Latency of schedule downloads",
			Buckets:   prometheus.DefBuckets,
		}),
		submitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sheets",
			Name:      "submit_total",
			Help:      "Booking requests by outcome",
		}, []string{"result"}),
		dropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "dropped_records_total",
			Help:      "Spreadsheet rows dropped during normalization",
		}, []string{"kind"}),
		snapshotRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "snapshot_records",
			Help:      "Records held by the current snapshot",
		}, []string{"kind"}),
		snapshotFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "snapshot_fetched_timestamp_seconds",
			Help:      "Unix time the current snapshot was fetched",
		}),
		slotsOffered: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "free_slots",
			Help:      "Number of free slots returned per day view",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "cache_total",
			Help:      "Snapshot cache operations",
		}, []string{"op", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.fetchTotal, m.fetchLatency, m.submitTotal, m.dropsTotal,
		m.snapshotRecords, m.snapshotFetched, m.slotsOffered, m.cacheTotal)
	return m
}

// ObserveFetch records a schedule download. result is "success", "error" or
// "superseded".
func (m *WidgetMetrics) ObserveFetch(result string, seconds float64) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(result).Inc()
	m.fetchLatency.Observe(seconds)
}

// ObserveSubmit records a booking outcome: "success", "invalid" or "error".
func (m *WidgetMetrics) ObserveSubmit(result string) {
	if m == nil {
		return
	}
	m.submitTotal.WithLabelValues(result).Inc()
}

// ObserveSnapshot records the contents of a newly applied snapshot.
func (m *WidgetMetrics) ObserveSnapshot(windows, appointments int, drops map[string]int, fetchedAtUnix float64) {
	if m == nil {
		return
	}
	m.snapshotRecords.WithLabelValues("window").Set(float64(windows))
	m.snapshotRecords.WithLabelValues("appointment").Set(float64(appointments))
	m.snapshotFetched.Set(fetchedAtUnix)
	for kind, n := range drops {
		m.dropsTotal.WithLabelValues(kind).Add(float64(n))
	}
}

func (m *WidgetMetrics) ObserveSlots(n int) {
	if m == nil {
		return
	}
	m.slotsOffered.Observe(float64(n))
}

// ObserveCache records a cache operation ("load" or "store") and its result.
func (m *WidgetMetrics) ObserveCache(op, result string) {
	if m == nil {
		return
	}
	m.cacheTotal.WithLabelValues(op, result).Inc()
}

// Totals sums the counter family name by its "result" label.
func Totals(gatherer prometheus.Gatherer, name string) map[string]float64 {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	out := map[string]float64{}
	mfs, err := gatherer.Gather()
	if err != nil {
		return out
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == name {
			family = mf
			break
		}
	}
	if family == nil {
		return out
	}
	for _, metric := range family.Metric {
		if metric == nil || metric.GetCounter() == nil {
			continue
		}
		out[labelValue(metric, "result")] += metric.GetCounter().GetValue()
	}
	return out
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
