package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Malformed line kinds
const (
	KindFormat = "format"
	KindValue  = "value"
)

type Stats interface {
	// traffic
	AddLinesDispatched(n int)
	AddRecordsAggregated(n int)

	// errors
	IncMalformed(kind string)
	IncStreamFailed()

	// latency
	ObserveWorkerDuration(d time.Duration)
	ObserveMergeDuration(d time.Duration)

	// saturation
	SetDistinctKeys(n int)
	SetQueueBacklog(worker, n int)
	WorkerStarted()
	WorkerDone()
}

type PrometheusStats struct {
	// traffic
	LinesDispatched   prometheus.Counter
	RecordsAggregated prometheus.Counter

	// errors
	MalformedLines *prometheus.CounterVec
	StreamFailed   prometheus.Counter

	// latency
	WorkerDuration prometheus.Histogram
	MergeDuration  prometheus.Histogram

	// saturation
	DistinctKeys   prometheus.Gauge
	QueueBacklog   *prometheus.GaugeVec
	WorkersRunning prometheus.Gauge
}

func NewPrometheusStats(reg prometheus.Registerer) *PrometheusStats {
	m := &PrometheusStats{
		LinesDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_lines_dispatched_total",
			Help: "Total number of input lines routed to a worker",
		}),
		RecordsAggregated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_records_aggregated_total",
			Help: "Total number of well-formed records folded into a worker table",
		}),
		MalformedLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregator_malformed_lines_total",
			Help: "Total number of skipped malformed lines by kind",
		}, []string{"kind"}),
		StreamFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_stream_failures_total",
			Help: "Total number of fatal input stream failures",
		}),
		WorkerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aggregator_worker_duration_seconds",
			Help:    "Time from worker start to its queue being drained",
			Buckets: prometheus.DefBuckets,
		}),
		MergeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aggregator_merge_duration_seconds",
			Help:    "Time spent merging the per-worker tables",
			Buckets: prometheus.DefBuckets,
		}),
		DistinctKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aggregator_distinct_keys",
			Help: "Number of distinct keys in the last merged result",
		}),
		QueueBacklog: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aggregator_queue_backlog_batches",
			Help: "Batches waiting in each worker queue, sampled at every send",
		}, []string{"worker"}),
		WorkersRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aggregator_workers_running",
			Help: "Number of workers still receiving lines",
		}),
	}

	reg.MustRegister(
		m.LinesDispatched,
		m.RecordsAggregated,
		m.MalformedLines,
		m.StreamFailed,
		m.WorkerDuration,
		m.MergeDuration,
		m.DistinctKeys,
		m.QueueBacklog,
		m.WorkersRunning,
	)

	return m
}

func (m *PrometheusStats) AddLinesDispatched(n int) {
	m.LinesDispatched.Add(float64(n))
}

func (m *PrometheusStats) AddRecordsAggregated(n int) {
	m.RecordsAggregated.Add(float64(n))
}

func (m *PrometheusStats) IncMalformed(kind string) {
	m.MalformedLines.WithLabelValues(kind).Inc()
}

func (m *PrometheusStats) IncStreamFailed() {
	m.StreamFailed.Inc()
}

func (m *PrometheusStats) ObserveWorkerDuration(d time.Duration) {
	m.WorkerDuration.Observe(d.Seconds())
}

func (m *PrometheusStats) ObserveMergeDuration(d time.Duration) {
	m.MergeDuration.Observe(d.Seconds())
}

func (m *PrometheusStats) SetDistinctKeys(n int) {
	m.DistinctKeys.Set(float64(n))
}

func (m *PrometheusStats) SetQueueBacklog(worker, n int) {
	m.QueueBacklog.WithLabelValues(strconv.Itoa(worker)).Set(float64(n))
}

func (m *PrometheusStats) WorkerStarted() {
	m.WorkersRunning.Inc()
}

func (m *PrometheusStats) WorkerDone() {
	m.WorkersRunning.Dec()
}

// NopStats discards every observation
type NopStats struct{}

func (NopStats) AddLinesDispatched(int)              {}
func (NopStats) AddRecordsAggregated(int)            {}
func (NopStats) IncMalformed(string)                 {}
func (NopStats) IncStreamFailed()                    {}
func (NopStats) ObserveWorkerDuration(time.Duration) {}
func (NopStats) ObserveMergeDuration(time.Duration)  {}
func (NopStats) SetDistinctKeys(int)                 {}
func (NopStats) SetQueueBacklog(int, int)            {}
func (NopStats) WorkerStarted()                      {}
func (NopStats) WorkerDone()                         {}
