package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docpress",
			Name:      "jobs_total",
			Help:      "Compression jobs by result (ok, rejected, failed)",
		},
		[]string{"result"},
	)

	jobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docpress",
			Name:      "job_duration_seconds",
			Help:      "Wall time of a compression job",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160, 320},
		},
	)

	pagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docpress",
			Name:      "pages_total",
			Help:      "Pages processed by content category",
		},
		[]string{"category"},
	)

	budgetPasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docpress",
			Name:      "budget_passes_total",
			Help:      "Budget re-encoding passes run across all jobs",
		},
	)

	reencodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docpress",
			Name:      "reencodes_total",
			Help:      "Per-page budget searches by whether the budget was met",
		},
		[]string{"met"},
	)

	documentBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docpress",
			Name:      "document_bytes",
			Help:      "Size of assembled documents",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 2, 12),
		},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "docpress",
			Name:      "queue_depth",
			Help:      "Queue depth gauges for stream and dlq",
		},
		[]string{"type"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(jobsTotal, jobDuration, pagesTotal, budgetPasses, reencodes, documentBytes, queueDepth)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveJob(result string, dur time.Duration) {
	jobsTotal.WithLabelValues(result).Inc()
	jobDuration.Observe(dur.Seconds())
}

func IncPage(category string) { pagesTotal.WithLabelValues(category).Inc() }
func IncBudgetPass()          { budgetPasses.Inc() }
func IncReencode(met bool)    { reencodes.WithLabelValues(boolToStr(met)).Inc() }

func ObserveDocument(bytes int64) { documentBytes.Observe(float64(bytes)) }

func SetQueueDepth(kind string, v int64) { queueDepth.WithLabelValues(kind).Set(float64(v)) }

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
