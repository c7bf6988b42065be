package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	ScrapeSuccess    = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_scrapes_total", Help: "Companies scraped successfully"})
	ScrapeFailures   = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_scrape_failures_total", Help: "Company scrapes that failed"})
	JobsScraped      = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_jobs_scraped_total", Help: "Raw jobs scraped"})
	BatchesExtracted = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_batches_extracted_total", Help: "Extraction batches completed"})
	JobsExtracted    = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_jobs_extracted_total", Help: "Jobs extracted successfully"})
	ExtractErrors    = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_extract_errors_total", Help: "Per-job extraction failures"})
	TaskRetries      = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_task_retries_total", Help: "Tasks scheduled for retry"})
	TaskDeadLetter   = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_dead_letter_total", Help: "Tasks moved to DLQ"})
	QueueDepthGauge  = prometheus.NewGauge(prometheus.GaugeOpts{Name: "pipeline_queue_depth", Help: "Ready plus scheduled tasks"})
	InFlightGauge    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "pipeline_inflight", Help: "Tasks currently leased"})
	ActiveWorkers    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "pipeline_active_workers", Help: "Worker goroutines running"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			ScrapeSuccess,
			ScrapeFailures,
			JobsScraped,
			BatchesExtracted,
			JobsExtracted,
			ExtractErrors,
			TaskRetries,
			TaskDeadLetter,
			QueueDepthGauge,
			InFlightGauge,
			ActiveWorkers,
		)
	})
	return promhttp.Handler()
}
