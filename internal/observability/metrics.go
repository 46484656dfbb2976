package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	submissionsIngested   *prometheus.CounterVec
	submissionsRejected   *prometheus.CounterVec
	answersDropped        *prometheus.CounterVec
	itemsAutoGraded       *prometheus.CounterVec
	gradingBatches        *prometheus.CounterVec
	gradesOverWeight      prometheus.Counter
	statsCacheLookups     *prometheus.CounterVec
	gradingEventsTotal    *prometheus.CounterVec
	eventClientsConnected prometheus.Gauge
	requestsThrottled     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_ingested_total",
			Help: "Submissions accepted and auto-graded.",
		}, []string{"source_kind"})

		submissionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_rejected_total",
			Help: "Submissions refused before commit, by reason.",
		}, []string{"source_kind", "reason"})

		answersDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_answers_dropped_total",
			Help: "Answers that referenced a question not linked to the source.",
		}, []string{"source_kind"})

		itemsAutoGraded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_items_autograded_total",
			Help: "Objective items scored automatically, by result.",
		}, []string{"result"})

		gradingBatches = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_batches_total",
			Help: "Manual grading batches, by outcome.",
		}, []string{"outcome"})

		gradesOverWeight = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_scores_over_weight_total",
			Help: "Manual scores that exceeded the linked item weight.",
		})

		statsCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_stats_cache_total",
			Help: "Submission stats cache lookups, by result.",
		}, []string{"result"})

		gradingEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_events_total",
			Help: "Grading events delivered to local subscribers, by type.",
		}, []string{"type"})

		eventClientsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grading_event_clients_active",
			Help: "Websocket clients currently watching grading events.",
		})

		requestsThrottled = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_throttled_total",
			Help: "Requests refused by a rate limiter, by limiter.",
		}, []string{"limiter"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			submissionsIngested,
			submissionsRejected,
			answersDropped,
			itemsAutoGraded,
			gradingBatches,
			gradesOverWeight,
			statsCacheLookups,
			gradingEventsTotal,
			eventClientsConnected,
			requestsThrottled,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// SubmissionsIngested counts committed submissions.
func SubmissionsIngested() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsIngested
}

// SubmissionsRejected counts submissions refused before commit.
func SubmissionsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsRejected
}

// AnswersDropped counts answers without a matching question link.
func AnswersDropped() *prometheus.CounterVec {
	RegisterMetrics()
	return answersDropped
}

// ItemsAutoGraded counts objective items scored on ingest.
func ItemsAutoGraded() *prometheus.CounterVec {
	RegisterMetrics()
	return itemsAutoGraded
}

// GradingBatches counts manual grading batches.
func GradingBatches() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingBatches
}

// GradesOverWeight counts manual scores above the item weight.
func GradesOverWeight() prometheus.Counter {
	RegisterMetrics()
	return gradesOverWeight
}

// StatsCacheLookups counts stats cache hits and misses.
func StatsCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return statsCacheLookups
}

// GradingEvents counts events delivered to local subscribers.
func GradingEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingEventsTotal
}

// EventClientsActive tracks connected websocket watchers.
func EventClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return eventClientsConnected
}

// RequestsThrottled counts requests refused by a rate limiter.
func RequestsThrottled() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsThrottled
}

// MetricsHandler exposes the Prometheus scrape endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
