package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce              sync.Once
	httpRequestsTotal         *prometheus.CounterVec
	httpLatencySeconds        *prometheus.HistogramVec
	httpErrorsTotal           *prometheus.CounterVec
	attendanceCellsSavedTotal *prometheus.CounterVec
	reportRendersTotal        *prometheus.CounterVec
	notificationsPublished    *prometheus.CounterVec
	sseClientsActive          prometheus.Gauge
	liveGridClientsActive     prometheus.Gauge
	uploadsTotal              *prometheus.CounterVec
	uploadLatencySeconds      prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edudash_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edudash_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edudash_http_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		attendanceCellsSavedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edudash_attendance_cells_saved_total",
			Help: "Attendance cells upserted, by person kind and status.",
		}, []string{"kind", "status"})

		reportRendersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edudash_report_renders_total",
			Help: "Attendance reports generated, by output format.",
		}, []string{"format"})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edudash_notifications_published_total",
			Help: "Notifications delivered to subscribers, by type.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edudash_sse_clients_active",
			Help: "Currently connected notification stream clients.",
		})

		liveGridClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edudash_live_grid_clients_active",
			Help: "Currently connected attendance grid websocket clients.",
		})

		uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edudash_uploads_total",
			Help: "File uploads to the hosted store, by kind and outcome.",
		}, []string{"kind", "outcome"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "edudash_upload_latency_seconds",
			Help:    "Latency of uploads to the hosted store.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			attendanceCellsSavedTotal,
			reportRendersTotal,
			notificationsPublished,
			sseClientsActive,
			liveGridClientsActive,
			uploadsTotal,
			uploadLatencySeconds,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// AttendanceCellsSaved counts upserted attendance cells.
func AttendanceCellsSaved() *prometheus.CounterVec {
	RegisterMetrics()
	return attendanceCellsSavedTotal
}

// ReportRenders counts generated report files.
func ReportRenders() *prometheus.CounterVec {
	RegisterMetrics()
	return reportRendersTotal
}

// NotificationsPublishedTotal counts delivered notifications.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// SSEClientsActive tracks open notification streams.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

// LiveGridClientsActive tracks open attendance websocket connections.
func LiveGridClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return liveGridClientsActive
}

// UploadsTotal counts uploads by kind and outcome.
func UploadsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsTotal
}

// UploadLatency observes upload durations.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}
