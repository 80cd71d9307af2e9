package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Custom histogram buckets for API response times ranging from milliseconds to 30+ seconds
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34}

	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Database Client Metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_client_operation_duration_seconds",
			Help:    "Database client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	DBOperationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_client_operation_total",
			Help: "Total number of database client operations",
		},
		[]string{"operation", "status"},
	)

	// Session verifier cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_name"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_name"},
	)

	// Storage Client Metrics (receipt images)
	StorageRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_client_operation_duration_seconds",
			Help:    "Storage client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	StorageRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_client_operation_total",
			Help: "Total number of storage client operations",
		},
		[]string{"operation", "status"},
	)

	// OCR provider
	OCRRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocr_client_operation_duration_seconds",
			Help:    "OCR provider call duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"status"},
	)

	// Mail dispatch
	MailDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_mail_dispatch_total",
			Help: "Total number of outbound emails by provider and status",
		},
		[]string{"provider", "status"},
	)

	// Magic link business metrics
	MagicLinkRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_magic_link_requests_total",
			Help: "Total number of magic link requests",
		},
		[]string{"status"},
	)

	MagicLinkRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pantry_magic_link_request_duration_seconds",
			Help:    "Duration of magic link issuance including mail dispatch",
			Buckets: CustomAPIBuckets,
		},
	)

	MagicLinkPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_magic_link_polls_total",
			Help: "Total number of magic link polls by outcome",
		},
		[]string{"outcome"},
	)

	MagicLinkConsumptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_magic_link_consumptions_total",
			Help: "Total number of magic link clicks by outcome",
		},
		[]string{"outcome"},
	)

	SessionExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_session_exchanges_total",
			Help: "Total number of login token to session exchanges by outcome",
		},
		[]string{"outcome"},
	)

	SessionGateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_session_gate_decisions_total",
			Help: "Session gate decisions for protected paths",
		},
		[]string{"decision"},
	)

	// Rate limiting
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_rate_limit_rejections_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)

	RateLimitTrackedIdentifiers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pantry_rate_limit_tracked_identifiers",
			Help: "Identifiers currently tracked by a rate limiter",
		},
		[]string{"limiter"},
	)

	// Background jobs
	LoginTokensPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pantry_login_tokens_purged_total",
			Help: "Login tokens deleted by the retention job",
		},
	)

	// Pantry domain
	ReceiptScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_receipt_scans_total",
			Help: "Total number of receipt scans",
		},
		[]string{"status"},
	)

	// Infrastructure Metrics
	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

// RecordInfrastructureMetrics collects infrastructure metrics periodically until stop is closed
func RecordInfrastructureMetrics(stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				var m runtime.MemStats
				runtime.ReadMemStats(&m)

				GoRoutines.Set(float64(runtime.NumGoroutine()))
				HeapAlloc.Set(float64(m.HeapAlloc))
			}
		}
	}()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// RecordDBOperation records a database operation outcome
func RecordDBOperation(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := MeasureDuration(start)
	DBOperationDuration.WithLabelValues(operation, status).Observe(duration)
	DBOperationTotal.WithLabelValues(operation, status).Inc()
}
