package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "guestvoice"

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Authentication metrics
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Voice metrics
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_calls_total",
			Help: "Inbound calls by outcome",
		},
		[]string{"outcome"},
	)

	CallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_call_duration_seconds",
			Help:    "Duration of completed calls",
			Buckets: []float64{15, 30, 60, 120, 300, 600, 1200},
		},
	)

	// Request metrics
	RequestsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_requests_created_total",
			Help: "Guest requests created by type and source",
		},
		[]string{"type", "source"},
	)

	RequestsEscalatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_requests_escalated_total",
			Help: "Pending requests escalated by the scheduler",
		},
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_notifications_total",
			Help: "Notifications by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	// Realtime metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_websocket_clients",
			Help: "Connected dashboard WebSocket clients",
		},
	)

	WebSocketDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_websocket_dropped_total",
			Help: "Clients dropped because their send buffer was full",
		},
	)

	// Job metrics
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_job_runs_total",
			Help: "Scheduled job runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)

	// Memory monitor metrics
	HeapAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_monitor_heap_alloc_bytes",
			Help: "Heap bytes allocated at the last monitor sample",
		},
	)

	SysBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_monitor_sys_bytes",
			Help: "Bytes obtained from the OS at the last monitor sample",
		},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_monitor_goroutines",
			Help: "Goroutines at the last monitor sample",
		},
	)

	MemoryLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_monitor_memory_level",
			Help: "Memory pressure level: 0 ok, 1 warn, 2 critical",
		},
	)

	ForcedGCTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_monitor_forced_gc_total",
			Help: "Garbage collections forced by the memory monitor",
		},
	)
)
