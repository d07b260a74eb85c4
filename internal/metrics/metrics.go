package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Database connection metrics
	// ============================================
	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridgeguard_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridgeguard_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type"},
	)

	// ============================================
	// NATS connection and message metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridgeguard_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridgeguard_nats_events_published_total",
			Help: "Total number of NATS events published",
		},
		[]string{"stream", "event_type"},
	)

	// ============================================
	// Provider quote metrics
	// ============================================
	ProviderQuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridgeguard_provider_quote_requests_total",
			Help: "Total number of quote requests per provider",
		},
		[]string{"provider"},
	)

	ProviderQuoteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridgeguard_provider_quote_failures_total",
			Help: "Total number of failed quote requests per provider",
		},
		[]string{"provider", "error_type"},
	)

	ProviderQuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridgeguard_provider_quote_duration_seconds",
			Help:    "Quote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// ============================================
	// Account engine metrics
	// ============================================
	RecoveryRequestsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridgeguard_recovery_requests_active",
		Help: "Number of pending recovery requests",
	})

	RecoveryExecutions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridgeguard_recovery_executions_total",
		Help: "Total number of executed recoveries",
	})

	BatchExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridgeguard_batch_executions_total",
			Help: "Total number of batch executions",
		},
		[]string{"result"},
	)

	// ============================================
	// Route execution metrics
	// ============================================
	RouteExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridgeguard_route_executions_total",
			Help: "Total number of route executions",
		},
		[]string{"protocol", "result"},
	)

	// ============================================
	// Websocket push metrics
	// ============================================
	WebsocketClientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridgeguard_websocket_clients_connected",
		Help: "Number of connected websocket clients",
	})
)
