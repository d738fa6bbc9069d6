package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts coordinator operations by operation and result code
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_operations_total",
			Help: "Total number of bridge operations",
		},
		[]string{"operation", "result"},
	)

	// OperationDuration tracks operation latency, external ledger calls included
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_operation_duration_seconds",
			Help:    "Bridge operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// CurrentSupply tracks the committed supply of each asset in base units
	CurrentSupply = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_current_supply",
			Help: "Current supply of an asset in base units",
		},
		[]string{"asset"},
	)

	// NoncesUsed tracks the size of each asset's nonce registry
	NoncesUsed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_nonces_used",
			Help: "Number of used inbound nonces per asset",
		},
		[]string{"asset"},
	)

	// EventsEmitted counts committed bridge events
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_events_emitted_total",
			Help: "Total number of bridge events committed",
		},
		[]string{"kind"},
	)

	// CompensationsTotal counts compensating ledger calls issued after a failed commit
	CompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_compensations_total",
			Help: "Total number of compensating ledger calls",
		},
		[]string{"operation", "status"},
	)

	// TrustedRemoteSkips counts inbound transfers accepted without a registered remote
	TrustedRemoteSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_trusted_remote_skips_total",
			Help: "Inbound transfers accepted from chains without a trusted remote",
		},
		[]string{"chain"},
	)

	// HTTPRequestsTotal counts API requests by route pattern and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)
)
