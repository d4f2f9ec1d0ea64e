package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	EntriesApplied *prometheus.CounterVec
	EntriesReplays prometheus.Counter
	EntriesBlocked prometheus.Counter

	// Callback metrics
	CallbacksReceived *prometheus.CounterVec
	CallbackDuration  *prometheus.HistogramVec
	CallbacksDropped  *prometheus.CounterVec
	CallbacksReplayed prometheus.Counter

	// Commission metrics
	CommissionsCreated *prometheus.CounterVec
	CommissionsSettled prometheus.Counter
	CommissionsSkipped *prometheus.CounterVec

	// Withdrawal metrics
	WithdrawalTransitions *prometheus.CounterVec

	// Gateway metrics
	GatewayRequests *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
	GatewayErrors   *prometheus.CounterVec

	// Sweep metrics
	IntentsSwept *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Notifier metrics
	EventsPublished *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		EntriesApplied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_ledger_entries_applied_total",
				Help: "Total ledger entries applied by kind",
			},
			[]string{"kind"},
		),
		EntriesReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paycore_ledger_entry_replays_total",
			Help: "Total idempotent replays returned unchanged",
		}),
		EntriesBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paycore_ledger_entries_blocked_total",
			Help: "Total debits rejected for insufficient balance",
		}),

		CallbacksReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_callbacks_received_total",
				Help: "Total gateway callbacks received by direction",
			},
			[]string{"direction"},
		),
		CallbackDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paycore_callback_duration_seconds",
				Help:    "Duration of callback reconciliation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"direction"},
		),
		CallbacksDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_callbacks_dropped_total",
				Help: "Total callbacks acknowledged but not reconciled, by reason",
			},
			[]string{"reason"},
		),
		CallbacksReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paycore_callbacks_replayed_total",
			Help: "Total duplicate callbacks for already-final intents",
		}),

		CommissionsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_commissions_created_total",
				Help: "Total commissions created by kind",
			},
			[]string{"kind"},
		),
		CommissionsSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paycore_commissions_settled_total",
			Help: "Total commissions folded into referrer ledgers",
		}),
		CommissionsSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_commissions_skipped_total",
				Help: "Total commission evaluations skipped, by reason",
			},
			[]string{"reason"},
		),

		WithdrawalTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_withdrawal_transitions_total",
				Help: "Total withdrawal state transitions by target state",
			},
			[]string{"to"},
		),

		GatewayRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_gateway_requests_total",
				Help: "Total gateway requests by operation",
			},
			[]string{"operation"},
		),
		GatewayDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paycore_gateway_duration_seconds",
				Help:    "Duration of gateway requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		GatewayErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_gateway_errors_total",
				Help: "Total gateway errors by class",
			},
			[]string{"class"},
		),

		IntentsSwept: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_intents_swept_total",
				Help: "Total pending intents timed out by the sweep, by direction",
			},
			[]string{"direction"},
		),

		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paycore_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_status_events_published_total",
				Help: "Total status events published by subject",
			},
			[]string{"subject"},
		),
	}
}
