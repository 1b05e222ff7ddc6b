// Package metrics defines and registers all custom Prometheus metrics for
// LifeHub. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default registry on package init through
// promauto, so importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lifehub"

// ── Ledger metrics ────────────────────────────────────────────────────────────

// LedgerOperationsTotal counts ledger operations by outcome.
// Labels:
//   - operation: "earn_activity", "redeem_reward" or "reconcile"
//   - result: "ok", "already_completed", "replayed", "insufficient_balance", "busy", "error"
var LedgerOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_operations_total",
		Help:      "Total number of ledger operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// CoinsMovedTotal sums coins credited or debited.
// Label:
//   - transaction_type: "earn_activity" or "spend_reward"
var CoinsMovedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coins_moved_total",
		Help:      "Total coins moved by confirmed ledger writes, by transaction type.",
	},
	[]string{"transaction_type"},
)

// LedgerOperationDuration measures a ledger operation from request to commit.
var LedgerOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ledger_operation_duration_seconds",
		Help:      "Duration of ledger operations including gateway round trips.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// ActiveSessions is the number of sessions held by the registry.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Current number of in-memory profile sessions.",
	},
)

// SignupsTotal counts successful sign-ups by role.
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of accounts created, by role.",
	},
	[]string{"role"},
)

// ── Change feed metrics ───────────────────────────────────────────────────────

// ProfileEventsTotal counts profile change notifications.
// Labels:
//   - source: "mongo_change_stream" or "postgres_notify"
//   - delivery: "row" (payload applied), "reload" (no row, reloaded) or "unrouted"
var ProfileEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_events_total",
		Help:      "Total number of profile change notifications handled.",
	},
	[]string{"source", "delivery"},
)

// ProfileEventsQueueDepth tracks pending notifications per dispatcher worker.
var ProfileEventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "profile_events_queue_depth",
		Help:      "Current number of profile events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
