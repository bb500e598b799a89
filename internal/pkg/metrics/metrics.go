// Package metrics defines and registers all custom Prometheus metrics for
// the iFly API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics registered through promauto attach to the default registry at
// package load; the router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ifly"

// ── Authorization metrics ─────────────────────────────────────────────────────

// AuthzDecisionsTotal counts access-layer authorization decisions.
// Labels:
//   - kind: the resource kind (e.g. "tickets")
//   - action: the operation name (e.g. "list", "add_message")
//   - outcome: "allow", "deny_unauthenticated", "deny_forbidden", or "error"
var AuthzDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_decisions_total",
		Help:      "Total number of authorization decisions by kind, action, and outcome.",
	},
	[]string{"kind", "action", "outcome"},
)

// BulkAffectedTotal counts records actually affected by bulk operations,
// after scope filtering dropped out-of-scope ids.
// Labels:
//   - kind: the resource kind
//   - op: the bulk operation ("delete")
var BulkAffectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bulk_affected_total",
		Help:      "Total number of records affected by bulk operations.",
	},
	[]string{"kind", "op"},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsSentTotal counts notifications that were actually delivered.
// Label:
//   - event: the triggering event name (e.g. "ticket_message")
var NotificationsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total number of notifications delivered, by event.",
	},
	[]string{"event"},
)

// NotificationsDedupTotal counts deduplication decisions.
// Label:
//   - result: "hit" (duplicate, skipped) or "miss" (new, delivered)
var NotificationsDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dedup_total",
		Help:      "Total number of notification dedup checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// NotificationQueueDepth tracks the number of notifications waiting in each
// dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
