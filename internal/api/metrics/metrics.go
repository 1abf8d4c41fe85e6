// Package metrics defines and registers the custom Prometheus metrics of the
// portal. It is the single source of truth for metric names, labels, and help
// strings. All metrics register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthEventsTotal counts session lifecycle operations.
// Labels:
//   - kind: "login", "logout", "register", "refresh", "profile_update", "school_select"
//   - result: "ok" or "error"
var AuthEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Total number of authentication operations, by kind and result.",
	},
	[]string{"kind", "result"},
)

// UnrecognizedRolesTotal counts role strings that were not one of the known
// roles and fell back to learner.
var UnrecognizedRolesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unrecognized_role_total",
		Help:      "Total number of unrecognized role values that defaulted to learner.",
	},
)

// ── Guard metrics ─────────────────────────────────────────────────────────────

// GuardDecisionsTotal counts route guard outcomes.
// Labels:
//   - outcome: "render", "redirect_login", "redirect_home", "redirect_school_select"
//   - role: the subject's role, or "anonymous"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions, by outcome and role.",
	},
	[]string{"outcome", "role"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionStorageErrorsTotal counts storage failures the session store swallowed.
// Label:
//   - op: "get", "set", "delete", "decode_user", "encode_user"
var SessionStorageErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_storage_errors_total",
		Help:      "Total number of non-fatal session storage errors, by operation.",
	},
	[]string{"op"},
)

// SessionsCreatedTotal counts new session cookies issued.
var SessionsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_created_total",
		Help:      "Total number of new browser sessions.",
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of audit events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditDroppedTotal counts audit events discarded because a worker channel was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of audit events dropped due to a full queue.",
	},
)

// AuditWriteDuration measures how long persisting one audit event takes.
// Label:
//   - result: "ok" or "error"
var AuditWriteDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_write_duration_seconds",
		Help:      "Duration of audit event persistence from dequeue to write.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
