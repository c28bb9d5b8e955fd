// Package metrics exposes the Prometheus collectors of the point ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "point_ledger"

var LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "entries_total",
	Help:      "Ledger entries written, by category and direction.",
}, []string{"category", "direction"})

var LedgerPoints = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "points_total",
	Help:      "Absolute points moved through the ledger, by category.",
}, []string{"category"})

var Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "submissions_total",
	Help:      "Submission attempts by outcome.",
}, []string{"result"})

var Purchases = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "purchases_total",
	Help:      "Purchase attempts by outcome.",
}, []string{"result"})

var PurchasesExpired = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "purchases_expired_total",
	Help:      "Purchases persisted as EXPIRED, lazily or by the sweeper.",
})

var OutboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "outbox_messages_total",
	Help:      "Outbox messages handled by the poller, by outcome.",
}, []string{"result"})

var AuditProjected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "audit_events_total",
	Help:      "Ledger events consumed by the audit projector, by outcome.",
}, []string{"result"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "http_requests_total",
	Help:      "HTTP requests served, by method, route and status code.",
}, []string{"method", "route", "status"})

var HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request latency, by method and route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// Outcome labels shared by the counters above.
const (
	ResultOK        = "ok"
	ResultRejected  = "rejected"
	ResultError     = "error"
	ResultDuplicate = "duplicate"
	ResultRetry     = "retry"
	ResultFailed    = "failed"
	ResultDLQ       = "dlq"
)

// RecordEntry counts one ledger entry with a signed amount.
func RecordEntry(category string, amount int64) {
	direction := "credit"
	if amount < 0 {
		direction = "debit"
		amount = -amount
	}
	LedgerEntries.WithLabelValues(category, direction).Inc()
	LedgerPoints.WithLabelValues(category).Add(float64(amount))
}
