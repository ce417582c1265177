package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type LedgerMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

type ProtocolMetrics struct {
	PaymentsSettledTotal   prometheus.Counter
	PaymentsRejectedTotal  *prometheus.CounterVec
	ReconcileFailuresTotal prometheus.Counter
}

var (
	Ledger = LedgerMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_console_upstream_requests_total",
				Help: "Total number of HTTP requests issued to the ledger service.",
			},
			[]string{"operation", "outcome"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_console_upstream_request_duration_seconds",
				Help:    "Histogram of ledger service call latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
	}

	Protocol = ProtocolMetrics{
		PaymentsSettledTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_console_payments_settled_total",
				Help: "Total number of payment protocol runs that reached Settled.",
			},
		),
		PaymentsRejectedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_console_payments_rejected_total",
				Help: "Total number of payment protocol runs that terminated in Rejected.",
			},
			[]string{"stage"},
		),
		ReconcileFailuresTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_console_payment_reconcile_failures_total",
				Help: "Payments accepted upstream whose follow-up fetch failed; the applied state is unconfirmed until the next reload.",
			},
		),
	}
)

func RecordLedgerRequest(operation, outcome string, duration time.Duration) {
	Ledger.RequestsTotal.WithLabelValues(operation, outcome).Inc()
	Ledger.RequestDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
}

func RecordPaymentSettled() {
	Protocol.PaymentsSettledTotal.Inc()
}

func RecordPaymentRejected(stage string) {
	Protocol.PaymentsRejectedTotal.WithLabelValues(stage).Inc()
}

func RecordReconcileFailure() {
	Protocol.ReconcileFailuresTotal.Inc()
}
