// Package metrics exposes ledger counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Prometheus metric names.
const (
	MetricPaymentsTotal         = "ledger_payments_total"
	MetricAmountAppliedTotal    = "ledger_amount_applied_total"
	MetricItemsLiquidatedTotal  = "ledger_items_liquidated_total"
	MetricUnallocatedTotal      = "ledger_unallocated_amount_total"
	MetricPaymentsReversedTotal = "ledger_payments_reversed_total"
	MetricTxRetriesTotal        = "ledger_tx_retries_total"
	MetricAgreementsTotal       = "ledger_agreement_transitions_total"
	MetricSummaryCacheTotal     = "ledger_summary_cache_requests_total"
	MetricOperationDurationSecs = "ledger_operation_duration_seconds"
)

// Recorder is what the service layer reports to
type Recorder interface {
	PaymentRecorded(paymentType string, applied decimal.Decimal, liquidated int)
	Unallocated(policy string, amount decimal.Decimal)
	PaymentReversed(paymentType string)
	TxRetried(operation string)
	AgreementTransition(status string)
	SummaryCache(hit bool)
	ObserveOperation(operation string, started time.Time)
}

// LedgerMetrics holds the collectors on a private registry.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type LedgerMetrics struct {
	registry *prometheus.Registry

	payments          *prometheus.CounterVec
	amountApplied     *prometheus.CounterVec
	itemsLiquidated   prometheus.Counter
	unallocated       *prometheus.CounterVec
	reversed          *prometheus.CounterVec
	txRetries         *prometheus.CounterVec
	agreements        *prometheus.CounterVec
	summaryCache      *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// New registers every ledger collector plus the Go and process collectors
func New() *LedgerMetrics {
	registry := prometheus.NewRegistry()

	m := &LedgerMetrics{
		registry: registry,
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPaymentsTotal,
			Help: "Ledger payments recorded, by payment type",
		}, []string{"type"}),
		amountApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricAmountAppliedTotal,
			Help: "Money applied to debt items, by payment type",
		}, []string{"type"}),
		itemsLiquidated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricItemsLiquidatedTotal,
			Help: "Debt items fully liquidated by a payment",
		}),
		unallocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricUnallocatedTotal,
			Help: "Payment amount exceeding outstanding debt, by overpayment policy",
		}, []string{"policy"}),
		reversed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPaymentsReversedTotal,
			Help: "Payments deleted and reversed, by payment type",
		}, []string{"type"}),
		txRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricTxRetriesTotal,
			Help: "Units of work retried after a concurrency conflict",
		}, []string{"operation"}),
		agreements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricAgreementsTotal,
			Help: "Agreements entering a status",
		}, []string{"status"}),
		summaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSummaryCacheTotal,
			Help: "Debt summary cache lookups, by result",
		}, []string{"result"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricOperationDurationSecs,
			Help:    "Duration of ledger operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	registry.MustRegister(
		m.payments,
		m.amountApplied,
		m.itemsLiquidated,
		m.unallocated,
		m.reversed,
		m.txRetries,
		m.agreements,
		m.summaryCache,
		m.operationDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *LedgerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *LedgerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *LedgerMetrics) PaymentRecorded(paymentType string, applied decimal.Decimal, liquidated int) {
	m.payments.WithLabelValues(paymentType).Inc()
	m.amountApplied.WithLabelValues(paymentType).Add(applied.InexactFloat64())
	m.itemsLiquidated.Add(float64(liquidated))
}

func (m *LedgerMetrics) Unallocated(policy string, amount decimal.Decimal) {
	m.unallocated.WithLabelValues(policy).Add(amount.InexactFloat64())
}

func (m *LedgerMetrics) PaymentReversed(paymentType string) {
	m.reversed.WithLabelValues(paymentType).Inc()
}

func (m *LedgerMetrics) TxRetried(operation string) {
	m.txRetries.WithLabelValues(operation).Inc()
}

func (m *LedgerMetrics) AgreementTransition(status string) {
	m.agreements.WithLabelValues(status).Inc()
}

func (m *LedgerMetrics) SummaryCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.summaryCache.WithLabelValues(result).Inc()
}

func (m *LedgerMetrics) ObserveOperation(operation string, started time.Time) {
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Nop discards everything
type Nop struct{}

func (Nop) PaymentRecorded(string, decimal.Decimal, int) {}
func (Nop) Unallocated(string, decimal.Decimal)          {}
func (Nop) PaymentReversed(string)                       {}
func (Nop) TxRetried(string)                             {}
func (Nop) AgreementTransition(string)                   {}
func (Nop) SummaryCache(bool)                            {}
func (Nop) ObserveOperation(string, time.Time)           {}
