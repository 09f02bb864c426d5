package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// FundingMetrics tracks ledger operation volume and failure modes.
type FundingMetrics struct {
	operations *prometheus.CounterVec
	repayments prometheus.Counter
	yieldPaid  prometheus.Counter
}

var (
	fundingOnce     sync.Once
	fundingRegistry *FundingMetrics
)

// Funding returns the process-wide funding metrics registry.
func Funding() *FundingMetrics {
	fundingOnce.Do(func() {
		fundingRegistry = &FundingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "funding_operations_total",
				Help: "Count of funding ledger operations by name and outcome.",
			}, []string{"op", "outcome"}),
			repayments: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "funding_repayments_total",
				Help: "Count of accepted monthly repayments.",
			}),
			yieldPaid: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "funding_yield_claims_total",
				Help: "Count of successful investor yield claims.",
			}),
		}
		prometheus.MustRegister(
			fundingRegistry.operations,
			fundingRegistry.repayments,
			fundingRegistry.yieldPaid,
		)
	})
	return fundingRegistry
}

// RecordOperation counts one operation with its outcome ("ok" or "error").
func (m *FundingMetrics) RecordOperation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// RecordRepayment counts one accepted repayment.
func (m *FundingMetrics) RecordRepayment() {
	if m == nil {
		return
	}
	m.repayments.Inc()
}

// RecordYieldClaim counts one successful yield claim.
func (m *FundingMetrics) RecordYieldClaim() {
	if m == nil {
		return
	}
	m.yieldPaid.Inc()
}
