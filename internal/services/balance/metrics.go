package balance

import "github.com/shopspring/decimal"

// MetricsCollector receives balance operation metrics.
type MetricsCollector interface {
	RecordOperation(op, currency string, amount decimal.Decimal)
	RecordError(op, errType string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperation(string, string, decimal.Decimal) {}
func (n *NoopMetricsCollector) RecordError(string, string)                      {}
