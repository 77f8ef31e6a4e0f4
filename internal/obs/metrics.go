// Package obs holds the domain-level observability instruments.
package obs

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts the business events of the sale pipeline.
type Metrics struct {
	salesCommitted    metric.Int64Counter
	stockClamped      metric.Int64Counter
	reconcileFailures metric.Int64Counter
	budgetConversions metric.Int64Counter
}

// NewMetrics registers the pipeline counters on the given meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("pos-api")

	var (
		m   Metrics
		err error
	)
	if m.salesCommitted, err = meter.Int64Counter("pos_sales_committed_total",
		metric.WithDescription("Sales successfully committed")); err != nil {
		return nil, errors.Wrap(err, "sales counter")
	}
	if m.stockClamped, err = meter.Int64Counter("pos_stock_clamped_total",
		metric.WithDescription("Stock decrements clamped at the zero floor")); err != nil {
		return nil, errors.Wrap(err, "clamp counter")
	}
	if m.reconcileFailures, err = meter.Int64Counter("pos_stock_reconcile_failures_total",
		metric.WithDescription("Per-item stock reconcile failures")); err != nil {
		return nil, errors.Wrap(err, "reconcile counter")
	}
	if m.budgetConversions, err = meter.Int64Counter("pos_budget_conversions_total",
		metric.WithDescription("Budgets converted into sales")); err != nil {
		return nil, errors.Wrap(err, "conversion counter")
	}
	return &m, nil
}

// SaleCommitted records one committed sale.
func (m *Metrics) SaleCommitted(ctx context.Context) {
	if m == nil {
		return
	}
	m.salesCommitted.Add(ctx, 1)
}

// StockClamped records one decrement that hit the zero floor.
func (m *Metrics) StockClamped(ctx context.Context) {
	if m == nil {
		return
	}
	m.stockClamped.Add(ctx, 1)
}

// ReconcileFailed records one non-fatal stock reconcile failure.
func (m *Metrics) ReconcileFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.reconcileFailures.Add(ctx, 1)
}

// BudgetConverted records one successful budget conversion.
func (m *Metrics) BudgetConverted(ctx context.Context) {
	if m == nil {
		return
	}
	m.budgetConversions.Add(ctx, 1)
}
