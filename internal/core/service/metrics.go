package service

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rl1809/time-sale/internal/core/domain"
	"github.com/rl1809/time-sale/internal/port"
)

type PurchaseMetrics struct {
	purchases *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func NewPurchaseMetrics(reg prometheus.Registerer) *PurchaseMetrics {
	m := &PurchaseMetrics{
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timesale_purchases_total",
			Help: "Purchase attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timesale_purchase_duration_seconds",
			Help:    "Purchase latency by strategy, lock wait included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
	}
	reg.MustRegister(m.purchases, m.duration)
	return m
}

// MeteredPurchaser wraps a Purchaser with timing and outcome counters. It
// is composed explicitly at construction time; nothing is proxied or
// annotated.
type MeteredPurchaser struct {
	next     Purchaser
	strategy string
	metrics  *PurchaseMetrics
}

func NewMeteredPurchaser(next Purchaser, strategy string, metrics *PurchaseMetrics) *MeteredPurchaser {
	return &MeteredPurchaser{next: next, strategy: strategy, metrics: metrics}
}

func (m *MeteredPurchaser) Purchase(ctx context.Context, saleID string, userID int64, quantity int) (*domain.Sale, *domain.Order, error) {
	start := time.Now()
	sale, order, err := m.next.Purchase(ctx, saleID, userID, quantity)

	m.metrics.purchases.WithLabelValues(m.strategy, outcomeLabel(err)).Inc()
	m.metrics.duration.WithLabelValues(m.strategy).Observe(time.Since(start).Seconds())
	return sale, order, err
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, port.ErrLockUnavailable):
		return "lock_unavailable"
	case errors.Is(err, domain.ErrInsufficientInventory):
		return "sold_out"
	case errors.Is(err, domain.ErrSaleNotActive),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrSaleNotFound):
		return "rejected"
	default:
		return "error"
	}
}
