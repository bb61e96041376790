package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/time-sale/internal/core/domain"
	"github.com/rl1809/time-sale/internal/port"
)

// Purchaser is the purchase engine. Both serialization strategies implement
// it; exactly one of them governs a deployment.
type Purchaser interface {
	Purchase(ctx context.Context, saleID string, userID int64, quantity int) (*domain.Sale, *domain.Order, error)
}

// DBLockPurchaser serializes purchases for a sale on the database row lock.
// A caller blocks until the holding transaction ends; there is no wait
// timeout on this path.
type DBLockPurchaser struct {
	tm     port.TransactionManager
	logger *zap.Logger
}

func NewDBLockPurchaser(tm port.TransactionManager, logger *zap.Logger) *DBLockPurchaser {
	return &DBLockPurchaser{tm: tm, logger: logger}
}

func (p *DBLockPurchaser) Purchase(ctx context.Context, saleID string, userID int64, quantity int) (*domain.Sale, *domain.Order, error) {
	var (
		sale  *domain.Sale
		order *domain.Order
	)

	err := p.tm.WithinTx(ctx, func(r port.TxRepos) error {
		s, err := r.Sales().FindByIDForUpdate(ctx, saleID)
		if err != nil {
			return err
		}

		if err := s.Purchase(quantity, time.Now()); err != nil {
			return err
		}
		if err := r.Sales().Update(ctx, s); err != nil {
			return err
		}

		o := domain.NewCompletedOrder(s.ID, userID, quantity, s.DiscountPrice)
		if err := r.Orders().Create(ctx, o); err != nil {
			return err
		}

		sale, order = s, o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	p.logger.Info("purchase completed",
		zap.String("sale_id", sale.ID),
		zap.String("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Int("quantity", quantity),
		zap.Int("remaining", sale.RemainingQuantity))
	return sale, order, nil
}
