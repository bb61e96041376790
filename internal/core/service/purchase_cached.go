package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/time-sale/internal/core/domain"
	"github.com/rl1809/time-sale/internal/port"
)

const saleLockPrefix = "lock:sale:"

// CachedPurchaser serializes purchases for a sale on a distributed lock and
// reads sale state through the cache mirror. The database stays the
// write-of-record: validation and the decrement commit there exactly as on
// the row-lock path. The lock only bounds who runs the read-validate-write
// sequence at a time across instances; if a lease expires mid-purchase the
// exclusion window narrows, which is the accepted trade-off for bounded
// waiting.
type CachedPurchaser struct {
	tm     port.TransactionManager
	sales  port.SaleRepository
	cache  port.SaleCache
	locker port.Locker
	wait   time.Duration
	lease  time.Duration
	logger *zap.Logger
}

func NewCachedPurchaser(tm port.TransactionManager, sales port.SaleRepository, cache port.SaleCache, locker port.Locker, wait, lease time.Duration, logger *zap.Logger) *CachedPurchaser {
	return &CachedPurchaser{
		tm:     tm,
		sales:  sales,
		cache:  cache,
		locker: locker,
		wait:   wait,
		lease:  lease,
		logger: logger,
	}
}

func (p *CachedPurchaser) Purchase(ctx context.Context, saleID string, userID int64, quantity int) (*domain.Sale, *domain.Order, error) {
	lock, err := p.locker.Acquire(ctx, saleLockPrefix+saleID, p.wait, p.lease)
	if err != nil {
		// Nothing acquired, nothing mutated. ErrLockUnavailable is the
		// caller's cue to back off and retry; no retry happens here.
		return nil, nil, err
	}
	defer func() {
		// Release must run on every exit path. A failed release is
		// logged, never propagated: the lease expiry cleans up.
		if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil {
			p.logger.Warn("failed to release sale lock",
				zap.String("sale_id", saleID), zap.Error(rerr))
		}
	}()

	sale, err := p.getSale(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}

	var order *domain.Order
	err = p.tm.WithinTx(ctx, func(r port.TxRepos) error {
		if err := sale.Purchase(quantity, time.Now()); err != nil {
			return err
		}
		if err := r.Sales().Update(ctx, sale); err != nil {
			return err
		}

		order = domain.NewCompletedOrder(sale.ID, userID, quantity, sale.DiscountPrice)
		return r.Orders().Create(ctx, order)
	})
	if err != nil {
		return nil, nil, err
	}

	p.publish(ctx, sale)

	p.logger.Info("purchase completed",
		zap.String("sale_id", sale.ID),
		zap.String("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Int("quantity", quantity),
		zap.Int("remaining", sale.RemainingQuantity))
	return sale, order, nil
}

// GetSale is the cached read path: a purchase followed by a read through
// this method always observes the purchase's own write.
func (p *CachedPurchaser) GetSale(ctx context.Context, saleID string) (*domain.Sale, error) {
	return p.getSale(ctx, saleID)
}

// getSale reads through the mirror: on a miss the sale is loaded from the
// store and the snapshot republished. A corrupted snapshot is not a miss
// and fails the read.
func (p *CachedPurchaser) getSale(ctx context.Context, saleID string) (*domain.Sale, error) {
	sale, err := p.cache.GetSale(ctx, saleID)
	if err == nil {
		return sale, nil
	}
	if !errors.Is(err, port.ErrCacheMiss) {
		return nil, fmt.Errorf("read sale %s from cache: %w", saleID, err)
	}

	sale, err = p.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	p.publish(ctx, sale)
	return sale, nil
}

// publish refreshes the cache snapshot after a committed mutation or a
// read-through load. Failures are logged and swallowed: the store is
// already correct and must not fail a successful purchase.
func (p *CachedPurchaser) publish(ctx context.Context, sale *domain.Sale) {
	if err := p.cache.PutSale(ctx, sale); err != nil {
		p.logger.Warn("failed to publish sale snapshot",
			zap.String("sale_id", sale.ID), zap.Error(err))
	}
}
