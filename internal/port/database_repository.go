package port

import (
	"context"
	"time"

	"github.com/rl1809/time-sale/internal/core/domain"
)

type SaleRepository interface {
	// Create persists a new sale
	Create(ctx context.Context, sale *domain.Sale) error

	// FindByID retrieves a sale, returning domain.ErrSaleNotFound if absent
	FindByID(ctx context.Context, saleID string) (*domain.Sale, error)

	// FindByIDForUpdate retrieves a sale under an exclusive row lock.
	// Only meaningful inside a transaction; the lock is held until the
	// transaction ends and concurrent callers for the same id block.
	FindByIDForUpdate(ctx context.Context, saleID string) (*domain.Sale, error)

	// Update persists remaining quantity and status changes
	Update(ctx context.Context, sale *domain.Sale) error

	// ListOngoing returns the page of sales with startAt <= now < endAt
	// and active status, newest first. page is zero-based.
	ListOngoing(ctx context.Context, now time.Time, page, size int) ([]*domain.Sale, error)
}

type OrderRepository interface {
	// Create persists a new order
	Create(ctx context.Context, order *domain.Order) error
}

// TxRepos exposes the repositories bound to one open transaction.
type TxRepos interface {
	Sales() SaleRepository
	Orders() OrderRepository
}

// TransactionManager hides begin/commit/rollback from the core. fn runs
// inside a single transaction; any returned error rolls the whole unit of
// work back.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
