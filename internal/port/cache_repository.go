package port

import (
	"context"
	"errors"

	"github.com/rl1809/time-sale/internal/core/domain"
)

// ErrCacheMiss signals that no snapshot exists for the sale id. A corrupted
// snapshot is a different condition and surfaces as a regular error.
var ErrCacheMiss = errors.New("sale not in cache")

type SaleCache interface {
	// GetSale returns the cached sale snapshot, ErrCacheMiss if absent
	GetSale(ctx context.Context, saleID string) (*domain.Sale, error)

	// PutSale stores a full snapshot of the sale with no expiry.
	// Every mutation path must republish right after commit.
	PutSale(ctx context.Context, sale *domain.Sale) error
}
