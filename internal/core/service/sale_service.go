package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/time-sale/internal/core/domain"
	"github.com/rl1809/time-sale/internal/port"
)

// SaleService covers the non-contended operations: creating sales and
// reading them straight from the authoritative store.
type SaleService struct {
	sales   port.SaleRepository
	catalog port.ProductCatalog
	cache   port.SaleCache // optional; nil when the deployment runs without a mirror
	logger  *zap.Logger
}

func NewSaleService(sales port.SaleRepository, catalog port.ProductCatalog, cache port.SaleCache, logger *zap.Logger) *SaleService {
	return &SaleService{
		sales:   sales,
		catalog: catalog,
		cache:   cache,
		logger:  logger,
	}
}

// CreateSale validates the request against the product catalog and the sale
// invariants, persists the sale, and publishes the initial cache snapshot.
func (s *SaleService) CreateSale(ctx context.Context, productID string, totalQuantity int, discountPrice int64, startAt, endAt time.Time) (*domain.Sale, error) {
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, fmt.Errorf("lookup product %s: %w", productID, err)
	}

	sale, err := domain.NewSale(productID, totalQuantity, discountPrice, startAt, endAt)
	if err != nil {
		return nil, err
	}

	if err := s.sales.Create(ctx, sale); err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}
	s.logger.Info("sale created",
		zap.String("sale_id", sale.ID),
		zap.String("product_id", productID),
		zap.Int("total_quantity", totalQuantity))

	if s.cache != nil {
		if err := s.cache.PutSale(ctx, sale); err != nil {
			// The store is already correct; the first cached read will
			// repopulate the snapshot.
			s.logger.Warn("failed to publish sale snapshot",
				zap.String("sale_id", sale.ID), zap.Error(err))
		}
	}
	return sale, nil
}

func (s *SaleService) GetSale(ctx context.Context, saleID string) (*domain.Sale, error) {
	return s.sales.FindByID(ctx, saleID)
}

// ListOngoing returns the page of sales currently inside their window.
// page is zero-based.
func (s *SaleService) ListOngoing(ctx context.Context, page, size int) ([]*domain.Sale, error) {
	return s.sales.ListOngoing(ctx, time.Now(), page, size)
}
