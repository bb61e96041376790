package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSaleNotFound          = errors.New("sale not found")
	ErrSaleNotActive         = errors.New("sale is not active")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInvalidWindow         = errors.New("sale window start must be before end")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrInvalidPrice          = errors.New("discount price must be positive")
)

type SaleStatus string

const (
	SaleStatusActive  SaleStatus = "active"
	SaleStatusSoldOut SaleStatus = "sold_out"
	SaleStatusEnded   SaleStatus = "ended"
)

type Sale struct {
	ID                string
	ProductID         string
	TotalQuantity     int
	RemainingQuantity int
	DiscountPrice     int64
	StartAt           time.Time
	EndAt             time.Time
	Status            SaleStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewSale validates the sale parameters and returns a sale with full
// remaining inventory. The window is half-open: [startAt, endAt).
func NewSale(productID string, totalQuantity int, discountPrice int64, startAt, endAt time.Time) (*Sale, error) {
	if !startAt.Before(endAt) {
		return nil, ErrInvalidWindow
	}
	if totalQuantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if discountPrice <= 0 {
		return nil, ErrInvalidPrice
	}

	now := time.Now()
	return &Sale{
		ID:                uuid.NewString(),
		ProductID:         productID,
		TotalQuantity:     totalQuantity,
		RemainingQuantity: totalQuantity,
		DiscountPrice:     discountPrice,
		StartAt:           startAt,
		EndAt:             endAt,
		Status:            SaleStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// IsActive reports whether the sale accepts purchases at the given instant.
// The stored status may lag wall-clock expiry, so the window is always
// re-evaluated here instead of trusting Status alone.
func (s *Sale) IsActive(now time.Time) bool {
	return s.Status == SaleStatusActive && !now.Before(s.StartAt) && now.Before(s.EndAt)
}

// Purchase decrements remaining inventory by quantity. It never commits
// anything itself; callers persist the mutated sale inside the same unit of
// work as the order.
func (s *Sale) Purchase(quantity int, now time.Time) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !s.IsActive(now) {
		return ErrSaleNotActive
	}
	if quantity > s.RemainingQuantity {
		return ErrInsufficientInventory
	}

	s.RemainingQuantity -= quantity
	if s.RemainingQuantity == 0 {
		s.Status = SaleStatusSoldOut
	}
	s.UpdatedAt = now
	return nil
}
