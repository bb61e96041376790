package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID            string
	SaleID        string
	UserID        int64
	Quantity      int
	DiscountPrice int64 // unit price snapshot taken from the sale at purchase time
	Status        OrderStatus
	CreatedAt     time.Time
}

// NewCompletedOrder builds the order record for a successful purchase. It is
// created already completed because the decrement it belongs to commits in
// the same transaction.
func NewCompletedOrder(saleID string, userID int64, quantity int, discountPrice int64) *Order {
	return &Order{
		ID:            uuid.NewString(),
		SaleID:        saleID,
		UserID:        userID,
		Quantity:      quantity,
		DiscountPrice: discountPrice,
		Status:        OrderStatusCompleted,
		CreatedAt:     time.Now(),
	}
}
