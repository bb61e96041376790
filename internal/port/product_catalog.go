package port

import (
	"context"
	"errors"
)

var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ID    string
	Name  string
	Price int64
}

// ProductCatalog is the external catalog service. Sales reference products
// by id; creating a sale for a missing product fails.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
}
