package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	ErrInvalidQuantity   = errors.New("catalog: quantity must be greater than zero")
)

// Product is a catalog entry. Quantity is the units available for sale and
// MinimumOrder the smallest order the storefront accepts for it.
type Product struct {
	ID           string
	Name         string
	UnitPrice    float64
	Quantity     int
	MinimumOrder int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// SaleResult is the outcome of a stock decrement. CrossedWatermark is true
// only for the sale that took the quantity below the watermark, not for
// later sales that merely re-pin the threshold.
type SaleResult struct {
	Product          *Product
	CrossedWatermark bool
}

// Repository is the catalog store. ApplySale must perform the decrement and
// threshold adjustment as a single atomic operation so that concurrent sales
// against the same product cannot lose updates.
type Repository interface {
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Insert(ctx context.Context, product *Product) error
	ApplySale(ctx context.Context, productID string, quantity int) (*SaleResult, error)
}
