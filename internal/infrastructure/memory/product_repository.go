package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/grainfield/orderflow/internal/domain/catalog"
)

// ProductRepository keeps the catalog in process memory. ApplySale runs the
// sale policy under the write lock, so concurrent sales against the same
// product serialize instead of losing updates.
type ProductRepository struct {
	mu       sync.RWMutex
	policy   catalog.SalePolicy
	products map[string]*catalog.Product
}

func NewProductRepository(policy catalog.SalePolicy) *ProductRepository {
	return &ProductRepository{
		policy:   policy,
		products: make(map[string]*catalog.Product),
	}
}

func (r *ProductRepository) Insert(ctx context.Context, product *catalog.Product) error {
	_ = ctx
	if product == nil || product.ID == "" {
		return fmt.Errorf("product repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[product.ID] = product.Clone()
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*catalog.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return product.Clone(), nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*catalog.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*catalog.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ProductRepository) ApplySale(ctx context.Context, productID string, quantity int) (*catalog.SaleResult, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok {
		return nil, catalog.ErrNotFound
	}

	updated := product.Clone()
	crossed, err := r.policy.Apply(updated, quantity)
	if err != nil {
		return nil, err
	}

	r.products[productID] = updated
	return &catalog.SaleResult{Product: updated.Clone(), CrossedWatermark: crossed}, nil
}
