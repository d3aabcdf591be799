// Package catalog exposes read access to the product catalog.
package catalog

import (
	"context"
	"errors"

	domain "github.com/grainfield/orderflow/internal/domain/catalog"
)

// ErrInvalidInput marks malformed catalog requests.
var ErrInvalidInput = errors.New("catalog: invalid request")

type Service struct {
	products domain.Repository
}

func NewService(products domain.Repository) *Service {
	return &Service{products: products}
}

func (s *Service) List(ctx context.Context) ([]*domain.Product, error) {
	return s.products.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.products.Get(ctx, id)
}
