package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/grainfield/orderflow/internal/domain/payment"
)

// PaymentRepository is an append-only ledger; records are never rewritten.
type PaymentRepository struct {
	mu      sync.RWMutex
	records []*domain.Record
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

func (r *PaymentRepository) Insert(ctx context.Context, record *domain.Record) error {
	_ = ctx
	if record == nil || record.TransactionID == "" {
		return fmt.Errorf("payment repository: transaction id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *record
	r.records = append(r.records, &clone)
	return nil
}

func (r *PaymentRepository) ListByEmail(ctx context.Context, email string) ([]*domain.Record, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Record
	for _, rec := range r.records {
		if rec.Email == email {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}
