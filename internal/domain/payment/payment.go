package payment

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidAmount = errors.New("payment: amount must be greater than zero")

// Record is an append-only entry in the payment ledger, written once per
// confirmation and never mutated or deleted.
type Record struct {
	TransactionID string
	OrderID       string
	Email         string
	PayerName     string
	Amount        float64
	CreatedAt     time.Time
}

type Repository interface {
	Insert(ctx context.Context, record *Record) error
	ListByEmail(ctx context.Context, email string) ([]*Record, error)
}

// Gateway creates payment intents with the external processor. The amount is
// in the gateway's minor units (cents).
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string) (clientSecret string, err error)
}

// Notifier delivers a message to a recipient. Implementations are expected to
// be fire-and-forget from the caller's point of view.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}
