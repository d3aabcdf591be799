package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("order: not found")
	ErrConflict           = errors.New("order: already exists")
	ErrInvalidQuantity    = errors.New("order: quantity must be greater than zero")
	ErrInvalidPrice       = errors.New("order: total price must be zero or greater")
	ErrMissingTransaction = errors.New("order: transaction id is required")
	ErrNotCancellable     = errors.New("order: only pending unpaid orders can be cancelled")
)

// Order is a customer order against a single product. Status absent in legacy
// documents means pending; TransactionID is set only by payment confirmation.
type Order struct {
	ID            string
	ProductID     string
	ProductName   string
	Email         string
	Quantity      int
	TotalPrice    float64
	Address       string
	Phone         string
	IsPaid        bool
	Status        Status
	TransactionID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func New(id, productID, email string, quantity int, totalPrice float64) (*Order, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if totalPrice < 0 {
		return nil, ErrInvalidPrice
	}

	now := time.Now().UTC()
	return &Order{
		ID:         id,
		ProductID:  productID,
		Email:      email,
		Quantity:   quantity,
		TotalPrice: totalPrice,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// MarkPaid applies a payment confirmation: IsPaid goes true, the transaction
// reference is recorded, and a pending order moves into fulfillment. Repeated
// confirmations overwrite the transaction reference; the payment ledger keeps
// one record per confirmation regardless.
func (o *Order) MarkPaid(transactionID string) error {
	if transactionID == "" {
		return ErrMissingTransaction
	}

	if CanTransition(o.Status.Normalized(), StatusProcessing) {
		o.Status = StatusProcessing
	}
	o.IsPaid = true
	o.TransactionID = transactionID
	o.touch()
	return nil
}

// MarkShipped moves a processing order to shipped. No transition ever returns
// an order to an earlier state.
func (o *Order) MarkShipped() error {
	if !CanTransition(o.Status.Normalized(), StatusShipped) {
		return ErrInvalidTransition
	}
	o.Status = StatusShipped
	o.touch()
	return nil
}

// CancellableNow reports whether explicit cancellation is still allowed.
func (o *Order) CancellableNow() bool {
	return !o.IsPaid && o.Status.Normalized() == StatusPending
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
