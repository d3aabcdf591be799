package order

import "time"

// OrderPlacedEvent is emitted after an order document has been recorded and
// the stock adjustment attempted.
type OrderPlacedEvent struct {
	OrderID    string
	ProductID  string
	Email      string
	Quantity   int
	TotalPrice float64
	OccurredAt time.Time
}

func (OrderPlacedEvent) EventName() string { return "order.placed" }

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:    o.ID,
		ProductID:  o.ProductID,
		Email:      o.Email,
		Quantity:   o.Quantity,
		TotalPrice: o.TotalPrice,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderPaidEvent is emitted on payment confirmation and drives the payer
// notification. Delivery is best-effort and never affects the confirmation.
type OrderPaidEvent struct {
	OrderID       string
	Email         string
	PayerName     string
	TransactionID string
	TotalPrice    float64
	OccurredAt    time.Time
}

func (OrderPaidEvent) EventName() string { return "order.paid" }

func NewOrderPaidEvent(o *Order, email, payerName string) OrderPaidEvent {
	if email == "" {
		email = o.Email
	}
	return OrderPaidEvent{
		OrderID:       o.ID,
		Email:         email,
		PayerName:     payerName,
		TransactionID: o.TransactionID,
		TotalPrice:    o.TotalPrice,
		OccurredAt:    time.Now().UTC(),
	}
}
