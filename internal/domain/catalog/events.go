package catalog

import "time"

// StockDepletedEvent is emitted when a sale drops a product below the
// watermark, so operations can be alerted to restock.
type StockDepletedEvent struct {
	ProductID    string
	ProductName  string
	Remaining    int
	MinimumOrder int
	OccurredAt   time.Time
}

func (StockDepletedEvent) EventName() string { return "stock.depleted" }

func NewStockDepletedEvent(p *Product) StockDepletedEvent {
	return StockDepletedEvent{
		ProductID:    p.ID,
		ProductName:  p.Name,
		Remaining:    p.Quantity,
		MinimumOrder: p.MinimumOrder,
		OccurredAt:   time.Now().UTC(),
	}
}
