package catalog

import "time"

// DefaultWatermark is the stock level below which the minimum-order threshold
// is overwritten with the remaining quantity after a sale.
const DefaultWatermark = 1000

// SalePolicy decides how a sale mutates a product's stock and threshold.
type SalePolicy struct {
	// Watermark is the quantity under which the threshold tightens.
	Watermark int
	// AllowOversell permits the quantity to go negative instead of
	// rejecting sales that exceed the available stock.
	AllowOversell bool
}

// DefaultSalePolicy rejects oversell and uses the default watermark.
func DefaultSalePolicy() SalePolicy {
	return SalePolicy{Watermark: DefaultWatermark}
}

// Apply deducts quantity from the product and, when the remaining stock falls
// below the watermark, pins the minimum-order threshold to it. The returned
// flag reports whether this sale took the stock from at or above the
// watermark to below it; later below-watermark sales re-pin the threshold but
// do not report a crossing again. Callers must hold whatever lock makes the
// read-modify-write atomic.
func (sp SalePolicy) Apply(p *Product, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	if !sp.AllowOversell && p.Quantity < quantity {
		return false, ErrInsufficientStock
	}

	before := p.Quantity
	p.Quantity -= quantity
	if p.Quantity < sp.Watermark {
		p.MinimumOrder = p.Quantity
	}
	p.UpdatedAt = time.Now().UTC()
	return before >= sp.Watermark && p.Quantity < sp.Watermark, nil
}

// Crossed reports whether a sale that moved the quantity from before to after
// dipped below the watermark for the first time. Used by stores that apply
// the decrement server-side and only see the post-image.
func (sp SalePolicy) Crossed(before, after int) bool {
	return before >= sp.Watermark && after < sp.Watermark
}
