package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalePolicyTightensThresholdBelowWatermark(t *testing.T) {
	p := &Product{ID: "p1", Quantity: 1500, MinimumOrder: 500}

	crossed, err := DefaultSalePolicy().Apply(p, 700)

	require.NoError(t, err)
	assert.Equal(t, 800, p.Quantity)
	assert.Equal(t, 800, p.MinimumOrder)
	assert.True(t, crossed)
}

func TestSalePolicyKeepsThresholdAboveWatermark(t *testing.T) {
	p := &Product{ID: "p1", Quantity: 1500, MinimumOrder: 500}

	crossed, err := DefaultSalePolicy().Apply(p, 300)

	require.NoError(t, err)
	assert.Equal(t, 1200, p.Quantity)
	assert.Equal(t, 500, p.MinimumOrder)
	assert.False(t, crossed)
}

// A sale that stays above the watermark but lands exactly on the existing
// threshold must not be reported as a crossing.
func TestSalePolicyNoCrossingWhenLandingOnThreshold(t *testing.T) {
	p := &Product{ID: "p1", Quantity: 2000, MinimumOrder: 1900}

	crossed, err := DefaultSalePolicy().Apply(p, 100)

	require.NoError(t, err)
	assert.Equal(t, 1900, p.Quantity)
	assert.Equal(t, 1900, p.MinimumOrder)
	assert.False(t, crossed)
}

// Only the sale that dips below the watermark reports a crossing; later
// below-watermark sales re-pin the threshold silently.
func TestSalePolicyCrossingReportedOnce(t *testing.T) {
	p := &Product{ID: "p1", Quantity: 1100, MinimumOrder: 500}
	policy := DefaultSalePolicy()

	crossed, err := policy.Apply(p, 200)
	require.NoError(t, err)
	assert.True(t, crossed)
	assert.Equal(t, 900, p.MinimumOrder)

	crossed, err = policy.Apply(p, 200)
	require.NoError(t, err)
	assert.False(t, crossed)
	assert.Equal(t, 700, p.MinimumOrder)
}

func TestSalePolicyRejectsInsufficientStock(t *testing.T) {
	p := &Product{ID: "p1", Quantity: 150, MinimumOrder: 10}

	_, err := DefaultSalePolicy().Apply(p, 200)

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 150, p.Quantity, "a rejected sale must not mutate stock")
}

func TestSalePolicyOversellGoesNegative(t *testing.T) {
	p := &Product{ID: "p1", Quantity: 150, MinimumOrder: 10}
	policy := SalePolicy{Watermark: DefaultWatermark, AllowOversell: true}

	crossed, err := policy.Apply(p, 200)

	require.NoError(t, err)
	assert.Equal(t, -50, p.Quantity)
	assert.Equal(t, -50, p.MinimumOrder)
	assert.False(t, crossed, "already below the watermark before the sale")
}

func TestSalePolicyRejectsNonPositiveQuantity(t *testing.T) {
	p := &Product{ID: "p1", Quantity: 10}

	_, err := DefaultSalePolicy().Apply(p, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = DefaultSalePolicy().Apply(p, -3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSalePolicyCustomWatermark(t *testing.T) {
	p := &Product{ID: "p1", Quantity: 120, MinimumOrder: 5}
	policy := SalePolicy{Watermark: 100}

	crossed, err := policy.Apply(p, 10)
	require.NoError(t, err)
	assert.Equal(t, 110, p.Quantity)
	assert.Equal(t, 5, p.MinimumOrder, "watermark 100 not crossed at 110")
	assert.False(t, crossed)

	crossed, err = policy.Apply(p, 20)
	require.NoError(t, err)
	assert.Equal(t, 90, p.Quantity)
	assert.Equal(t, 90, p.MinimumOrder)
	assert.True(t, crossed)
}

func TestSalePolicyCrossed(t *testing.T) {
	policy := DefaultSalePolicy()

	assert.True(t, policy.Crossed(1000, 999))
	assert.False(t, policy.Crossed(999, 900), "already below before the sale")
	assert.False(t, policy.Crossed(1500, 1000), "still at the watermark")
}
