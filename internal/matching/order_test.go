package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimitOrder_Valid(t *testing.T) {
	o, err := NewLimitOrder(1, SideBuy, NewPrice(10, 0), 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), o.ID())
	assert.Equal(t, OrderTypeLimit, o.Type())
	assert.Equal(t, uint64(5), o.RemainingQuantity())
	assert.Equal(t, uint64(0), o.FilledQuantity())
	assert.False(t, o.IsFilled())
}

func TestNewLimitOrder_RejectsInvalidPrice(t *testing.T) {
	_, err := NewLimitOrder(1, SideBuy, Invalid, 5)
	require.ErrorIs(t, err, ErrInvalidOrder)
}

func TestNewLimitOrder_RejectsZeroQuantity(t *testing.T) {
	_, err := NewLimitOrder(1, SideBuy, NewPrice(10, 0), 0)
	require.ErrorIs(t, err, ErrInvalidOrder)
}

func TestNewMarketOrder_Valid(t *testing.T) {
	o, err := NewMarketOrder(2, SideSell, 10)
	require.NoError(t, err)
	assert.Equal(t, OrderTypeMarket, o.Type())
	assert.False(t, o.Price().IsValid())
}

func TestOrder_Fill(t *testing.T) {
	o, err := NewLimitOrder(1, SideBuy, NewPrice(10, 0), 5)
	require.NoError(t, err)

	require.NoError(t, o.Fill(3))
	assert.Equal(t, uint64(2), o.RemainingQuantity())
	assert.Equal(t, uint64(3), o.FilledQuantity())
	assert.False(t, o.IsFilled())

	require.NoError(t, o.Fill(2))
	assert.True(t, o.IsFilled())
}

func TestOrder_FillOverflowRejected(t *testing.T) {
	o, err := NewLimitOrder(1, SideBuy, NewPrice(10, 0), 5)
	require.NoError(t, err)

	err = o.Fill(6)
	require.ErrorIs(t, err, ErrOverfill)
	assert.Equal(t, uint64(5), o.RemainingQuantity(), "a failed fill must not mutate remaining quantity")
}

func TestOrder_FillAgainst(t *testing.T) {
	incoming, err := NewMarketOrder(1, SideBuy, 10)
	require.NoError(t, err)
	resting, err := NewLimitOrder(2, SideSell, NewPrice(10, 0), 4)
	require.NoError(t, err)

	qty := incoming.FillAgainst(&resting)

	assert.Equal(t, uint64(4), qty)
	assert.True(t, resting.IsFilled())
	assert.Equal(t, uint64(6), incoming.RemainingQuantity())
}

func TestOrder_ConservationInvariant(t *testing.T) {
	incoming, err := NewMarketOrder(1, SideBuy, 10)
	require.NoError(t, err)
	resting, err := NewLimitOrder(2, SideSell, NewPrice(10, 0), 15)
	require.NoError(t, err)

	traded := incoming.FillAgainst(&resting)

	assert.Equal(t, incoming.InitialQuantity(), incoming.RemainingQuantity()+traded)
	assert.Equal(t, resting.InitialQuantity(), resting.RemainingQuantity()+traded)
}

func TestZeroValueOrderIsInvalid(t *testing.T) {
	var o Order
	assert.False(t, o.valid())
}
