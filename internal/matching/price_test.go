package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_Ordering(t *testing.T) {
	assert.True(t, NewPriceFromFloat(10.1).Greater(NewPriceFromFloat(10.0)))
	assert.True(t, NewPriceFromFloat(10.0).Less(NewPriceFromFloat(10.1)))
	assert.True(t, NewPrice(9, 120).Less(NewPrice(10, 0)))
	assert.True(t, NewPrice(10, 0).Greater(NewPrice(9, 120)))
}

func TestPrice_Equal(t *testing.T) {
	assert.True(t, NewPrice(10, 5000).Equal(NewPrice(10, 5000)))
	assert.False(t, NewPrice(10, 5000).Equal(NewPrice(10, 5001)))
	assert.True(t, Invalid.Equal(Invalid))
	assert.False(t, Invalid.Equal(NewPrice(0, 0)))
}

func TestPrice_String(t *testing.T) {
	assert.Equal(t, "10.5000", NewPrice(10, 5000).String())
	assert.Equal(t, "INVALID", Invalid.String())
}

func TestPrice_InvalidOrderingPanics(t *testing.T) {
	require.Panics(t, func() {
		_ = Invalid.Less(NewPrice(1, 0))
	})
	require.Panics(t, func() {
		_ = Invalid.Greater(Invalid)
	})
}

func TestPrice_FromFloatTruncatesTowardZero(t *testing.T) {
	p := NewPriceFromFloat(10.00005)
	assert.Equal(t, uint64(10), p.Integral())
	assert.Equal(t, uint64(0), p.Fractional())
}
