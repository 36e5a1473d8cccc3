package costs

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// Граница следующей ставки считается без двоичной погрешности:
// 0.3 - 0.1 в float64 дает 0.19999999999999998 и отклонила бы ровно 0.2.
func TestAmountAllowedDecimalExact(t *testing.T) {
	stageAmount := DecimalFromFloat(0.3)
	minStep := DecimalFromFloat(0.1)

	maxAllowed := AmountAllowedDecimal(stageAmount, minStep, true)
	assert.True(t, maxAllowed.Equal(decimal.RequireFromString("0.2")))
	assert.False(t, DecimalFromFloat(0.2).GreaterThan(maxAllowed))
}

func TestAmountWeightedRoundTrip(t *testing.T) {
	amount := DecimalFromFloat(250.5)
	nonPriceCost := DecimalFromFloat(30.25)

	weighted := AmountToWeighted(amount, nonPriceCost, true)
	assert.True(t, weighted.Equal(decimal.RequireFromString("280.75")))

	back := AmountFromWeighted(weighted, nonPriceCost, true)
	assert.True(t, back.Equal(amount))
}

func TestAmountMixedWeightedRoundTrip(t *testing.T) {
	amount := DecimalFromFloat(300)
	denominator := DecimalFromFloat(1.5)
	addition := DecimalFromFloat(10)

	weighted := AmountToMixedWeighted(amount, denominator, addition)
	assert.True(t, weighted.Equal(decimal.RequireFromString("210")))

	back := AmountFromMixedWeighted(weighted, denominator, addition)
	assert.True(t, back.Equal(amount))
}
