package costs

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected *big.Rat
	}{
		{"117/115", big.NewRat(117, 115)},
		{"0.8", big.NewRat(4, 5)},
		{"1", big.NewRat(1, 1)},
		{"232.66", big.NewRat(23266, 100)},
	}
	for _, tt := range tests {
		r, err := RatFromString(tt.input)
		require.NoError(t, err, tt.input)
		assert.Zero(t, r.Cmp(tt.expected), tt.input)
	}
}

func TestRatFromStringInvalid(t *testing.T) {
	_, err := RatFromString("not-a-number")
	assert.Error(t, err)
}

// Двоичный мусор плавающей точки не должен попадать в дробь.
func TestRatFromFloatShortestDecimal(t *testing.T) {
	r := RatFromFloat(0.19999999999999996)
	assert.Zero(t, r.Cmp(big.NewRat(1, 5)))

	r = RatFromFloat(132.22)
	assert.Zero(t, r.Cmp(big.NewRat(13222, 100)))
}

func TestAmountFeaturesRoundTrip(t *testing.T) {
	amount := big.NewRat(300, 1)
	coeficient := big.NewRat(117, 115)

	features := AmountToFeatures(amount, coeficient, true)
	assert.Zero(t, features.Cmp(new(big.Rat).Quo(amount, coeficient)))

	back := AmountFromFeatures(features, coeficient, true)
	assert.Zero(t, back.Cmp(amount))

	// для esco направление обратное
	reversed := AmountToFeatures(amount, coeficient, false)
	assert.Zero(t, reversed.Cmp(new(big.Rat).Mul(amount, coeficient)))
}

func TestAmountAllowed(t *testing.T) {
	amount := big.NewRat(300, 1)
	step := big.NewRat(35, 1)

	assert.Zero(t, AmountAllowed(amount, step, true).Cmp(big.NewRat(265, 1)))
	assert.Zero(t, AmountAllowed(amount, step, false).Cmp(big.NewRat(335, 1)))
}

func TestAmountAllowedPercentage(t *testing.T) {
	amount := big.NewRat(200, 1)
	step := big.NewRat(1, 100)

	assert.Zero(t, AmountAllowedPercentage(amount, step, false).Cmp(big.NewRat(202, 1)))
	assert.Zero(t, AmountAllowedPercentage(amount, step, true).Cmp(big.NewRat(198, 1)))
}
