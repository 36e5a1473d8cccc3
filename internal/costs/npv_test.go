package costs

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestDiscountPeriods(t *testing.T) {
	periods := discountPeriods(date(2023, 12, 31))
	require.Len(t, periods, NPVCalculationDuration+1)
	// публикация в последний день года: остаток - один день
	assert.Equal(t, int64(1), periods[0])
	for _, p := range periods[1:] {
		assert.Equal(t, int64(DaysInYear), p)
	}

	periods = discountPeriods(date(2023, 12, 30))
	assert.Equal(t, int64(2), periods[0])
}

func TestPaymentDays(t *testing.T) {
	periods := []int64{1, 365, 365, 365}

	days := paymentDays(365, periods)
	assert.Equal(t, []int64{1, 364, 0, 0}, days)

	days = paymentDays(0, periods)
	assert.Equal(t, []int64{0, 0, 0, 0}, days)

	days = paymentDays(800, periods)
	assert.Equal(t, []int64{1, 365, 365, 69}, days)
}

func TestNPVWithoutPayments(t *testing.T) {
	reductions := make([]float64, NPVCalculationDuration+1)
	for i := range reductions {
		reductions[i] = 100
	}

	// нулевой процент и нулевая ставка дисконтирования: NPV - сумма экономии
	npv := NPV(1, 0, 0, reductions, date(2023, 12, 31), 0)
	assert.Zero(t, npv.Cmp(big.NewRat(2100, 1)))
}

func TestNPVFullPercentage(t *testing.T) {
	reductions := make([]float64, NPVCalculationDuration+1)
	for i := range reductions {
		reductions[i] = 100
	}

	// контракт 1 год, платеж 100%: первый период съеден полностью,
	// со второго остается 100*(1/365), дальше контракт закончился
	npv := NPV(1, 0, 1.0, reductions, date(2023, 12, 31), 0)
	assert.Zero(t, npv.Cmp(big.NewRat(138720, 73)))
}

func TestNPVDecreasesWithPercentage(t *testing.T) {
	reductions := make([]float64, NPVCalculationDuration+1)
	for i := range reductions {
		reductions[i] = 500
	}
	announcement := date(2024, 6, 15)

	low := NPV(5, 100, 0.8, reductions, announcement, 0.22)
	high := NPV(5, 100, 0.95, reductions, announcement, 0.22)
	assert.Positive(t, low.Cmp(high))
}

func TestNPVDiscountRateReducesValue(t *testing.T) {
	reductions := make([]float64, NPVCalculationDuration+1)
	for i := range reductions {
		reductions[i] = 500
	}
	announcement := date(2024, 6, 15)

	flat := NPV(5, 0, 0.9, reductions, announcement, 0)
	discounted := NPV(5, 0, 0.9, reductions, announcement, 0.22)
	assert.Positive(t, flat.Cmp(discounted))
}
