package costs

import (
	"math/big"
	"time"
)

const (
	// NPVCalculationDuration - расчетный период NPV в годах.
	NPVCalculationDuration = 20
	// DaysInYear - дней в расчетном году.
	DaysInYear = 365
	// MaxContractDuration - максимальный срок контракта в годах.
	MaxContractDuration = 15
)

// discountPeriods возвращает длительности расчетных периодов в днях:
// остаток года публикации, затем NPVCalculationDuration полных лет.
func discountPeriods(announcementDate time.Time) []int64 {
	endOfYear := time.Date(announcementDate.Year(), 12, 31, 0, 0, 0, 0, announcementDate.Location())
	firstPeriod := int64(endOfYear.Sub(announcementDate).Hours()/24) + 1
	if firstPeriod < 1 {
		firstPeriod = 1
	}
	periods := make([]int64, 0, NPVCalculationDuration+1)
	periods = append(periods, firstPeriod)
	for i := 0; i < NPVCalculationDuration; i++ {
		periods = append(periods, DaysInYear)
	}
	return periods
}

// paymentDays распределяет срок контракта по расчетным периодам.
func paymentDays(contractDurationDays int64, periods []int64) []int64 {
	days := make([]int64, len(periods))
	remaining := contractDurationDays
	for i, period := range periods {
		switch {
		case remaining <= 0:
			days[i] = 0
		case remaining >= period:
			days[i] = period
			remaining -= period
		default:
			days[i] = remaining
			remaining = 0
		}
	}
	return days
}

// NPV вычисляет чистую приведенную стоимость энергосервисного контракта:
// дисконтированную сумму годовой экономии за вычетом платежей исполнителю
// в пределах срока контракта. Вся арифметика точная, в big.Rat.
func NPV(
	contractDurationYears int,
	contractDurationDays int,
	yearlyPaymentsPercentage float64,
	annualCostsReduction []float64,
	announcementDate time.Time,
	nbuDiscountRate float64,
) *big.Rat {
	periods := discountPeriods(announcementDate)
	contractDays := int64(contractDurationYears)*DaysInYear + int64(contractDurationDays)
	payments := paymentDays(contractDays, periods)

	percentage := RatFromFloat(yearlyPaymentsPercentage)
	discountDivisor := new(big.Rat).Add(new(big.Rat).SetInt64(1), RatFromFloat(nbuDiscountRate))

	npv := new(big.Rat)
	discount := new(big.Rat).SetInt64(1)
	for i, period := range periods {
		reduction := new(big.Rat)
		if i < len(annualCostsReduction) {
			reduction = RatFromFloat(annualCostsReduction[i])
		}
		// платеж исполнителю пропорционален доле периода, покрытой контрактом
		payment := new(big.Rat).Mul(percentage, reduction)
		payment.Mul(payment, big.NewRat(payments[i], period))

		income := new(big.Rat).Sub(reduction, payment)
		income.Quo(income, discount)
		npv.Add(npv, income)

		discount = new(big.Rat).Mul(discount, discountDivisor)
	}
	return npv
}
