package costs

import "github.com/shopspring/decimal"

// DecimalFromFloat переводит float64 в decimal через кратчайшую десятичную запись.
func DecimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// AmountToWeighted переводит цену во взвешенную с учетом неценовой стоимости (lcc).
func AmountToWeighted(amount, nonPriceCost decimal.Decimal, reverse bool) decimal.Decimal {
	if reverse {
		return amount.Add(nonPriceCost)
	}
	return amount.Sub(nonPriceCost)
}

// AmountFromWeighted восстанавливает цену из взвешенной (lcc).
func AmountFromWeighted(amountWeighted, nonPriceCost decimal.Decimal, reverse bool) decimal.Decimal {
	if reverse {
		return amountWeighted.Sub(nonPriceCost)
	}
	return amountWeighted.Add(nonPriceCost)
}

// AmountToMixedWeighted переводит цену во взвешенную для смешанной оценки.
func AmountToMixedWeighted(amount, denominator, addition decimal.Decimal) decimal.Decimal {
	return amount.Div(denominator).Add(addition)
}

// AmountFromMixedWeighted восстанавливает цену из взвешенной для смешанной оценки.
func AmountFromMixedWeighted(amountWeighted, denominator, addition decimal.Decimal) decimal.Decimal {
	return amountWeighted.Sub(addition).Mul(denominator)
}

// AmountAllowedDecimal возвращает границу следующей ставки в десятичной арифметике.
func AmountAllowedDecimal(amount, minStepAmount decimal.Decimal, reverse bool) decimal.Decimal {
	if reverse {
		return amount.Sub(minStepAmount)
	}
	return amount.Add(minStepAmount)
}
