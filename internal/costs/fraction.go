// Package costs содержит точную арифметику границ ставок.
// Сравнения границ никогда не выполняются в двоичной плавающей точке:
// дроби считаются в big.Rat, денежные суммы - в decimal.
package costs

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// RatFromString разбирает рациональное число из строки вида "117/115" или "0.8".
func RatFromString(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid fraction %q", s)
	}
	return r, nil
}

// MustRat разбирает рациональное число из строки и паникует при ошибке.
// Для констант и тестов.
func MustRat(s string) *big.Rat {
	r, err := RatFromString(s)
	if err != nil {
		panic(err)
	}
	return r
}

// RatFromFloat переводит float64 в big.Rat через кратчайшую десятичную запись,
// чтобы 0.19999999999999996 превращался в 0.2, а не в точное двоичное значение.
func RatFromFloat(f float64) *big.Rat {
	return MustRat(decimal.NewFromFloat(f).String())
}

// AmountToFeatures переводит цену в приведенную с учетом коэффициента участника.
func AmountToFeatures(amount, coeficient *big.Rat, reverse bool) *big.Rat {
	if reverse {
		return new(big.Rat).Quo(amount, coeficient)
	}
	return new(big.Rat).Mul(amount, coeficient)
}

// AmountFromFeatures восстанавливает цену из приведенной.
func AmountFromFeatures(amountFeatures, coeficient *big.Rat, reverse bool) *big.Rat {
	if reverse {
		return new(big.Rat).Mul(amountFeatures, coeficient)
	}
	return new(big.Rat).Quo(amountFeatures, coeficient)
}

// AmountAllowed возвращает границу следующей ставки с учетом минимального шага.
func AmountAllowed(amount, minStepAmount *big.Rat, reverse bool) *big.Rat {
	if reverse {
		return new(big.Rat).Sub(amount, minStepAmount)
	}
	return new(big.Rat).Add(amount, minStepAmount)
}

// AmountAllowedPercentage возвращает границу следующей ставки
// с учетом минимального шага в процентах.
func AmountAllowedPercentage(amount, minStepPercentage *big.Rat, reverse bool) *big.Rat {
	step := new(big.Rat).Mul(amount, minStepPercentage)
	if reverse {
		return new(big.Rat).Sub(amount, step)
	}
	return new(big.Rat).Add(amount, step)
}
