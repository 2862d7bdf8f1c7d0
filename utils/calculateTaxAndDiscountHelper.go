package utils

import (
	"github.com/shopspring/decimal"
)

const (
	AmountTypePercentage = "percentage"
	AmountTypeValue      = "value"
)

var decimalOneHundred = decimal.NewFromInt(100)

// PercentOf returns base * rate / 100 rounded to money precision.
func PercentOf(base decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() || base.IsZero() {
		return decimal.Zero
	}
	return RoundMoney(base.Mul(rate).Div(decimalOneHundred))
}

// CalculateDiscountAmount applies a percentage or a fixed value discount to subTotal.
func CalculateDiscountAmount(subTotal decimal.Decimal, discount decimal.Decimal, discountType string) decimal.Decimal {
	if !discount.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	if discountType == AmountTypePercentage {
		return PercentOf(subTotal, discount)
	}
	return RoundMoney(discount)
}

// CalculateTaxAmount is the exclusive tax on base, either a rate or a fixed value.
func CalculateTaxAmount(base decimal.Decimal, tax decimal.Decimal, taxType string) decimal.Decimal {
	if !tax.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	if taxType == AmountTypePercentage {
		return PercentOf(base, tax)
	}
	return RoundMoney(tax)
}
