package utils_test

import (
	"testing"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountAndTaxAmounts(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(decimal.Decimal, decimal.Decimal, string) decimal.Decimal
		base   string
		amount string
		kind   string
		want   string
	}{
		{"percentage discount", utils.CalculateDiscountAmount, "200", "10", utils.AmountTypePercentage, "20"},
		{"value discount", utils.CalculateDiscountAmount, "200", "15.555", utils.AmountTypeValue, "15.56"},
		{"zero discount", utils.CalculateDiscountAmount, "200", "0", utils.AmountTypePercentage, "0"},
		{"negative discount ignored", utils.CalculateDiscountAmount, "200", "-5", utils.AmountTypeValue, "0"},
		{"percentage tax", utils.CalculateTaxAmount, "180", "5", utils.AmountTypePercentage, "9"},
		{"tax rounds half up", utils.CalculateTaxAmount, "10.10", "5", utils.AmountTypePercentage, "0.51"},
		{"value tax", utils.CalculateTaxAmount, "180", "7", utils.AmountTypeValue, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(decimal.RequireFromString(tt.base), decimal.RequireFromString(tt.amount), tt.kind)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseDecimal(t *testing.T) {
	d, err := utils.ParseDecimal(" 12.50 ")
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())

	_, err = utils.ParseDecimal("")
	assert.Error(t, err)

	_, err = utils.ParseDecimal("abc")
	assert.Error(t, err)
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2024, 2, 28, 23, 30, 0, 0, time.UTC)
	b := time.Date(2024, 3, 1, 0, 15, 0, 0, time.UTC)
	assert.Equal(t, 2, utils.DaysBetween(a, b))
	assert.Equal(t, -2, utils.DaysBetween(b, a))
}
