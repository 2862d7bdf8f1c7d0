package models_test

import (
	"testing"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func TestInvoiceCalculateTotals(t *testing.T) {
	zero := decimal.Zero
	inv := &models.Invoice{
		PaymentType:   models.PaymentTypeCredit,
		DiscountType:  "value",
		DiscountValue: dec("20"),
		PaidAmount:    dec("50"),
		Items: []models.InvoiceItem{
			{Quantity: dec("2"), UnitPrice: dec("100"), DiscountPercentage: dec("10")},
			{Quantity: dec("1"), UnitPrice: dec("50"), TaxPercentage: &zero},
		},
	}
	inv.CalculateTotals(dec("5"))

	assertDecimal(t, "200", inv.Items[0].TotalPrice)
	assertDecimal(t, "20", inv.Items[0].DiscountAmount)
	assertDecimal(t, "9", inv.Items[0].TaxAmount, "settings rate on the discounted line")
	assertDecimal(t, "189", inv.Items[0].NetPrice)
	assertDecimal(t, "0", inv.Items[1].TaxAmount, "explicit zero rate wins")

	assertDecimal(t, "250", inv.TotalAmount)
	assertDecimal(t, "40", inv.DiscountAmount)
	assertDecimal(t, "9", inv.TaxAmount)
	assertDecimal(t, "219", inv.NetAmount)
	assertDecimal(t, "50", inv.PaidAmount)
	assertDecimal(t, "169", inv.RemainingAmount)
}

func TestCashInvoiceIsFullyPaid(t *testing.T) {
	inv := &models.Invoice{
		PaymentType: models.PaymentTypeCash,
		TaxType:     "percentage",
		TaxValue:    dec("10"),
		Items: []models.InvoiceItem{
			{Quantity: dec("3"), UnitPrice: dec("10")},
		},
	}
	inv.CalculateTotals(decimal.Zero)

	assertDecimal(t, "3", inv.TaxAmount)
	assertDecimal(t, "33", inv.NetAmount)
	assertDecimal(t, "33", inv.PaidAmount)
	assertDecimal(t, "0", inv.RemainingAmount)
}
