package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/testutils"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactChainFollowsDateOrder(t *testing.T) {
	ctx := context.Background()
	db := testutils.NewTestDB(t)

	customer, err := models.CreateContact(ctx, db, &models.NewContact{
		Name:           "Walk-in",
		ContactType:    models.ContactTypeCustomer,
		InitialBalance: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	day := func(d int) time.Time { return time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC) }
	add := func(date time.Time, typ models.ContactTransactionType, amount int64) *models.ContactTransaction {
		row, err := models.CreateContactTransaction(ctx, db, &models.NewContactTransaction{
			ContactId:       customer.ID,
			TransactionDate: date,
			TransactionType: typ,
			Amount:          decimal.NewFromInt(amount),
		})
		require.NoError(t, err)
		return row
	}

	add(day(10), models.ContactTransactionSaleInvoice, 100)
	add(day(20), models.ContactTransactionCollection, 30)
	backdated := add(day(5), models.ContactTransactionSaleInvoice, 20)

	assertDecimal(t, "50", backdated.BalanceBefore)
	assertDecimal(t, "70", backdated.BalanceAfter)

	var rows []models.ContactTransaction
	require.NoError(t, db.Where("contact_id = ?", customer.ID).Order("transaction_date").Find(&rows).Error)
	require.Len(t, rows, 3)
	assertDecimal(t, "70", rows[1].BalanceBefore)
	assertDecimal(t, "170", rows[1].BalanceAfter)
	assertDecimal(t, "140", rows[2].BalanceAfter)

	stored, err := utils.FetchModel[models.Contact](ctx, db, customer.ID)
	require.NoError(t, err)
	assertDecimal(t, "140", stored.CurrentBalance)

	require.NoError(t, models.DeleteContactTransaction(ctx, db, backdated.ID))
	stored, err = utils.FetchModel[models.Contact](ctx, db, customer.ID)
	require.NoError(t, err)
	assertDecimal(t, "120", stored.CurrentBalance)

	breaks, err := models.VerifySubsidiaryLedgers(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, breaks)
}

func TestContactTransactionNeedsExistingContact(t *testing.T) {
	ctx := context.Background()
	db := testutils.NewTestDB(t)

	_, err := models.CreateContactTransaction(ctx, db, &models.NewContactTransaction{
		ContactId:       999,
		TransactionDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		TransactionType: models.ContactTransactionSaleInvoice,
		Amount:          decimal.NewFromInt(10),
	})
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)

	var count int64
	require.NoError(t, db.Model(&models.ContactTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRefundRaisesBothContactSides(t *testing.T) {
	assert.Equal(t, int64(1), models.ContactTransactionRefund.Sign(models.ContactTypeCustomer))
	assert.Equal(t, int64(1), models.ContactTransactionRefund.Sign(models.ContactTypeSupplier))
	assert.Equal(t, int64(0), models.ContactTransactionPayment.Sign(models.ContactTypeCustomer))
	assert.Equal(t, int64(0), models.ContactTransactionCollection.Sign(models.ContactTypeSupplier))
}
