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

func TestAccountTreeAndMaintenance(t *testing.T) {
	ctx := context.Background()
	db := testutils.NewTestDB(t)

	root, err := models.CreateAccount(ctx, db, &models.NewAccount{Code: "1", Name: "Assets", AccountType: models.AccountTypeAsset, IsSelectable: utils.NewFalse()})
	require.NoError(t, err)
	cash, err := models.CreateAccount(ctx, db, &models.NewAccount{Code: "11", Name: "Cash", AccountType: models.AccountTypeAsset, ParentId: &root.ID, IsSelectable: utils.NewTrue()})
	require.NoError(t, err)
	capital, err := models.CreateAccount(ctx, db, &models.NewAccount{Code: "3", Name: "Capital", AccountType: models.AccountTypeEquity, IsSelectable: utils.NewTrue()})
	require.NoError(t, err)

	_, err = models.CreateAccount(ctx, db, &models.NewAccount{Code: "21", Name: "Misplaced", AccountType: models.AccountTypeAsset, ParentId: &root.ID})
	require.Error(t, err, "child code must extend the parent code")

	entry, err := models.CreateJournalEntry(ctx, db, &models.NewJournalEntry{
		EntryNumber: "JV-T1",
		Date:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Items: []models.NewJournalItem{
			{AccountId: cash.ID, Debit: decimal.NewFromInt(100)},
			{AccountId: capital.ID, Credit: decimal.NewFromInt(100)},
		},
	})
	require.NoError(t, err)
	_, err = models.NewJournalEngine(nil, nil).Post(ctx, db, entry.ID)
	require.NoError(t, err)

	tree, err := models.GetAccountTree(ctx, db)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "1", tree[0].Account.Code)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "11", tree[0].Children[0].Account.Code)
	assertDecimal(t, "100", tree[0].RolledUpBalance)
	assertDecimal(t, "100", tree[1].RolledUpBalance)

	_, err = models.UpdateAccount(ctx, db, cash.ID, &models.NewAccount{Code: "11", Name: "Cash", AccountType: models.AccountTypeLiability, ParentId: &root.ID})
	require.Error(t, err, "type is frozen once lines exist")
	_, err = models.UpdateAccount(ctx, db, cash.ID, &models.NewAccount{Code: "11", Name: "Cash", AccountType: models.AccountTypeAsset, ParentId: &root.ID, IsSelectable: utils.NewFalse()})
	require.Error(t, err, "used accounts stay selectable")

	renamed, err := models.UpdateAccount(ctx, db, cash.ID, &models.NewAccount{Code: "11", Name: "Cash on hand", AccountType: models.AccountTypeAsset, ParentId: &root.ID})
	require.NoError(t, err)
	assert.Equal(t, "Cash on hand", renamed.Name)
	assertDecimal(t, "100", renamed.Balance)

	assert.Error(t, models.DeleteAccount(ctx, db, root.ID), "has sub-accounts")
	assert.Error(t, models.DeleteAccount(ctx, db, cash.ID), "has journal lines")

	spare, err := models.CreateAccount(ctx, db, &models.NewAccount{Code: "12", Name: "Spare", AccountType: models.AccountTypeAsset, ParentId: &root.ID})
	require.NoError(t, err)
	require.NoError(t, models.DeleteAccount(ctx, db, spare.ID))
	_, err = models.GetAccountByCode(ctx, db, "12")
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestFinancialPeriodLocking(t *testing.T) {
	ctx := context.Background()
	db := testutils.NewTestDB(t)

	q1, err := models.CreateFinancialPeriod(ctx, db, &models.NewFinancialPeriod{
		Name:      "2024 Q1",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = models.CreateFinancialPeriod(ctx, db, &models.NewFinancialPeriod{
		Name:      "overlap",
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)

	endOfQuarter := time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC)
	locked, err := models.IsDateLocked(ctx, db, endOfQuarter)
	require.NoError(t, err)
	assert.False(t, locked, "open period")

	closed, err := models.CloseFinancialPeriod(ctx, db, q1.ID)
	require.NoError(t, err)
	assert.True(t, closed.IsClosed)
	assert.NotNil(t, closed.ClosedAt)

	locked, err = models.IsDateLocked(ctx, db, endOfQuarter)
	require.NoError(t, err)
	assert.True(t, locked, "any time on the end date is inside")
	require.ErrorIs(t, models.CheckPeriodLock(ctx, db, endOfQuarter), models.ErrPeriodLocked)

	locked, err = models.IsDateLocked(ctx, db, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, locked)

	_, err = models.ReopenFinancialPeriod(ctx, db, q1.ID)
	require.NoError(t, err)
	require.NoError(t, models.CheckPeriodLock(ctx, db, endOfQuarter))
}
