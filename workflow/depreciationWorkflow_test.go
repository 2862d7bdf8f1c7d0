package workflow_test

import (
	"testing"
	"time"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDepreciableAsset(t *testing.T, f *ledgerFixture) *models.FixedAsset {
	t.Helper()
	parent, err := models.GetAccountByCode(f.ctx, f.db, "11")
	require.NoError(t, err)
	accumulated, err := models.CreateAccount(f.ctx, f.db, &models.NewAccount{
		Code:         "116",
		Name:         "Accumulated Depreciation",
		AccountType:  models.AccountTypeAsset,
		ParentId:     &parent.ID,
		IsSelectable: utils.NewTrue(),
	})
	require.NoError(t, err)
	expense, err := models.GetAccountByCode(f.ctx, f.db, "52")
	require.NoError(t, err)

	asset, err := models.CreateFixedAsset(f.ctx, f.db, &models.NewFixedAsset{
		Code:                 "VAN-1",
		Name:                 "Delivery van",
		AcquisitionDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Cost:                 decimal.NewFromInt(3650),
		UsefulLifeYears:      1,
		ExpenseAccountId:     &expense.ID,
		AccumulatedAccountId: &accumulated.ID,
	})
	require.NoError(t, err)
	return asset
}

func TestDepreciationPostCapAndReverse(t *testing.T) {
	f := newLedgerFixture(t)
	asset := newDepreciableAsset(t, f)

	firstTarget := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	row, err := f.poster.PostDepreciation(f.ctx, asset.ID, firstTarget)
	require.NoError(t, err)
	require.NotNil(t, row)
	requireDecimal(t, "300", row.Amount, "30 days at 10 a day")
	requireDecimal(t, "3650", row.ValueBefore)
	requireDecimal(t, "3350", row.ValueAfter)
	require.NotNil(t, row.JournalEntryId)

	entry, err := models.GetJournalEntry(f.ctx, f.db, *row.JournalEntryId)
	require.NoError(t, err)
	assert.Equal(t, "DEP-VAN-1-20240131", entry.EntryNumber)
	assert.True(t, entry.IsPosted)
	requireDecimal(t, "300", f.accountBalance("52"))
	requireDecimal(t, "-300", f.accountBalance("116"))

	// a second run for the same day has nothing to book
	row, err = f.poster.PostDepreciation(f.ctx, asset.ID, firstTarget)
	require.NoError(t, err)
	assert.Nil(t, row)

	capped, err := f.poster.RunDepreciation(f.ctx, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, capped, 1)
	requireDecimal(t, "3350", capped[0].Amount, "capped at the remaining value")
	requireDecimal(t, "0", capped[0].ValueAfter)

	stored, err := utils.FetchModel[models.FixedAsset](f.ctx, f.db, asset.ID)
	require.NoError(t, err)
	requireDecimal(t, "0", stored.CurrentValue)
	f.assertLedgerHealthy()

	reversed, err := f.poster.ReverseLastDepreciation(f.ctx, asset.ID)
	require.NoError(t, err)
	require.True(t, reversed)
	stored, err = utils.FetchModel[models.FixedAsset](f.ctx, f.db, asset.ID)
	require.NoError(t, err)
	requireDecimal(t, "3350", stored.CurrentValue)
	require.NotNil(t, stored.LastDepreciationDate)
	assert.True(t, stored.LastDepreciationDate.Equal(firstTarget))
	requireDecimal(t, "300", f.accountBalance("52"))

	reversed, err = f.poster.ReverseLastDepreciation(f.ctx, asset.ID)
	require.NoError(t, err)
	require.True(t, reversed)
	reversed, err = f.poster.ReverseLastDepreciation(f.ctx, asset.ID)
	require.NoError(t, err)
	assert.False(t, reversed, "nothing left to reverse")
	requireDecimal(t, "0", f.accountBalance("52"))
	f.assertLedgerHealthy()
}
