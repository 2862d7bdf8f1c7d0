package workflow_test

import (
	"testing"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsidiaryChainRepair(t *testing.T) {
	f := newLedgerFixture(t)
	for i := 0; i < 2; i++ {
		invoice := f.saleInvoice(models.PaymentTypeCash, 1)
		_, err := f.poster.PostInvoice(f.ctx, invoice.ID)
		require.NoError(t, err)
	}
	f.assertLedgerHealthy()

	require.NoError(t, f.db.Model(&models.Safe{}).Where("id = ?", f.safe.ID).
		UpdateColumn("current_balance", decimal.NewFromInt(999)).Error)
	require.NoError(t, f.db.Model(&models.SafeTransaction{}).Where("safe_id = ?", f.safe.ID).
		UpdateColumn("balance_after", decimal.NewFromInt(1)).Error)

	breaks, err := models.VerifySubsidiaryLedgers(f.ctx, f.db)
	require.NoError(t, err)
	require.NotEmpty(t, breaks)
	for _, b := range breaks {
		assert.Equal(t, "safe", b.OwnerType)
		assert.Equal(t, f.safe.ID, b.OwnerId)
	}

	require.NoError(t, models.RecalculateAllSubsidiaryLedgers(f.ctx, f.db))
	breaks, err = models.VerifySubsidiaryLedgers(f.ctx, f.db)
	require.NoError(t, err)
	assert.Empty(t, breaks)
	requireDecimal(t, "210", f.reloadSafe().CurrentBalance)
}

func TestRebuildAccountBalancesFixesDrift(t *testing.T) {
	f := newLedgerFixture(t)
	invoice := f.saleInvoice(models.PaymentTypeCash, 1)
	_, err := f.poster.PostInvoice(f.ctx, invoice.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Account{}).Where("id = ?", *f.safe.AccountId).
		UpdateColumn("balance", decimal.NewFromInt(7)).Error)

	drifts, err := models.RebuildAccountBalances(f.ctx, f.db, f.poster.Sinks, false)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, "111001", drifts[0].Code)
	requireDecimal(t, "7", drifts[0].Stored)
	requireDecimal(t, "105", drifts[0].Computed)
	requireDecimal(t, "7", f.accountBalance("111001"), "report only")

	drifts, err = models.RebuildAccountBalances(f.ctx, f.db, f.poster.Sinks, true)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	requireDecimal(t, "105", f.accountBalance("111001"))
	requireDecimal(t, "105", f.reloadSafe().LedgerBalance, "fix reaches the linked safe")

	f.assertLedgerHealthy()
}

func TestUnbalancedPostedEntriesReportsTampering(t *testing.T) {
	f := newLedgerFixture(t)
	entry, err := f.poster.CreateManualJournal(f.ctx, manualEntry(t, f, "JV-300", 20, 20), true)
	require.NoError(t, err)

	// raw SQL bypasses the immutability hooks
	require.NoError(t, f.db.Exec("UPDATE journal_items SET debit = ? WHERE id = ?", 25, entry.Items[0].ID).Error)

	unbalanced, err := models.UnbalancedPostedEntries(f.ctx, f.db)
	require.NoError(t, err)
	assert.Equal(t, []int{entry.ID}, unbalanced)
}
