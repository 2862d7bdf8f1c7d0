package workflow_test

import (
	"testing"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manualEntry(t *testing.T, f *ledgerFixture, number string, debit, credit int64) *models.NewJournalEntry {
	t.Helper()
	capital, err := models.GetAccountByCode(f.ctx, f.db, "31")
	require.NoError(t, err)
	return &models.NewJournalEntry{
		EntryNumber: number,
		Date:        postingDate,
		Description: "owner contribution",
		Items: []models.NewJournalItem{
			{AccountId: *f.safe.AccountId, Debit: decimal.NewFromInt(debit)},
			{AccountId: capital.ID, Credit: decimal.NewFromInt(credit)},
		},
	}
}

func TestManualJournalLifecycle(t *testing.T) {
	f := newLedgerFixture(t)

	entry, err := f.poster.CreateManualJournal(f.ctx, manualEntry(t, f, "JV-001", 1000, 1000), true)
	require.NoError(t, err)
	require.True(t, entry.IsPosted)
	assert.Equal(t, models.DocumentJournal, entry.ReferenceType)
	requireDecimal(t, "1000", f.accountBalance("111001"))
	requireDecimal(t, "1000", f.accountBalance("31"))
	requireDecimal(t, "1000", f.reloadSafe().LedgerBalance)
	requireDecimal(t, "0", f.reloadSafe().CurrentBalance, "manual entries do not touch the cash chain")

	_, err = models.UpdateJournalItem(f.ctx, f.db, entry.Items[0].ID, &models.NewJournalItem{
		AccountId: entry.Items[0].AccountId,
		Debit:     decimal.NewFromInt(900),
	})
	require.ErrorIs(t, err, models.ErrPostedEntryImmutable)
	require.ErrorIs(t, models.DeleteJournalItem(f.ctx, f.db, entry.Items[1].ID), models.ErrPostedEntryImmutable)

	unposted, err := f.poster.UnpostJournalEntry(f.ctx, entry.ID)
	require.NoError(t, err)
	require.True(t, unposted)
	requireDecimal(t, "0", f.accountBalance("31"))
	requireDecimal(t, "0", f.reloadSafe().LedgerBalance)

	_, err = models.UpdateJournalItem(f.ctx, f.db, entry.Items[0].ID, &models.NewJournalItem{
		AccountId: entry.Items[0].AccountId,
		Debit:     decimal.NewFromInt(900),
	})
	require.NoError(t, err, "drafts stay editable")

	_, err = f.poster.PostJournalEntry(f.ctx, entry.ID)
	require.ErrorIs(t, err, models.ErrUnbalancedEntry)
	requireDecimal(t, "0", f.accountBalance("31"))

	require.NoError(t, f.poster.DeleteManualJournal(f.ctx, entry.ID))
	_, err = models.GetJournalEntry(f.ctx, f.db, entry.ID)
	require.Error(t, err)
	f.assertLedgerHealthy()
}

func TestManualJournalRejectsGeneratedEntries(t *testing.T) {
	f := newLedgerFixture(t)
	invoice := f.saleInvoice(models.PaymentTypeCash, 1)
	_, err := f.poster.PostInvoice(f.ctx, invoice.ID)
	require.NoError(t, err)
	stored, err := workflowInvoice(f, invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.JournalEntryId)

	_, err = f.poster.UnpostJournalEntry(f.ctx, *stored.JournalEntryId)
	require.ErrorIs(t, err, workflow.ErrGeneratedEntry)
	require.ErrorIs(t, f.poster.DeleteManualJournal(f.ctx, *stored.JournalEntryId), workflow.ErrGeneratedEntry)
	requireDecimal(t, "100", f.accountBalance("41"))
}

func TestUnbalancedManualJournalStaysDraft(t *testing.T) {
	f := newLedgerFixture(t)
	entry, err := f.poster.CreateManualJournal(f.ctx, manualEntry(t, f, "JV-002", 100, 90), true)
	require.ErrorIs(t, err, models.ErrUnbalancedEntry)
	require.NotNil(t, entry)
	assert.False(t, entry.IsPosted)
	requireDecimal(t, "0", f.accountBalance("31"))

	err = models.DeleteJournalItem(f.ctx, f.db, entry.Items[1].ID)
	require.NoError(t, err)
	_, err = f.poster.PostJournalEntry(f.ctx, entry.ID)
	require.Error(t, err)
}

func TestMissingLedgerLink(t *testing.T) {
	unlinkedSafe := func(t *testing.T, f *ledgerFixture) *models.Expense {
		t.Helper()
		safe, err := models.CreateSafe(f.ctx, f.db, &models.NewSafe{Name: "Petty Cash"})
		require.NoError(t, err)
		expense, err := f.poster.CreateExpense(f.ctx, &models.NewCashVoucher{
			Date:   postingDate,
			SafeId: &safe.ID,
			Amount: decimal.NewFromInt(40),
		})
		require.NoError(t, err)
		return expense
	}

	t.Run("strict", func(t *testing.T) {
		f := newLedgerFixture(t, workflow.WithStrictLedgerLinks(true))
		expense := unlinkedSafe(t, f)

		posted, err := f.poster.PostExpense(f.ctx, expense.ID)
		require.ErrorIs(t, err, models.ErrMissingLedgerLink)
		assert.False(t, posted)
		assert.False(t, f.artifacts(models.DocumentExpense, expense.ID).Any(), "rolled back")
		requireDecimal(t, "0", f.accountBalance("52"))
	})

	t.Run("lenient", func(t *testing.T) {
		f := newLedgerFixture(t)
		expense := unlinkedSafe(t, f)

		posted, err := f.poster.PostExpense(f.ctx, expense.ID)
		require.NoError(t, err)
		assert.True(t, posted)

		entries, err := models.FindJournalEntriesByReference(f.ctx, f.db, models.DocumentExpense, expense.ID)
		require.NoError(t, err)
		assert.Empty(t, entries, "a single surviving line produces no entry")
		assert.Equal(t, int64(1), f.artifacts(models.DocumentExpense, expense.ID).SafeTransactions)
		requireDecimal(t, "0", f.accountBalance("52"))
		f.assertLedgerHealthy()
	})
}
