package workflow_test

import (
	"testing"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/mmdatafocus/ledger_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseWithVat(t *testing.T) {
	f := newLedgerFixture(t)
	expense, err := f.poster.CreateExpense(f.ctx, &models.NewCashVoucher{
		Date:        postingDate,
		SafeId:      &f.safe.ID,
		Amount:      decimal.NewFromInt(100),
		VatRate:     decimal.NewFromInt(5),
		Description: "office rent",
		AutoPost:    true,
	})
	require.NoError(t, err)
	require.True(t, expense.IsPosted)
	requireDecimal(t, "5", expense.VatAmount)
	requireDecimal(t, "105", expense.TotalAmount)

	requireDecimal(t, "100", f.accountBalance("52"), "default expense")
	requireDecimal(t, "5", f.accountBalance("114"), "vat input")
	requireDecimal(t, "-105", f.accountBalance("111001"), "safe account")
	safe := f.reloadSafe()
	requireDecimal(t, "-105", safe.CurrentBalance)
	requireDecimal(t, "-105", safe.LedgerBalance)
	f.assertLedgerHealthy()

	unposted, err := f.poster.UnpostExpense(f.ctx, expense.ID)
	require.NoError(t, err)
	require.True(t, unposted)
	requireDecimal(t, "0", f.accountBalance("52"))
	requireDecimal(t, "0", f.reloadSafe().CurrentBalance)
	assert.False(t, f.artifacts(models.DocumentExpense, expense.ID).Any())

	require.NoError(t, f.poster.DeleteExpense(f.ctx, expense.ID))
}

func TestIncomeIntoBank(t *testing.T) {
	f := newLedgerFixture(t)
	income, err := f.poster.CreateIncome(f.ctx, &models.NewCashVoucher{
		Date:     postingDate,
		BankId:   &f.bank.ID,
		Amount:   decimal.NewFromInt(200),
		VatRate:  decimal.NewFromInt(5),
		AutoPost: true,
	})
	require.NoError(t, err)
	require.True(t, income.IsPosted)

	requireDecimal(t, "210", f.accountBalance("112001"), "bank account")
	requireDecimal(t, "200", f.accountBalance("42"), "other income")
	requireDecimal(t, "10", f.accountBalance("212"), "vat output")
	bank, err := utils.FetchModel[models.Bank](f.ctx, f.db, f.bank.ID)
	require.NoError(t, err)
	requireDecimal(t, "210", bank.CurrentBalance)
	requireDecimal(t, "210", bank.LedgerBalance)
	f.assertLedgerHealthy()
}

func TestMoneyTransferBetweenSafeAndBank(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.poster.CreateMoneyTransfer(f.ctx, &models.NewMoneyTransfer{
		TransferDate: postingDate,
		FromSafeId:   &f.safe.ID,
		ToSafeId:     &f.safe.ID,
		Amount:       decimal.NewFromInt(10),
	})
	require.ErrorIs(t, err, models.ErrSameTransferEnds)

	transfer, err := f.poster.CreateMoneyTransfer(f.ctx, &models.NewMoneyTransfer{
		TransferDate: postingDate,
		FromSafeId:   &f.safe.ID,
		ToBankId:     &f.bank.ID,
		Amount:       decimal.NewFromInt(70),
	})
	require.NoError(t, err)
	assert.False(t, transfer.IsPosted)

	posted, err := f.poster.PostMoneyTransfer(f.ctx, transfer.ID)
	require.NoError(t, err)
	require.True(t, posted)
	requireDecimal(t, "-70", f.reloadSafe().CurrentBalance)
	requireDecimal(t, "-70", f.accountBalance("111001"))
	requireDecimal(t, "70", f.accountBalance("112001"))
	assert.Equal(t, int64(2), f.artifacts(models.DocumentMoneyTransfer, transfer.ID).SafeTransactions)
	f.assertLedgerHealthy()

	require.NoError(t, f.poster.DeleteMoneyTransfer(f.ctx, transfer.ID))
	requireDecimal(t, "0", f.reloadSafe().CurrentBalance)
	requireDecimal(t, "0", f.accountBalance("112001"))
	assert.False(t, f.artifacts(models.DocumentMoneyTransfer, transfer.ID).Any())
}

func TestSafeOpeningBalance(t *testing.T) {
	f := newLedgerFixture(t)
	account := f.linkedAccount(workflow.LinkedAccountSafe, "Branch Safe")
	safe, err := models.CreateSafe(f.ctx, f.db, &models.NewSafe{
		Name:           "Branch Safe",
		AccountId:      &account.ID,
		InitialBalance: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	requireDecimal(t, "500", safe.CurrentBalance)

	posted, err := f.poster.PostSafeOpeningBalance(f.ctx, safe.ID)
	require.NoError(t, err)
	require.True(t, posted)
	requireDecimal(t, "500", f.accountBalance(account.Code))
	requireDecimal(t, "500", f.accountBalance("31"), "capital")

	stored, err := utils.FetchModel[models.Safe](f.ctx, f.db, safe.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.OpeningJournalEntryId)
	requireDecimal(t, "500", stored.LedgerBalance)
	requireDecimal(t, "500", stored.CurrentBalance, "opening entry leaves the chain alone")
	f.assertLedgerHealthy()

	again, err := f.poster.PostSafeOpeningBalance(f.ctx, safe.ID)
	require.NoError(t, err)
	assert.False(t, again)

	unposted, err := f.poster.UnpostSafeOpeningBalance(f.ctx, safe.ID)
	require.NoError(t, err)
	require.True(t, unposted)
	requireDecimal(t, "0", f.accountBalance(account.Code))
	requireDecimal(t, "0", f.accountBalance("31"))

	entries, err := models.FindJournalEntriesByReference(f.ctx, f.db, models.DocumentSafeOpening, safe.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// the fixture safe has no opening balance
	posted, err = f.poster.PostSafeOpeningBalance(f.ctx, f.safe.ID)
	require.NoError(t, err)
	assert.False(t, posted)
}

func TestSupplierOpeningBalanceIsCredit(t *testing.T) {
	f := newLedgerFixture(t)
	account := f.linkedAccount(workflow.LinkedAccountSupplier, "Delta Traders")
	supplier, err := models.CreateContact(f.ctx, f.db, &models.NewContact{
		Name:           "Delta Traders",
		ContactType:    models.ContactTypeSupplier,
		InitialBalance: decimal.NewFromInt(80),
		AccountId:      &account.ID,
	})
	require.NoError(t, err)

	posted, err := f.poster.PostContactOpeningBalance(f.ctx, supplier.ID)
	require.NoError(t, err)
	require.True(t, posted)
	requireDecimal(t, "80", f.accountBalance(account.Code), "liability grows on credit")
	requireDecimal(t, "-80", f.accountBalance("31"))
	f.assertLedgerHealthy()
}

func TestIncomeOnSafeWithOpeningBalance(t *testing.T) {
	f := newLedgerFixture(t)
	account := f.linkedAccount(workflow.LinkedAccountSafe, "Till")
	safe, err := models.CreateSafe(f.ctx, f.db, &models.NewSafe{
		Name:           "Till",
		AccountId:      &account.ID,
		InitialBalance: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	_, err = f.poster.PostSafeOpeningBalance(f.ctx, safe.ID)
	require.NoError(t, err)

	income, err := f.poster.CreateIncome(f.ctx, &models.NewCashVoucher{
		Date:     postingDate,
		SafeId:   &safe.ID,
		Amount:   decimal.NewFromInt(200),
		AutoPost: true,
	})
	require.NoError(t, err)
	require.NotNil(t, income.SafeTransactionId)
	require.NotNil(t, income.JournalEntryId)

	row, err := utils.FetchModel[models.SafeTransaction](f.ctx, f.db, *income.SafeTransactionId)
	require.NoError(t, err)
	requireDecimal(t, "1000", row.BalanceBefore)
	requireDecimal(t, "1200", row.BalanceAfter)

	requireDecimal(t, "1200", f.accountBalance(account.Code))
	stored, err := utils.FetchModel[models.Safe](f.ctx, f.db, safe.ID)
	require.NoError(t, err)
	requireDecimal(t, "1200", stored.CurrentBalance)
	requireDecimal(t, "1200", stored.LedgerBalance)

	entry, err := models.GetJournalEntry(f.ctx, f.db, *income.JournalEntryId)
	require.NoError(t, err)
	require.Len(t, entry.Items, 2)
	assert.True(t, entry.IsPosted)
	assert.True(t, entry.IsBalanced())
	f.assertLedgerHealthy()
}
