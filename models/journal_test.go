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
	"gorm.io/gorm"
)

func journalAccounts(t *testing.T, ctx context.Context, db *gorm.DB) (cash *models.Account, capital *models.Account) {
	t.Helper()
	var err error
	cash, err = models.CreateAccount(ctx, db, &models.NewAccount{Code: "1101", Name: "Cash", AccountType: models.AccountTypeAsset, IsSelectable: utils.NewTrue()})
	require.NoError(t, err)
	capital, err = models.CreateAccount(ctx, db, &models.NewAccount{Code: "3101", Name: "Capital", AccountType: models.AccountTypeEquity, IsSelectable: utils.NewTrue()})
	require.NoError(t, err)
	return cash, capital
}

func TestJournalEnginePostUnpost(t *testing.T) {
	ctx := context.Background()
	db := testutils.NewTestDB(t)
	cash, capital := journalAccounts(t, ctx, db)

	var audit []models.AuditRecord
	engine := models.NewJournalEngine(nil, models.AuditSinkFunc(func(_ context.Context, _ *gorm.DB, rec models.AuditRecord) error {
		audit = append(audit, rec)
		return nil
	}))

	entry, err := models.CreateJournalEntry(ctx, db, &models.NewJournalEntry{
		EntryNumber: "JV-1",
		Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Items: []models.NewJournalItem{
			{AccountId: cash.ID, Debit: decimal.NewFromInt(300)},
			{AccountId: capital.ID, Credit: decimal.NewFromInt(300)},
		},
	})
	require.NoError(t, err)

	posted, err := engine.Post(ctx, db, entry.ID)
	require.NoError(t, err)
	require.True(t, posted)

	cash, err = models.GetAccountByCode(ctx, db, "1101")
	require.NoError(t, err)
	assertDecimal(t, "300", cash.Balance)
	capital, err = models.GetAccountByCode(ctx, db, "3101")
	require.NoError(t, err)
	assertDecimal(t, "300", capital.Balance)

	posted, err = engine.Post(ctx, db, entry.ID)
	require.NoError(t, err)
	assert.False(t, posted)

	_, err = models.AddJournalItem(ctx, db, entry.ID, &models.NewJournalItem{AccountId: cash.ID, Debit: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, models.ErrPostedEntryImmutable)
	require.ErrorIs(t, models.DeleteJournalEntry(ctx, db, entry.ID), models.ErrPostedEntryImmutable)

	// direct saves go through the model hooks
	stored, err := models.GetJournalEntry(ctx, db, entry.ID)
	require.NoError(t, err)
	stored.Description = "edited"
	require.ErrorIs(t, db.Omit("Items").Save(stored).Error, models.ErrPostedEntryImmutable)

	unposted, err := engine.Unpost(ctx, db, entry.ID)
	require.NoError(t, err)
	require.True(t, unposted)
	cash, err = models.GetAccountByCode(ctx, db, "1101")
	require.NoError(t, err)
	assertDecimal(t, "0", cash.Balance)

	require.Len(t, audit, 2)
	assert.Equal(t, models.AuditActionPost, audit[0].Action)
	assert.Equal(t, models.AuditActionUnpost, audit[1].Action)
	assert.Equal(t, "300.00", audit[0].Changes["debit_total"])

	require.NoError(t, models.DeleteJournalEntry(ctx, db, entry.ID))
}

func TestJournalEngineRejectsBadEntries(t *testing.T) {
	ctx := context.Background()
	db := testutils.NewTestDB(t)
	cash, capital := journalAccounts(t, ctx, db)
	engine := models.NewJournalEngine(nil, nil)
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	empty, err := models.CreateJournalEntry(ctx, db, &models.NewJournalEntry{EntryNumber: "JV-E", Date: date})
	require.NoError(t, err)
	_, err = engine.Post(ctx, db, empty.ID)
	require.ErrorIs(t, err, models.ErrEmptyEntry)

	unbalanced, err := models.CreateJournalEntry(ctx, db, &models.NewJournalEntry{
		EntryNumber: "JV-U",
		Date:        date,
		Items: []models.NewJournalItem{
			{AccountId: cash.ID, Debit: decimal.NewFromInt(10)},
			{AccountId: capital.ID, Credit: decimal.NewFromInt(9)},
		},
	})
	require.NoError(t, err)
	_, err = engine.Post(ctx, db, unbalanced.ID)
	require.ErrorIs(t, err, models.ErrUnbalancedEntry)

	parent, err := models.CreateAccount(ctx, db, &models.NewAccount{Code: "9", Name: "Group", AccountType: models.AccountTypeAsset, IsSelectable: utils.NewFalse()})
	require.NoError(t, err)
	_, err = models.CreateJournalEntry(ctx, db, &models.NewJournalEntry{
		EntryNumber: "JV-G",
		Date:        date,
		Items: []models.NewJournalItem{
			{AccountId: parent.ID, Debit: decimal.NewFromInt(5)},
			{AccountId: capital.ID, Credit: decimal.NewFromInt(5)},
		},
	})
	require.ErrorIs(t, err, models.ErrAccountNotPostable)

	lock := date
	_, err = models.UpdateSystemSettings(ctx, db, &models.NewSystemSettings{LockDate: &lock})
	require.NoError(t, err)
	_, err = models.CreateJournalEntry(ctx, db, &models.NewJournalEntry{EntryNumber: "JV-L", Date: date})
	require.ErrorIs(t, err, models.ErrPeriodLocked)

	cash, err = models.GetAccountByCode(ctx, db, "1101")
	require.NoError(t, err)
	assertDecimal(t, "0", cash.Balance)
}

func TestDraftJournalEntryEditAndDelete(t *testing.T) {
	ctx := context.Background()
	db := testutils.NewTestDB(t)
	cash, capital := journalAccounts(t, ctx, db)
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	empty, err := models.CreateJournalEntry(ctx, db, &models.NewJournalEntry{EntryNumber: "JE-1", Date: date})
	require.NoError(t, err)
	require.NoError(t, models.DeleteJournalEntry(ctx, db, empty.ID))
	_, err = models.GetJournalEntry(ctx, db, empty.ID)
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)

	entry, err := models.CreateJournalEntry(ctx, db, &models.NewJournalEntry{
		EntryNumber: "JE-2",
		Date:        date,
		Items: []models.NewJournalItem{
			{AccountId: cash.ID, Debit: decimal.NewFromInt(40)},
		},
	})
	require.NoError(t, err)

	item, err := models.AddJournalItem(ctx, db, entry.ID, &models.NewJournalItem{AccountId: capital.ID, Credit: decimal.NewFromInt(30)})
	require.NoError(t, err)
	item, err = models.UpdateJournalItem(ctx, db, item.ID, &models.NewJournalItem{AccountId: capital.ID, Credit: decimal.NewFromInt(40)})
	require.NoError(t, err)
	assertDecimal(t, "40", item.Credit)
	require.NoError(t, models.DeleteJournalItem(ctx, db, item.ID))

	stored, err := models.GetJournalEntry(ctx, db, entry.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)

	// a lock date set after the draft was written freezes it
	lock := date
	_, err = models.UpdateSystemSettings(ctx, db, &models.NewSystemSettings{LockDate: &lock})
	require.NoError(t, err)
	require.ErrorIs(t, models.DeleteJournalEntry(ctx, db, entry.ID), models.ErrPeriodLocked)

	_, err = models.UpdateSystemSettings(ctx, db, &models.NewSystemSettings{ClearLockDate: true})
	require.NoError(t, err)
	require.NoError(t, models.DeleteJournalEntry(ctx, db, entry.ID))

	var left int64
	require.NoError(t, db.Model(&models.JournalItem{}).Where("journal_entry_id = ?", entry.ID).Count(&left).Error)
	assert.Zero(t, left)
}
