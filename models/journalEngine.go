package models

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const journalEntityType = "journal_entry"

// JournalEngine posts and unposts journal entries. Sinks and Audit may be nil.
type JournalEngine struct {
	Sinks *BalanceSinkRegistry
	Audit AuditSink
}

func NewJournalEngine(sinks *BalanceSinkRegistry, audit AuditSink) *JournalEngine {
	return &JournalEngine{Sinks: sinks, Audit: audit}
}

// Post applies the entry to account balances. Returns false without side effects when already posted.
func (e *JournalEngine) Post(ctx context.Context, tx *gorm.DB, entryId int) (bool, error) {
	entry, err := utils.FetchModelForUpdate[JournalEntry](ctx, tx, entryId, "Items")
	if err != nil {
		return false, err
	}
	if entry.IsPosted {
		return false, nil
	}
	if err := entry.CheckTransactionLock(ctx, tx); err != nil {
		return false, err
	}
	if len(entry.Items) == 0 {
		return false, fmt.Errorf("%s: %w", entry.EntryNumber, ErrEmptyEntry)
	}
	debit, credit := entry.Totals()
	if !debit.Equal(credit) {
		return false, fmt.Errorf("%s: debit %s, credit %s: %w", entry.EntryNumber, debit.StringFixed(2), credit.StringFixed(2), ErrUnbalancedEntry)
	}

	if err := e.applyEntry(ctx, tx, entry, 1); err != nil {
		return false, err
	}

	now := time.Now().UTC()
	if err := tx.WithContext(ctx).Model(entry).UpdateColumns(map[string]interface{}{
		"is_posted": true,
		"posted_at": now,
	}).Error; err != nil {
		return false, err
	}
	entry.IsPosted = true
	entry.PostedAt = &now

	if err := e.record(ctx, tx, AuditActionPost, entry, "posted", debit); err != nil {
		return false, err
	}
	return true, nil
}

// Unpost reverses exactly what Post applied. Returns false when the entry is not posted.
func (e *JournalEngine) Unpost(ctx context.Context, tx *gorm.DB, entryId int) (bool, error) {
	entry, err := utils.FetchModelForUpdate[JournalEntry](ctx, tx, entryId, "Items")
	if err != nil {
		return false, err
	}
	if !entry.IsPosted {
		return false, nil
	}
	if err := entry.CheckTransactionLock(ctx, tx); err != nil {
		return false, err
	}

	if err := e.applyEntry(ctx, tx, entry, -1); err != nil {
		return false, err
	}

	if err := tx.WithContext(ctx).Model(entry).UpdateColumns(map[string]interface{}{
		"is_posted": false,
		"posted_at": nil,
	}).Error; err != nil {
		return false, err
	}
	entry.IsPosted = false
	entry.PostedAt = nil

	debit, _ := entry.Totals()
	if err := e.record(ctx, tx, AuditActionUnpost, entry, "draft", debit); err != nil {
		return false, err
	}
	return true, nil
}

// UnpostAndDelete removes a generated entry whatever its state. Used when a document is unposted.
func (e *JournalEngine) UnpostAndDelete(ctx context.Context, tx *gorm.DB, entryId int) error {
	if _, err := e.Unpost(ctx, tx, entryId); err != nil {
		return err
	}
	return DeleteJournalEntry(ctx, tx, entryId)
}

// applyEntry moves account balances by direction (+1 post, -1 unpost) and feeds the balance sinks.
func (e *JournalEngine) applyEntry(ctx context.Context, tx *gorm.DB, entry *JournalEntry, direction int64) error {
	type lineSum struct {
		debit  decimal.Decimal
		credit decimal.Decimal
	}
	sums := make(map[int]*lineSum)
	ids := make([]int, 0, len(entry.Items))
	for _, item := range entry.Items {
		if item.Debit.IsNegative() || item.Credit.IsNegative() || item.Debit.IsPositive() == item.Credit.IsPositive() {
			return fmt.Errorf("%s line %d: %w", entry.EntryNumber, item.ID, ErrInvalidJournalLine)
		}
		s, ok := sums[item.AccountId]
		if !ok {
			s = &lineSum{debit: decimal.Zero, credit: decimal.Zero}
			sums[item.AccountId] = s
			ids = append(ids, item.AccountId)
		}
		s.debit = s.debit.Add(item.Debit)
		s.credit = s.credit.Add(item.Credit)
	}
	sort.Ints(ids)

	accounts, err := lockAccounts(ctx, tx, ids)
	if err != nil {
		return err
	}
	// reversal must work even if an account was deactivated after posting
	if direction > 0 {
		for _, id := range ids {
			if !accounts[id].IsPostable() {
				return fmt.Errorf("%s: account %s: %w", entry.EntryNumber, accounts[id].Code, ErrAccountNotPostable)
			}
		}
	}

	for _, id := range ids {
		account := accounts[id]
		delta := account.BalanceEffect(sums[id].debit, sums[id].credit)
		if direction < 0 {
			delta = delta.Neg()
		}
		if delta.IsZero() {
			continue
		}
		account.Balance = account.Balance.Add(delta)
		if err := tx.WithContext(ctx).Model(account).UpdateColumn("balance", account.Balance).Error; err != nil {
			return err
		}
		if err := e.Sinks.Propagate(ctx, tx, account); err != nil {
			return err
		}
	}
	return nil
}

func (e *JournalEngine) record(ctx context.Context, tx *gorm.DB, action AuditAction, entry *JournalEntry, status string, debitTotal decimal.Decimal) error {
	if e.Audit == nil {
		return nil
	}
	return e.Audit.Record(ctx, tx, AuditRecord{
		Action:      action,
		EntityType:  journalEntityType,
		EntityId:    entry.ID,
		Description: entry.EntryNumber,
		Changes: map[string]interface{}{
			"status":      status,
			"debit_total": debitTotal.StringFixed(2),
		},
	})
}
