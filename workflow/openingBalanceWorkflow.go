package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// openingBalance describes the opening entry of a safe, bank or contact.
// debit is signed: positive debits the owner's account, negative credits it.
type openingBalance struct {
	name      string
	accountId *int
	debit     decimal.Decimal
	date      time.Time
	entryId   *int
}

func safeOpening(s *models.Safe) openingBalance {
	return openingBalance{s.Name, s.AccountId, s.InitialBalance, s.CreatedAt, s.OpeningJournalEntryId}
}

func bankOpening(b *models.Bank) openingBalance {
	return openingBalance{b.Name, b.AccountId, b.InitialBalance, b.CreatedAt, b.OpeningJournalEntryId}
}

// contactOpening: customers open on the debit side, suppliers on the credit side,
// unless the initial balance type says otherwise.
func contactOpening(c *models.Contact) openingBalance {
	debit := c.OpeningChainBalance()
	if c.ContactType == models.ContactTypeSupplier {
		debit = debit.Neg()
	}
	return openingBalance{c.Name, c.AccountId, debit, c.CreatedAt, c.OpeningJournalEntryId}
}

func (p *Poster) PostSafeOpeningBalance(ctx context.Context, safeId int) (bool, error) {
	return postOpeningBalance(ctx, p, models.DocumentSafeOpening, safeId, safeOpening)
}

func (p *Poster) UnpostSafeOpeningBalance(ctx context.Context, safeId int) (bool, error) {
	return unpostOpeningBalance(ctx, p, models.DocumentSafeOpening, safeId, safeOpening)
}

func (p *Poster) PostBankOpeningBalance(ctx context.Context, bankId int) (bool, error) {
	return postOpeningBalance(ctx, p, models.DocumentBankOpening, bankId, bankOpening)
}

func (p *Poster) UnpostBankOpeningBalance(ctx context.Context, bankId int) (bool, error) {
	return unpostOpeningBalance(ctx, p, models.DocumentBankOpening, bankId, bankOpening)
}

func (p *Poster) PostContactOpeningBalance(ctx context.Context, contactId int) (bool, error) {
	return postOpeningBalance(ctx, p, models.DocumentContactOpening, contactId, contactOpening)
}

func (p *Poster) UnpostContactOpeningBalance(ctx context.Context, contactId int) (bool, error) {
	return unpostOpeningBalance(ctx, p, models.DocumentContactOpening, contactId, contactOpening)
}

// postOpeningBalance posts owner account against the settings opening balance account.
// It returns false when already posted or when there is no opening balance.
func postOpeningBalance[T any](ctx context.Context, p *Poster, docType models.DocumentType, id int, describe func(*T) openingBalance) (bool, error) {
	posted := false
	err := p.locked(ctx, "Post opening balance", docType, id, func(ctx context.Context, tx *gorm.DB) error {
		owner, err := utils.FetchModelForUpdate[T](ctx, tx, id)
		if err != nil {
			return err
		}
		opening := describe(owner)
		if opening.entryId != nil || opening.debit.IsZero() {
			return nil
		}
		date := utils.TruncateDate(opening.date)
		if err := EnforcePostingGate(ctx, tx, docType, id, date); err != nil {
			return err
		}

		run, err := p.newRun(ctx, tx, docType, id, date)
		if err != nil {
			return err
		}
		account, err := run.account(opening.accountId)
		if err != nil {
			return err
		}
		run.journal.Description = fmt.Sprintf("opening balance of %s", opening.name)
		run.journal.Debit(account, opening.debit, opening.name)
		run.journal.Credit(run.defaults.OpeningBalance, opening.debit, "opening balance")
		entryId, err := run.commitJournal()
		if err != nil || entryId == nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(new(T)).Where("id = ?", id).UpdateColumn("opening_journal_entry_id", *entryId).Error; err != nil {
			return err
		}
		posted = true
		return nil
	})
	if err != nil {
		config.LogError(p.Logger, "OpeningBalanceWorkflow.go", "postOpeningBalance", string(docType), id, err)
		return false, err
	}
	return posted, nil
}

func unpostOpeningBalance[T any](ctx context.Context, p *Poster, docType models.DocumentType, id int, describe func(*T) openingBalance) (bool, error) {
	unposted := false
	err := p.locked(ctx, "Unpost opening balance", docType, id, func(ctx context.Context, tx *gorm.DB) error {
		owner, err := utils.FetchModelForUpdate[T](ctx, tx, id)
		if err != nil {
			return err
		}
		opening := describe(owner)
		if opening.entryId == nil {
			return nil
		}
		entry, err := utils.FetchModel[models.JournalEntry](ctx, tx, *opening.entryId)
		if err != nil {
			return err
		}
		if err := EnforcePostingGate(ctx, tx, docType, id, entry.Date); err != nil {
			return err
		}
		if err := p.Engine.UnpostAndDelete(ctx, tx, entry.ID); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(new(T)).Where("id = ?", id).UpdateColumn("opening_journal_entry_id", nil).Error; err != nil {
			return err
		}
		unposted = true
		return nil
	})
	if err != nil {
		config.LogError(p.Logger, "OpeningBalanceWorkflow.go", "unpostOpeningBalance", string(docType), id, err)
		return false, err
	}
	return unposted, nil
}
