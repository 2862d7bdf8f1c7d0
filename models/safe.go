package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Safe is a cash box. CurrentBalance follows its transaction chain, LedgerBalance its linked account.
type Safe struct {
	ID                    int             `gorm:"primary_key" json:"id"`
	Name                  string          `gorm:"size:100;uniqueIndex;not null" json:"name"`
	AccountId             *int            `gorm:"uniqueIndex" json:"account_id"`
	InitialBalance        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"initial_balance"`
	CurrentBalance        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"current_balance"`
	LedgerBalance         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"ledger_balance"`
	OpeningJournalEntryId *int            `json:"opening_journal_entry_id"`
	IsActive              *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSafe struct {
	Name           string          `json:"name" validate:"required,max=100"`
	AccountId      *int            `json:"account_id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

func (input *NewSafe) validate(ctx context.Context, tx *gorm.DB, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Safe](ctx, tx, "name", input.Name, id); err != nil {
		return err
	}
	if input.InitialBalance.IsNegative() {
		return errors.New("initial balance cannot be negative")
	}
	return validateAccountLink(ctx, tx, input.AccountId, "safe", id)
}

func CreateSafe(ctx context.Context, tx *gorm.DB, input *NewSafe) (*Safe, error) {
	if err := input.validate(ctx, tx, 0); err != nil {
		return nil, err
	}
	safe := Safe{
		Name:           input.Name,
		AccountId:      input.AccountId,
		InitialBalance: input.InitialBalance,
		CurrentBalance: input.InitialBalance,
		IsActive:       utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&safe).Error; err != nil {
		return nil, err
	}
	if err := syncLedgerBalance[Safe](ctx, tx, safe.ID, safe.AccountId); err != nil {
		return nil, err
	}
	return utils.FetchModel[Safe](ctx, tx, safe.ID)
}

// UpdateSafe refuses to move the initial balance while its opening entry is posted.
func UpdateSafe(ctx context.Context, tx *gorm.DB, id int, input *NewSafe) (*Safe, error) {
	if err := input.validate(ctx, tx, id); err != nil {
		return nil, err
	}
	safe, err := utils.FetchModelForUpdate[Safe](ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := guardOpeningBalanceChange(safe.OpeningJournalEntryId, safe.InitialBalance, input.InitialBalance, safe.AccountId, input.AccountId); err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(safe).Updates(map[string]interface{}{
		"name":            input.Name,
		"account_id":      input.AccountId,
		"initial_balance": input.InitialBalance,
	}).Error; err != nil {
		return nil, err
	}
	if _, err := RecalculateSafeBalance(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := syncLedgerBalance[Safe](ctx, tx, id, input.AccountId); err != nil {
		return nil, err
	}
	return utils.FetchModel[Safe](ctx, tx, id)
}

func guardOpeningBalanceChange(openingEntryId *int, oldBalance, newBalance decimal.Decimal, oldAccount, newAccount *int) error {
	if openingEntryId == nil {
		return nil
	}
	if !oldBalance.Equal(newBalance) || utils.DereferencePtr(oldAccount) != utils.DereferencePtr(newAccount) {
		return errors.New("unpost the opening balance before changing the initial balance or account")
	}
	return nil
}

// syncLedgerBalance copies the linked account balance (zero when unlinked) onto the owner.
func syncLedgerBalance[T any](ctx context.Context, tx *gorm.DB, id int, accountId *int) error {
	balance := decimal.Zero
	if accountId != nil {
		account, err := utils.FetchModel[Account](ctx, tx, *accountId)
		if err != nil {
			return err
		}
		balance = account.Balance
	}
	return tx.WithContext(ctx).Model(new(T)).Where("id = ?", id).UpdateColumn("ledger_balance", balance).Error
}
