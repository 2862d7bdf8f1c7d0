package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Bank struct {
	ID                    int             `gorm:"primary_key" json:"id"`
	Name                  string          `gorm:"size:100;uniqueIndex;not null" json:"name"`
	AccountNumber         string          `gorm:"size:50" json:"account_number"`
	Iban                  string          `gorm:"size:50" json:"iban"`
	AccountId             *int            `gorm:"uniqueIndex" json:"account_id"`
	InitialBalance        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"initial_balance"`
	CurrentBalance        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"current_balance"`
	LedgerBalance         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"ledger_balance"`
	OpeningJournalEntryId *int            `json:"opening_journal_entry_id"`
	IsActive              *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBank struct {
	Name           string          `json:"name" validate:"required,max=100"`
	AccountNumber  string          `json:"account_number" validate:"max=50"`
	Iban           string          `json:"iban" validate:"max=50"`
	AccountId      *int            `json:"account_id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

func (input *NewBank) validate(ctx context.Context, tx *gorm.DB, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Bank](ctx, tx, "name", input.Name, id); err != nil {
		return err
	}
	if input.InitialBalance.IsNegative() {
		return errors.New("initial balance cannot be negative")
	}
	return validateAccountLink(ctx, tx, input.AccountId, "bank", id)
}

func CreateBank(ctx context.Context, tx *gorm.DB, input *NewBank) (*Bank, error) {
	if err := input.validate(ctx, tx, 0); err != nil {
		return nil, err
	}
	bank := Bank{
		Name:           input.Name,
		AccountNumber:  input.AccountNumber,
		Iban:           input.Iban,
		AccountId:      input.AccountId,
		InitialBalance: input.InitialBalance,
		CurrentBalance: input.InitialBalance,
		IsActive:       utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&bank).Error; err != nil {
		return nil, err
	}
	if err := syncLedgerBalance[Bank](ctx, tx, bank.ID, bank.AccountId); err != nil {
		return nil, err
	}
	return utils.FetchModel[Bank](ctx, tx, bank.ID)
}

func UpdateBank(ctx context.Context, tx *gorm.DB, id int, input *NewBank) (*Bank, error) {
	if err := input.validate(ctx, tx, id); err != nil {
		return nil, err
	}
	bank, err := utils.FetchModelForUpdate[Bank](ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := guardOpeningBalanceChange(bank.OpeningJournalEntryId, bank.InitialBalance, input.InitialBalance, bank.AccountId, input.AccountId); err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(bank).Updates(map[string]interface{}{
		"name":            input.Name,
		"account_number":  input.AccountNumber,
		"iban":            input.Iban,
		"account_id":      input.AccountId,
		"initial_balance": input.InitialBalance,
	}).Error; err != nil {
		return nil, err
	}
	if _, err := RecalculateBankBalance(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := syncLedgerBalance[Bank](ctx, tx, id, input.AccountId); err != nil {
		return nil, err
	}
	return utils.FetchModel[Bank](ctx, tx, id)
}
