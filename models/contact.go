package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Contact is a customer or a supplier. CurrentBalance is what a customer owes us
// or what we owe a supplier.
type Contact struct {
	ID                    int             `gorm:"primary_key" json:"id"`
	Name                  string          `gorm:"size:200;not null;index" json:"name"`
	ContactType           ContactType     `gorm:"size:20;not null;index" json:"contact_type"`
	Phone                 string          `gorm:"size:30" json:"phone"`
	Email                 string          `gorm:"size:100" json:"email"`
	InitialBalance        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"initial_balance"`
	InitialBalanceType    BalanceType     `gorm:"size:10;not null;default:'debit'" json:"initial_balance_type"`
	CurrentBalance        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"current_balance"`
	LedgerBalance         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"ledger_balance"`
	CreditLimit           decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit_limit"`
	AccountId             *int            `gorm:"uniqueIndex" json:"account_id"`
	OpeningJournalEntryId *int            `json:"opening_journal_entry_id"`
	IsActive              *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewContact struct {
	Name               string          `json:"name" validate:"required,max=200"`
	ContactType        ContactType     `json:"contact_type" validate:"required,oneof=customer supplier"`
	Phone              string          `json:"phone" validate:"max=30"`
	Email              string          `json:"email" validate:"omitempty,email,max=100"`
	InitialBalance     decimal.Decimal `json:"initial_balance"`
	InitialBalanceType BalanceType     `json:"initial_balance_type" validate:"omitempty,oneof=debit credit"`
	CreditLimit        decimal.Decimal `json:"credit_limit"`
	AccountId          *int            `json:"account_id"`
}

func (input *NewContact) validate(ctx context.Context, tx *gorm.DB, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return fmt.Errorf("phone: %w", err)
		}
	}
	if input.InitialBalance.IsNegative() || input.CreditLimit.IsNegative() {
		return errors.New("initial balance and credit limit cannot be negative")
	}
	return validateAccountLink(ctx, tx, input.AccountId, "contact", id)
}

func (input *NewContact) balanceType() BalanceType {
	if input.InitialBalanceType != "" {
		return input.InitialBalanceType
	}
	if input.ContactType == ContactTypeSupplier {
		return BalanceTypeCredit
	}
	return BalanceTypeDebit
}

// OpeningChainBalance is the signed start of the contact's transaction chain:
// a debit opening raises what a customer owes, a credit opening raises what we owe a supplier.
func (c *Contact) OpeningChainBalance() decimal.Decimal {
	natural := BalanceTypeDebit
	if c.ContactType == ContactTypeSupplier {
		natural = BalanceTypeCredit
	}
	if c.InitialBalanceType == "" || c.InitialBalanceType == natural {
		return c.InitialBalance
	}
	return c.InitialBalance.Neg()
}

// OverCreditLimit reports whether a customer's balance exceeds a positive credit limit.
func (c *Contact) OverCreditLimit() bool {
	return c.ContactType == ContactTypeCustomer && c.CreditLimit.IsPositive() && c.CurrentBalance.GreaterThan(c.CreditLimit)
}

func CreateContact(ctx context.Context, tx *gorm.DB, input *NewContact) (*Contact, error) {
	if err := input.validate(ctx, tx, 0); err != nil {
		return nil, err
	}
	contact := Contact{
		Name:               input.Name,
		ContactType:        input.ContactType,
		Phone:              input.Phone,
		Email:              input.Email,
		InitialBalance:     input.InitialBalance,
		InitialBalanceType: input.balanceType(),
		CreditLimit:        input.CreditLimit,
		AccountId:          input.AccountId,
		IsActive:           utils.NewTrue(),
	}
	contact.CurrentBalance = contact.OpeningChainBalance()
	if err := tx.WithContext(ctx).Create(&contact).Error; err != nil {
		return nil, err
	}
	if err := syncLedgerBalance[Contact](ctx, tx, contact.ID, contact.AccountId); err != nil {
		return nil, err
	}
	return utils.FetchModel[Contact](ctx, tx, contact.ID)
}

// UpdateContact keeps the contact type once transactions exist.
func UpdateContact(ctx context.Context, tx *gorm.DB, id int, input *NewContact) (*Contact, error) {
	if err := input.validate(ctx, tx, id); err != nil {
		return nil, err
	}
	contact, err := utils.FetchModelForUpdate[Contact](ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if contact.ContactType != input.ContactType {
		count, err := utils.ResourceCountWhere[ContactTransaction](ctx, tx, "contact_id = ?", id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, errors.New("contact type cannot change after transactions exist")
		}
	}
	if err := guardOpeningBalanceChange(contact.OpeningJournalEntryId, contact.InitialBalance, input.InitialBalance, contact.AccountId, input.AccountId); err != nil {
		return nil, err
	}
	if contact.OpeningJournalEntryId != nil && contact.InitialBalanceType != input.balanceType() {
		return nil, errors.New("unpost the opening balance before changing its type")
	}
	if err := tx.WithContext(ctx).Model(contact).Updates(map[string]interface{}{
		"name":                 input.Name,
		"contact_type":         input.ContactType,
		"phone":                input.Phone,
		"email":                input.Email,
		"initial_balance":      input.InitialBalance,
		"initial_balance_type": input.balanceType(),
		"credit_limit":         input.CreditLimit,
		"account_id":           input.AccountId,
	}).Error; err != nil {
		return nil, err
	}
	if _, err := RecalculateContactBalance(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := syncLedgerBalance[Contact](ctx, tx, id, input.AccountId); err != nil {
		return nil, err
	}
	return utils.FetchModel[Contact](ctx, tx, id)
}
