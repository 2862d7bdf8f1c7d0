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

// ContactTransaction is a row of a customer's or supplier's ledger. Amount is always positive.
type ContactTransaction struct {
	ID              int                    `gorm:"primary_key" json:"id"`
	ContactId       int                    `gorm:"index;not null" json:"contact_id"`
	TransactionDate time.Time              `gorm:"not null;index" json:"transaction_date"`
	TransactionType ContactTransactionType `gorm:"size:40;not null" json:"transaction_type"`
	Amount          decimal.Decimal        `gorm:"type:decimal(20,4);not null" json:"amount"`
	BalanceBefore   decimal.Decimal        `gorm:"type:decimal(20,4);not null;default:0" json:"balance_before"`
	BalanceAfter    decimal.Decimal        `gorm:"type:decimal(20,4);not null;default:0" json:"balance_after"`
	ReferenceType   DocumentType           `gorm:"size:40;index:idx_contact_txn_reference" json:"reference_type"`
	ReferenceId     int                    `gorm:"index:idx_contact_txn_reference" json:"reference_id"`
	Reference       string                 `gorm:"size:100" json:"reference"`
	Notes           string                 `gorm:"type:text" json:"notes"`
	CreatedBy       *int                   `json:"created_by"`
	CreatedAt       time.Time              `gorm:"autoCreateTime" json:"created_at"`
}

func (t *ContactTransaction) GetId() int                        { return t.ID }
func (t *ContactTransaction) GetBalanceBefore() decimal.Decimal { return t.BalanceBefore }
func (t *ContactTransaction) GetBalanceAfter() decimal.Decimal  { return t.BalanceAfter }
func (t *ContactTransaction) SetBalances(before, after decimal.Decimal) {
	t.BalanceBefore, t.BalanceAfter = before, after
}

type NewContactTransaction struct {
	ContactId       int                    `json:"contact_id" validate:"required"`
	TransactionDate time.Time              `json:"transaction_date" validate:"required"`
	TransactionType ContactTransactionType `json:"transaction_type" validate:"required"`
	Amount          decimal.Decimal        `json:"amount"`
	ReferenceType   DocumentType           `json:"reference_type"`
	ReferenceId     int                    `json:"reference_id"`
	Reference       string                 `json:"reference" validate:"max=100"`
	Notes           string                 `json:"notes"`
}

func CreateContactTransaction(ctx context.Context, tx *gorm.DB, input *NewContactTransaction) (*ContactTransaction, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.TransactionType.IsValid() {
		return nil, fmt.Errorf("unknown contact transaction type %q", input.TransactionType)
	}
	if !input.Amount.IsPositive() {
		return nil, errors.New("contact transaction amount must be positive")
	}
	if err := lockChainOwner[Contact](ctx, tx, input.ContactId); err != nil {
		return nil, fmt.Errorf("contact %d: %w", input.ContactId, err)
	}

	row := ContactTransaction{
		ContactId:       input.ContactId,
		TransactionDate: input.TransactionDate.UTC(),
		TransactionType: input.TransactionType,
		Amount:          input.Amount,
		ReferenceType:   input.ReferenceType,
		ReferenceId:     input.ReferenceId,
		Reference:       input.Reference,
		Notes:           input.Notes,
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		row.CreatedBy = &userId
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	if _, err := RecalculateContactBalance(ctx, tx, input.ContactId); err != nil {
		return nil, err
	}
	return utils.FetchModel[ContactTransaction](ctx, tx, row.ID)
}

func DeleteContactTransaction(ctx context.Context, tx *gorm.DB, id int) error {
	row, err := utils.FetchModel[ContactTransaction](ctx, tx, id)
	if err != nil {
		return err
	}
	if err := lockChainOwner[Contact](ctx, tx, row.ContactId); err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Delete(row).Error; err != nil {
		return err
	}
	_, err = RecalculateContactBalance(ctx, tx, row.ContactId)
	return err
}

func FindContactTransactionsByReference(ctx context.Context, tx *gorm.DB, refType DocumentType, refId int) ([]ContactTransaction, error) {
	var rows []ContactTransaction
	err := tx.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refId).
		Order("id").
		Find(&rows).Error
	return rows, err
}

func DeleteContactTransactionsByReference(ctx context.Context, tx *gorm.DB, refType DocumentType, refId int) (int, error) {
	rows, err := FindContactTransactionsByReference(ctx, tx, refType, refId)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	contacts := make(map[int]bool)
	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		contacts[r.ContactId] = true
		ids = append(ids, r.ID)
	}
	for _, id := range sortedKeys(contacts) {
		if err := lockChainOwner[Contact](ctx, tx, id); err != nil {
			return 0, err
		}
	}
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Delete(&ContactTransaction{}).Error; err != nil {
		return 0, err
	}
	for _, id := range sortedKeys(contacts) {
		if _, err := RecalculateContactBalance(ctx, tx, id); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}
