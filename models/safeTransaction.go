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

// SafeTransaction is a row of a safe's or a bank's cash ledger. Amount is always positive.
type SafeTransaction struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	SafeId          *int                `gorm:"index" json:"safe_id"`
	BankId          *int                `gorm:"index" json:"bank_id"`
	TransactionDate time.Time           `gorm:"not null;index" json:"transaction_date"`
	TransactionType SafeTransactionType `gorm:"size:40;not null" json:"transaction_type"`
	Amount          decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"amount"`
	BalanceBefore   decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"balance_before"`
	BalanceAfter    decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"balance_after"`
	ReferenceType   DocumentType        `gorm:"size:40;index:idx_safe_txn_reference" json:"reference_type"`
	ReferenceId     int                 `gorm:"index:idx_safe_txn_reference" json:"reference_id"`
	Reference       string              `gorm:"size:100" json:"reference"`
	Notes           string              `gorm:"type:text" json:"notes"`
	CreatedBy       *int                `json:"created_by"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

func (t *SafeTransaction) GetId() int                        { return t.ID }
func (t *SafeTransaction) GetBalanceBefore() decimal.Decimal { return t.BalanceBefore }
func (t *SafeTransaction) GetBalanceAfter() decimal.Decimal  { return t.BalanceAfter }
func (t *SafeTransaction) SetBalances(before, after decimal.Decimal) {
	t.BalanceBefore, t.BalanceAfter = before, after
}

type NewSafeTransaction struct {
	Owner           *CashOwner          `json:"-" validate:"required"`
	TransactionDate time.Time           `json:"transaction_date" validate:"required"`
	TransactionType SafeTransactionType `json:"transaction_type" validate:"required"`
	Amount          decimal.Decimal     `json:"amount"`
	ReferenceType   DocumentType        `json:"reference_type"`
	ReferenceId     int                 `json:"reference_id"`
	Reference       string              `json:"reference" validate:"max=100"`
	Notes           string              `json:"notes"`
}

// CreateSafeTransaction appends a row and recomputes the owner's chain.
func CreateSafeTransaction(ctx context.Context, tx *gorm.DB, input *NewSafeTransaction) (*SafeTransaction, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.TransactionType.IsValid() {
		return nil, fmt.Errorf("unknown safe transaction type %q", input.TransactionType)
	}
	if !input.Amount.IsPositive() {
		return nil, errors.New("safe transaction amount must be positive")
	}

	safeId, bankId := input.Owner.Ref()
	row := SafeTransaction{
		SafeId:          safeId,
		BankId:          bankId,
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
	if err := input.Owner.Lock(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	if err := input.Owner.Recalculate(ctx, tx); err != nil {
		return nil, err
	}
	return utils.FetchModel[SafeTransaction](ctx, tx, row.ID)
}

func (t *SafeTransaction) owner() *CashOwner {
	if t.SafeId != nil {
		return &CashOwner{Kind: CashOwnerSafe, Id: *t.SafeId}
	}
	return &CashOwner{Kind: CashOwnerBank, Id: utils.DereferencePtr(t.BankId)}
}

func DeleteSafeTransaction(ctx context.Context, tx *gorm.DB, id int) error {
	row, err := utils.FetchModel[SafeTransaction](ctx, tx, id)
	if err != nil {
		return err
	}
	if err := row.owner().Lock(ctx, tx); err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Delete(row).Error; err != nil {
		return err
	}
	return row.owner().Recalculate(ctx, tx)
}

func FindSafeTransactionsByReference(ctx context.Context, tx *gorm.DB, refType DocumentType, refId int) ([]SafeTransaction, error) {
	var rows []SafeTransaction
	err := tx.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refId).
		Order("id").
		Find(&rows).Error
	return rows, err
}

// DeleteSafeTransactionsByReference removes a document's rows and recomputes each affected owner once.
func DeleteSafeTransactionsByReference(ctx context.Context, tx *gorm.DB, refType DocumentType, refId int) (int, error) {
	rows, err := FindSafeTransactionsByReference(ctx, tx, refType, refId)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	owners := make(map[CashOwnerKind]map[int]bool)
	ids := make([]int, 0, len(rows))
	for i := range rows {
		o := rows[i].owner()
		if owners[o.Kind] == nil {
			owners[o.Kind] = make(map[int]bool)
		}
		owners[o.Kind][o.Id] = true
		ids = append(ids, rows[i].ID)
	}
	for _, kind := range []CashOwnerKind{CashOwnerSafe, CashOwnerBank} {
		for _, id := range sortedKeys(owners[kind]) {
			if err := (&CashOwner{Kind: kind, Id: id}).Lock(ctx, tx); err != nil {
				return 0, err
			}
		}
	}
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Delete(&SafeTransaction{}).Error; err != nil {
		return 0, err
	}
	for _, kind := range []CashOwnerKind{CashOwnerSafe, CashOwnerBank} {
		for _, id := range sortedKeys(owners[kind]) {
			if err := (&CashOwner{Kind: kind, Id: id}).Recalculate(ctx, tx); err != nil {
				return 0, err
			}
		}
	}
	return len(rows), nil
}
