package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashMovement is a plain deposit into or withdrawal from a safe or bank.
type CashMovement struct {
	ID                int              `gorm:"primary_key" json:"id"`
	MovementNumber    string           `gorm:"size:50;uniqueIndex;not null" json:"movement_number"`
	MovementType      CashMovementType `gorm:"size:20;not null" json:"movement_type"`
	MovementDate      time.Time        `gorm:"not null;index" json:"movement_date"`
	SafeId            *int             `gorm:"index" json:"safe_id"`
	BankId            *int             `gorm:"index" json:"bank_id"`
	Amount            decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"amount"`
	CounterAccountId  *int             `json:"counter_account_id"`
	Notes             string           `gorm:"type:text" json:"notes"`
	SafeTransactionId *int             `json:"safe_transaction_id"`
	PostingState
	CreatedBy *int      `json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCashMovement struct {
	MovementType     CashMovementType `json:"movement_type" validate:"required,oneof=deposit withdrawal"`
	MovementDate     time.Time        `json:"movement_date" validate:"required"`
	SafeId           *int             `json:"safe_id"`
	BankId           *int             `json:"bank_id"`
	Amount           decimal.Decimal  `json:"amount"`
	CounterAccountId *int             `json:"counter_account_id"`
	Notes            string           `json:"notes"`
	AutoPost         bool             `json:"auto_post"`
}

func (m *CashMovement) GetId() int                 { return m.ID }
func (m *CashMovement) DocumentType() DocumentType { return DocumentCashMovement }
func (m *CashMovement) DocumentDate() time.Time    { return m.MovementDate }
func (m *CashMovement) ArtifactColumns() []string  { return []string{"safe_transaction_id"} }

func (m *CashMovement) SafeTransactionType() SafeTransactionType {
	if m.MovementType == CashMovementDeposit {
		return SafeTransactionDeposit
	}
	return SafeTransactionWithdrawal
}

func CreateCashMovement(ctx context.Context, tx *gorm.DB, input *NewCashMovement) (*CashMovement, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}
	if _, err := LoadCashOwner(ctx, tx, input.SafeId, input.BankId); err != nil {
		return nil, err
	}
	if err := ValidatePostableAccount(ctx, tx, input.CounterAccountId); err != nil {
		return nil, err
	}
	if err := CheckPeriodLock(ctx, tx, input.MovementDate); err != nil {
		return nil, err
	}

	movement := CashMovement{
		MovementType:     input.MovementType,
		MovementDate:     input.MovementDate.UTC(),
		SafeId:           input.SafeId,
		BankId:           input.BankId,
		Amount:           input.Amount,
		CounterAccountId: input.CounterAccountId,
		Notes:            input.Notes,
	}
	var err error
	if movement.MovementNumber, err = nextDocumentNumber[CashMovement](ctx, tx, "CSH"); err != nil {
		return nil, err
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		movement.CreatedBy = &userId
	}
	if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
		return nil, err
	}
	return &movement, nil
}

func DeleteDraftCashMovement(ctx context.Context, tx *gorm.DB, id int) error {
	movement, err := utils.FetchModelForUpdate[CashMovement](ctx, tx, id)
	if err != nil {
		return err
	}
	if err := guardDraftDocument(ctx, tx, movement); err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(movement).Error
}
