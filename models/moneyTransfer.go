package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MoneyTransfer moves cash between two safes/banks.
type MoneyTransfer struct {
	ID               int             `gorm:"primary_key" json:"id"`
	TransferNumber   string          `gorm:"size:50;uniqueIndex;not null" json:"transfer_number"`
	TransferDate     time.Time       `gorm:"not null;index" json:"transfer_date"`
	FromSafeId       *int            `json:"from_safe_id"`
	FromBankId       *int            `json:"from_bank_id"`
	ToSafeId         *int            `json:"to_safe_id"`
	ToBankId         *int            `json:"to_bank_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Notes            string          `gorm:"type:text" json:"notes"`
	OutTransactionId *int            `json:"out_transaction_id"`
	InTransactionId  *int            `json:"in_transaction_id"`
	PostingState
	CreatedBy *int      `json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMoneyTransfer struct {
	TransferDate time.Time       `json:"transfer_date" validate:"required"`
	FromSafeId   *int            `json:"from_safe_id"`
	FromBankId   *int            `json:"from_bank_id"`
	ToSafeId     *int            `json:"to_safe_id"`
	ToBankId     *int            `json:"to_bank_id"`
	Amount       decimal.Decimal `json:"amount"`
	Notes        string          `json:"notes"`
	AutoPost     bool            `json:"auto_post"`
}

var ErrSameTransferEnds = errors.New("transfer source and destination must differ")

func (t *MoneyTransfer) GetId() int                 { return t.ID }
func (t *MoneyTransfer) DocumentType() DocumentType { return DocumentMoneyTransfer }
func (t *MoneyTransfer) DocumentDate() time.Time    { return t.TransferDate }
func (t *MoneyTransfer) ArtifactColumns() []string {
	return []string{"out_transaction_id", "in_transaction_id"}
}

// Ends resolves the source and destination cash owners.
func (t *MoneyTransfer) Ends(ctx context.Context, tx *gorm.DB) (from *CashOwner, to *CashOwner, err error) {
	if from, err = LoadCashOwner(ctx, tx, t.FromSafeId, t.FromBankId); err != nil {
		return nil, nil, err
	}
	if to, err = LoadCashOwner(ctx, tx, t.ToSafeId, t.ToBankId); err != nil {
		return nil, nil, err
	}
	if from.Same(to) {
		return nil, nil, ErrSameTransferEnds
	}
	return from, to, nil
}

func CreateMoneyTransfer(ctx context.Context, tx *gorm.DB, input *NewMoneyTransfer) (*MoneyTransfer, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}
	transfer := MoneyTransfer{
		TransferDate: input.TransferDate.UTC(),
		FromSafeId:   input.FromSafeId,
		FromBankId:   input.FromBankId,
		ToSafeId:     input.ToSafeId,
		ToBankId:     input.ToBankId,
		Amount:       input.Amount,
		Notes:        input.Notes,
	}
	if _, _, err := transfer.Ends(ctx, tx); err != nil {
		return nil, err
	}
	if err := CheckPeriodLock(ctx, tx, input.TransferDate); err != nil {
		return nil, err
	}
	var err error
	if transfer.TransferNumber, err = nextDocumentNumber[MoneyTransfer](ctx, tx, "MTR"); err != nil {
		return nil, err
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		transfer.CreatedBy = &userId
	}
	if err := tx.WithContext(ctx).Create(&transfer).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

func DeleteDraftMoneyTransfer(ctx context.Context, tx *gorm.DB, id int) error {
	transfer, err := utils.FetchModelForUpdate[MoneyTransfer](ctx, tx, id)
	if err != nil {
		return err
	}
	if err := guardDraftDocument(ctx, tx, transfer); err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(transfer).Error
}
