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

// StockTransfer moves a quantity of one product between two stores.
type StockTransfer struct {
	ID               int             `gorm:"primary_key" json:"id"`
	TransferNumber   string          `gorm:"size:50;uniqueIndex;not null" json:"transfer_number"`
	TransferDate     time.Time       `gorm:"not null;index" json:"transfer_date"`
	FromStoreId      int             `gorm:"index;not null" json:"from_store_id"`
	ToStoreId        int             `gorm:"index;not null" json:"to_store_id"`
	ProductId        int             `gorm:"index;not null" json:"product_id"`
	ProductUnitId    int             `gorm:"not null" json:"product_unit_id"`
	Quantity         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Notes            string          `gorm:"type:text" json:"notes"`
	OutTransactionId *int            `json:"out_transaction_id"`
	InTransactionId  *int            `json:"in_transaction_id"`
	PostingState
	CreatedBy *int      `json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStockTransfer struct {
	TransferDate  time.Time       `json:"transfer_date" validate:"required"`
	FromStoreId   int             `json:"from_store_id" validate:"required"`
	ToStoreId     int             `json:"to_store_id" validate:"required,nefield=FromStoreId"`
	ProductId     int             `json:"product_id" validate:"required"`
	ProductUnitId int             `json:"product_unit_id" validate:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
	Notes         string          `json:"notes"`
	AutoPost      bool            `json:"auto_post"`
}

func (t *StockTransfer) GetId() int                 { return t.ID }
func (t *StockTransfer) DocumentType() DocumentType { return DocumentStockTransfer }
func (t *StockTransfer) DocumentDate() time.Time    { return t.TransferDate }
func (t *StockTransfer) ArtifactColumns() []string {
	return []string{"out_transaction_id", "in_transaction_id"}
}

func CreateStockTransfer(ctx context.Context, tx *gorm.DB, input *NewStockTransfer) (*StockTransfer, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Quantity.IsPositive() {
		return nil, errors.New("quantity must be positive")
	}
	for _, id := range []int{input.FromStoreId, input.ToStoreId} {
		if err := utils.ValidateResourceId[Store](ctx, tx, id); err != nil {
			return nil, fmt.Errorf("store %d: %w", id, err)
		}
	}
	if _, err := GetProductUnit(ctx, tx, input.ProductId, input.ProductUnitId); err != nil {
		return nil, err
	}
	if err := CheckPeriodLock(ctx, tx, input.TransferDate); err != nil {
		return nil, err
	}

	transfer := StockTransfer{
		TransferDate:  input.TransferDate.UTC(),
		FromStoreId:   input.FromStoreId,
		ToStoreId:     input.ToStoreId,
		ProductId:     input.ProductId,
		ProductUnitId: input.ProductUnitId,
		Quantity:      input.Quantity,
		Notes:         input.Notes,
	}
	var err error
	if transfer.TransferNumber, err = nextDocumentNumber[StockTransfer](ctx, tx, "STR"); err != nil {
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

func DeleteDraftStockTransfer(ctx context.Context, tx *gorm.DB, id int) error {
	transfer, err := utils.FetchModelForUpdate[StockTransfer](ctx, tx, id)
	if err != nil {
		return err
	}
	if err := guardDraftDocument(ctx, tx, transfer); err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(transfer).Error
}
