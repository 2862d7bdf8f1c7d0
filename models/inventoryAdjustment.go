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

// InventoryAdjustment corrects the stock of one product in one store.
type InventoryAdjustment struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	AdjustmentNumber     string          `gorm:"size:50;uniqueIndex;not null" json:"adjustment_number"`
	AdjustmentDate       time.Time       `gorm:"not null;index" json:"adjustment_date"`
	AdjustmentType       AdjustmentType  `gorm:"size:20;not null" json:"adjustment_type"`
	StoreId              int             `gorm:"index;not null" json:"store_id"`
	ProductId            int             `gorm:"index;not null" json:"product_id"`
	ProductUnitId        int             `gorm:"not null" json:"product_unit_id"`
	Quantity             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Reason               string          `gorm:"type:text" json:"reason"`
	ProductTransactionId *int            `json:"product_transaction_id"`
	PostingState
	CreatedBy *int      `json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInventoryAdjustment struct {
	AdjustmentDate time.Time       `json:"adjustment_date" validate:"required"`
	AdjustmentType AdjustmentType  `json:"adjustment_type" validate:"required,oneof=increase decrease"`
	StoreId        int             `json:"store_id" validate:"required"`
	ProductId      int             `json:"product_id" validate:"required"`
	ProductUnitId  int             `json:"product_unit_id" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
	Reason         string          `json:"reason"`
	AutoPost       bool            `json:"auto_post"`
}

func (a *InventoryAdjustment) GetId() int                 { return a.ID }
func (a *InventoryAdjustment) DocumentType() DocumentType { return DocumentInventoryAdjustment }
func (a *InventoryAdjustment) DocumentDate() time.Time    { return a.AdjustmentDate }
func (a *InventoryAdjustment) ArtifactColumns() []string  { return []string{"product_transaction_id"} }

// SignedQuantity is the quantity with the adjustment direction applied.
func (a *InventoryAdjustment) SignedQuantity() decimal.Decimal {
	if a.AdjustmentType == AdjustmentTypeDecrease {
		return a.Quantity.Neg()
	}
	return a.Quantity
}

func CreateInventoryAdjustment(ctx context.Context, tx *gorm.DB, input *NewInventoryAdjustment) (*InventoryAdjustment, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Quantity.IsPositive() {
		return nil, errors.New("quantity must be positive")
	}
	if err := utils.ValidateResourceId[Store](ctx, tx, input.StoreId); err != nil {
		return nil, fmt.Errorf("store %d: %w", input.StoreId, err)
	}
	if _, err := GetProductUnit(ctx, tx, input.ProductId, input.ProductUnitId); err != nil {
		return nil, err
	}
	if err := CheckPeriodLock(ctx, tx, input.AdjustmentDate); err != nil {
		return nil, err
	}

	adjustment := InventoryAdjustment{
		AdjustmentDate: input.AdjustmentDate.UTC(),
		AdjustmentType: input.AdjustmentType,
		StoreId:        input.StoreId,
		ProductId:      input.ProductId,
		ProductUnitId:  input.ProductUnitId,
		Quantity:       input.Quantity,
		Reason:         input.Reason,
	}
	var err error
	if adjustment.AdjustmentNumber, err = nextDocumentNumber[InventoryAdjustment](ctx, tx, "ADJ"); err != nil {
		return nil, err
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		adjustment.CreatedBy = &userId
	}
	if err := tx.WithContext(ctx).Create(&adjustment).Error; err != nil {
		return nil, err
	}
	return &adjustment, nil
}

func DeleteDraftInventoryAdjustment(ctx context.Context, tx *gorm.DB, id int) error {
	adjustment, err := utils.FetchModelForUpdate[InventoryAdjustment](ctx, tx, id)
	if err != nil {
		return err
	}
	if err := guardDraftDocument(ctx, tx, adjustment); err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(adjustment).Error
}
