package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StorePermit issues goods out of a store or receives goods into it without an invoice.
type StorePermit struct {
	ID           int             `gorm:"primary_key" json:"id"`
	PermitNumber string          `gorm:"size:50;uniqueIndex;not null" json:"permit_number"`
	PermitType   PermitType      `gorm:"size:20;not null" json:"permit_type"`
	PermitDate   time.Time       `gorm:"not null;index" json:"permit_date"`
	StoreId      int             `gorm:"index;not null" json:"store_id"`
	TotalValue   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_value"`
	Notes        string          `gorm:"type:text" json:"notes"`
	PostingState
	Items     []StorePermitItem `gorm:"foreignKey:StorePermitId" json:"items"`
	CreatedBy *int              `json:"created_by"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type StorePermitItem struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	StorePermitId        int             `gorm:"index;not null" json:"store_permit_id"`
	ProductId            int             `gorm:"index;not null" json:"product_id"`
	ProductUnitId        int             `gorm:"not null" json:"product_unit_id"`
	Quantity             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	ProductTransactionId *int            `json:"product_transaction_id"`
}

type NewStorePermitItem struct {
	ProductId     int             `json:"product_id" validate:"required"`
	ProductUnitId int             `json:"product_unit_id" validate:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
}

type NewStorePermit struct {
	PermitType PermitType           `json:"permit_type" validate:"required,oneof=issue receive"`
	PermitDate time.Time            `json:"permit_date" validate:"required"`
	StoreId    int                  `json:"store_id" validate:"required"`
	Notes      string               `json:"notes"`
	Items      []NewStorePermitItem `json:"items" validate:"required,min=1,dive"`
	AutoPost   bool                 `json:"auto_post"`
}

func (p *StorePermit) GetId() int                 { return p.ID }
func (p *StorePermit) DocumentType() DocumentType { return DocumentStorePermit }
func (p *StorePermit) DocumentDate() time.Time    { return p.PermitDate }
func (p *StorePermit) ArtifactColumns() []string  { return nil }

// ProductTransactionType is sale for issues and purchase for receipts.
func (p *StorePermit) ProductTransactionType() ProductTransactionType {
	if p.PermitType == PermitTypeIssue {
		return ProductTransactionSale
	}
	return ProductTransactionPurchase
}

func CreateStorePermit(ctx context.Context, tx *gorm.DB, input *NewStorePermit) (*StorePermit, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Store](ctx, tx, input.StoreId); err != nil {
		return nil, fmt.Errorf("store %d: %w", input.StoreId, err)
	}
	permit := StorePermit{
		PermitType: input.PermitType,
		PermitDate: input.PermitDate.UTC(),
		StoreId:    input.StoreId,
		Notes:      input.Notes,
	}
	for i, item := range input.Items {
		if !item.Quantity.IsPositive() {
			return nil, fmt.Errorf("line %d: quantity must be positive", i+1)
		}
		if _, err := GetProductUnit(ctx, tx, item.ProductId, item.ProductUnitId); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		permit.Items = append(permit.Items, StorePermitItem{
			ProductId:     item.ProductId,
			ProductUnitId: item.ProductUnitId,
			Quantity:      item.Quantity,
		})
	}
	if err := CheckPeriodLock(ctx, tx, input.PermitDate); err != nil {
		return nil, err
	}

	var err error
	if permit.PermitNumber, err = nextDocumentNumber[StorePermit](ctx, tx, "SPM"); err != nil {
		return nil, err
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		permit.CreatedBy = &userId
	}
	if err := tx.WithContext(ctx).Create(&permit).Error; err != nil {
		return nil, err
	}
	return &permit, nil
}

func DeleteDraftStorePermit(ctx context.Context, tx *gorm.DB, id int) error {
	permit, err := utils.FetchModelForUpdate[StorePermit](ctx, tx, id)
	if err != nil {
		return err
	}
	if err := guardDraftDocument(ctx, tx, permit); err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Where("store_permit_id = ?", id).Delete(&StorePermitItem{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(permit).Error
}

// ClearStorePermitItemRefs drops the product transaction back-references of all items.
func ClearStorePermitItemRefs(ctx context.Context, tx *gorm.DB, permitId int) error {
	return tx.WithContext(ctx).Model(&StorePermitItem{}).
		Where("store_permit_id = ?", permitId).
		UpdateColumn("product_transaction_id", nil).Error
}
