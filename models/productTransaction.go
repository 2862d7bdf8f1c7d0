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

// ProductTransaction is a stock movement. BaseQuantity is positive except for adjustments,
// which carry their own sign.
type ProductTransaction struct {
	ID              int                    `gorm:"primary_key" json:"id"`
	ProductId       int                    `gorm:"index;not null" json:"product_id"`
	StoreId         int                    `gorm:"index;not null" json:"store_id"`
	ProductUnitId   int                    `gorm:"not null" json:"product_unit_id"`
	TransactionDate time.Time              `gorm:"not null;index" json:"transaction_date"`
	TransactionType ProductTransactionType `gorm:"size:40;not null" json:"transaction_type"`
	Quantity        decimal.Decimal        `gorm:"type:decimal(20,4);not null" json:"quantity"`
	BaseQuantity    decimal.Decimal        `gorm:"type:decimal(20,4);not null" json:"base_quantity"`
	UnitPrice       decimal.Decimal        `gorm:"type:decimal(20,4);not null;default:0" json:"unit_price"`
	BalanceBefore   decimal.Decimal        `gorm:"type:decimal(20,4);not null;default:0" json:"balance_before"`
	BalanceAfter    decimal.Decimal        `gorm:"type:decimal(20,4);not null;default:0" json:"balance_after"`
	ReferenceType   DocumentType           `gorm:"size:40;index:idx_product_txn_reference" json:"reference_type"`
	ReferenceId     int                    `gorm:"index:idx_product_txn_reference" json:"reference_id"`
	Reference       string                 `gorm:"size:100" json:"reference"`
	Notes           string                 `gorm:"type:text" json:"notes"`
	CreatedBy       *int                   `json:"created_by"`
	CreatedAt       time.Time              `gorm:"autoCreateTime" json:"created_at"`
}

func (t *ProductTransaction) GetId() int                        { return t.ID }
func (t *ProductTransaction) GetBalanceBefore() decimal.Decimal { return t.BalanceBefore }
func (t *ProductTransaction) GetBalanceAfter() decimal.Decimal  { return t.BalanceAfter }
func (t *ProductTransaction) SetBalances(before, after decimal.Decimal) {
	t.BalanceBefore, t.BalanceAfter = before, after
}

type NewProductTransaction struct {
	ProductId       int                    `json:"product_id" validate:"required"`
	StoreId         int                    `json:"store_id" validate:"required"`
	ProductUnitId   int                    `json:"product_unit_id" validate:"required"`
	TransactionDate time.Time              `json:"transaction_date" validate:"required"`
	TransactionType ProductTransactionType `json:"transaction_type" validate:"required"`
	// Quantity is in the given unit; for adjustments its sign is the direction.
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ReferenceType DocumentType    `json:"reference_type"`
	ReferenceId   int             `json:"reference_id"`
	Reference     string          `json:"reference" validate:"max=100"`
	Notes         string          `json:"notes"`
}

func CreateProductTransaction(ctx context.Context, tx *gorm.DB, input *NewProductTransaction) (*ProductTransaction, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.TransactionType.IsValid() {
		return nil, fmt.Errorf("unknown product transaction type %q", input.TransactionType)
	}
	if input.Quantity.IsZero() {
		return nil, errors.New("product transaction quantity cannot be zero")
	}
	if input.TransactionType != ProductTransactionAdjustment && input.Quantity.IsNegative() {
		return nil, errors.New("only adjustments carry a signed quantity")
	}
	if err := utils.ValidateResourceId[Store](ctx, tx, input.StoreId); err != nil {
		return nil, fmt.Errorf("store %d: %w", input.StoreId, err)
	}
	unit, err := GetProductUnit(ctx, tx, input.ProductId, input.ProductUnitId)
	if err != nil {
		return nil, err
	}

	row := ProductTransaction{
		ProductId:       input.ProductId,
		StoreId:         input.StoreId,
		ProductUnitId:   input.ProductUnitId,
		TransactionDate: input.TransactionDate.UTC(),
		TransactionType: input.TransactionType,
		Quantity:        input.Quantity,
		BaseQuantity:    unit.BaseQuantity(input.Quantity),
		UnitPrice:       input.UnitPrice,
		ReferenceType:   input.ReferenceType,
		ReferenceId:     input.ReferenceId,
		Reference:       input.Reference,
		Notes:           input.Notes,
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		row.CreatedBy = &userId
	}
	if err := lockChainOwner[Product](ctx, tx, input.ProductId); err != nil {
		return nil, fmt.Errorf("product %d: %w", input.ProductId, err)
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	if _, err := RecalculateProductBalance(ctx, tx, input.ProductId); err != nil {
		return nil, err
	}
	return utils.FetchModel[ProductTransaction](ctx, tx, row.ID)
}

func DeleteProductTransaction(ctx context.Context, tx *gorm.DB, id int) error {
	row, err := utils.FetchModel[ProductTransaction](ctx, tx, id)
	if err != nil {
		return err
	}
	if err := lockChainOwner[Product](ctx, tx, row.ProductId); err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Delete(row).Error; err != nil {
		return err
	}
	_, err = RecalculateProductBalance(ctx, tx, row.ProductId)
	return err
}

func FindProductTransactionsByReference(ctx context.Context, tx *gorm.DB, refType DocumentType, refId int) ([]ProductTransaction, error) {
	var rows []ProductTransaction
	err := tx.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refId).
		Order("id").
		Find(&rows).Error
	return rows, err
}

func DeleteProductTransactionsByReference(ctx context.Context, tx *gorm.DB, refType DocumentType, refId int) (int, error) {
	rows, err := FindProductTransactionsByReference(ctx, tx, refType, refId)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	products := make(map[int]bool)
	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		products[r.ProductId] = true
		ids = append(ids, r.ID)
	}
	for _, id := range sortedKeys(products) {
		if err := lockChainOwner[Product](ctx, tx, id); err != nil {
			return 0, err
		}
	}
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Delete(&ProductTransaction{}).Error; err != nil {
		return 0, err
	}
	for _, id := range sortedKeys(products) {
		if _, err := RecalculateProductBalance(ctx, tx, id); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

// StockInStore is the base quantity of a product currently held by one store.
func StockInStore(ctx context.Context, tx *gorm.DB, productId int, storeId int) (decimal.Decimal, error) {
	var rows []ProductTransaction
	if err := tx.WithContext(ctx).
		Where("product_id = ? AND store_id = ?", productId, storeId).
		Find(&rows).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for i := range rows {
		total = total.Add(productEffect(&rows[i]))
	}
	return total, nil
}
