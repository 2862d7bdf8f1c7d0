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

// Product balances are quantities in the base unit.
type Product struct {
	ID             int             `gorm:"primary_key" json:"id"`
	Code           string          `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name           string          `gorm:"size:200;not null" json:"name"`
	CategoryId     *int            `gorm:"index" json:"category_id"`
	InitialBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"initial_balance"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"current_balance"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	Units          []ProductUnit   `gorm:"foreignKey:ProductId" json:"units"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type ProductUnit struct {
	ID               int             `gorm:"primary_key" json:"id"`
	ProductId        int             `gorm:"index;not null" json:"product_id"`
	Name             string          `gorm:"size:50;not null" json:"name"`
	ConversionFactor decimal.Decimal `gorm:"type:decimal(20,4);not null;default:1" json:"conversion_factor"`
	PurchasePrice    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"purchase_price"`
	SalePrice        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"sale_price"`
	IsBase           bool            `gorm:"not null;default:false" json:"is_base"`
}

type NewProductUnit struct {
	Name             string          `json:"name" validate:"required,max=50"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	SalePrice        decimal.Decimal `json:"sale_price"`
	IsBase           bool            `json:"is_base"`
}

type NewProduct struct {
	Code           string           `json:"code" validate:"required,max=50"`
	Name           string           `json:"name" validate:"required,max=200"`
	CategoryId     *int             `json:"category_id"`
	InitialBalance decimal.Decimal  `json:"initial_balance"`
	Units          []NewProductUnit `json:"units" validate:"required,min=1,dive"`
}

func (input *NewProduct) validate(ctx context.Context, tx *gorm.DB) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Product](ctx, tx, "code", input.Code, 0); err != nil {
		return err
	}
	if err := utils.ValidateOptionalResourceId[ProductCategory](ctx, tx, input.CategoryId, "product category"); err != nil {
		return err
	}
	bases := 0
	for _, u := range input.Units {
		if !u.ConversionFactor.IsPositive() {
			return fmt.Errorf("unit %s: conversion factor must be positive", u.Name)
		}
		if u.PurchasePrice.IsNegative() || u.SalePrice.IsNegative() {
			return fmt.Errorf("unit %s: prices cannot be negative", u.Name)
		}
		if u.IsBase {
			bases++
			if !u.ConversionFactor.Equal(decimal.NewFromInt(1)) {
				return fmt.Errorf("base unit %s must have a conversion factor of 1", u.Name)
			}
		}
	}
	if bases > 1 {
		return errors.New("a product has at most one base unit")
	}
	return nil
}

func CreateProduct(ctx context.Context, tx *gorm.DB, input *NewProduct) (*Product, error) {
	if err := input.validate(ctx, tx); err != nil {
		return nil, err
	}
	product := Product{
		Code:           input.Code,
		Name:           input.Name,
		CategoryId:     input.CategoryId,
		InitialBalance: input.InitialBalance,
		CurrentBalance: input.InitialBalance,
		IsActive:       utils.NewTrue(),
	}
	for _, u := range input.Units {
		product.Units = append(product.Units, ProductUnit{
			Name:             u.Name,
			ConversionFactor: u.ConversionFactor,
			PurchasePrice:    u.PurchasePrice,
			SalePrice:        u.SalePrice,
			IsBase:           u.IsBase,
		})
	}
	if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductUnit loads a unit and checks it belongs to the product.
func GetProductUnit(ctx context.Context, tx *gorm.DB, productId int, unitId int) (*ProductUnit, error) {
	unit, err := utils.FetchModel[ProductUnit](ctx, tx, unitId)
	if err != nil {
		return nil, fmt.Errorf("product unit %d: %w", unitId, err)
	}
	if unit.ProductId != productId {
		return nil, fmt.Errorf("unit %d does not belong to product %d", unitId, productId)
	}
	return unit, nil
}

// BaseQuantity converts a quantity in this unit to the product's base unit.
func (u *ProductUnit) BaseQuantity(quantity decimal.Decimal) decimal.Decimal {
	factor := u.ConversionFactor
	if !factor.IsPositive() {
		factor = decimal.NewFromInt(1)
	}
	return quantity.Mul(factor)
}

// CostOf values a quantity in this unit at its purchase price.
func (u *ProductUnit) CostOf(quantity decimal.Decimal) decimal.Decimal {
	return utils.RoundMoney(quantity.Mul(u.PurchasePrice))
}

// UpdateProductUnitPrice is applied after an invoice posts, when the settings ask for it.
func UpdateProductUnitPrice(ctx context.Context, tx *gorm.DB, unitId int, column string, price decimal.Decimal) error {
	if column != "purchase_price" && column != "sale_price" {
		return fmt.Errorf("unknown price column %s", column)
	}
	return tx.WithContext(ctx).Model(&ProductUnit{}).Where("id = ?", unitId).UpdateColumn(column, price).Error
}

// ProductCogsAccount is the COGS account of the product's category, if any.
func ProductCogsAccount(ctx context.Context, tx *gorm.DB, productId int) (*Account, error) {
	product, err := utils.FetchModel[Product](ctx, tx, productId)
	if err != nil {
		return nil, err
	}
	if product.CategoryId == nil {
		return nil, nil
	}
	category, err := utils.FetchModel[ProductCategory](ctx, tx, *product.CategoryId)
	if err != nil {
		return nil, err
	}
	return ResolveAccount(ctx, tx, category.CogsAccountId)
}
