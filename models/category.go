package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

type ExpenseCategory struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	ParentId  *int      `gorm:"index" json:"parent_id"`
	AccountId *int      `gorm:"index" json:"account_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type IncomeCategory struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	ParentId  *int      `gorm:"index" json:"parent_id"`
	AccountId *int      `gorm:"index" json:"account_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type ProductCategory struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	CogsAccountId *int      `json:"cogs_account_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewCategory struct {
	Name      string `json:"name" validate:"required,max=100"`
	ParentId  *int   `json:"parent_id"`
	AccountId *int   `json:"account_id"`
}

func CreateExpenseCategory(ctx context.Context, tx *gorm.DB, input *NewCategory) (*ExpenseCategory, error) {
	if err := input.validate(ctx, tx); err != nil {
		return nil, err
	}
	category := ExpenseCategory{Name: input.Name, ParentId: input.ParentId, AccountId: input.AccountId}
	if err := tx.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func CreateIncomeCategory(ctx context.Context, tx *gorm.DB, input *NewCategory) (*IncomeCategory, error) {
	if err := input.validate(ctx, tx); err != nil {
		return nil, err
	}
	category := IncomeCategory{Name: input.Name, ParentId: input.ParentId, AccountId: input.AccountId}
	if err := tx.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// AccountId on a product category is its COGS account.
func CreateProductCategory(ctx context.Context, tx *gorm.DB, input *NewCategory) (*ProductCategory, error) {
	if err := input.validate(ctx, tx); err != nil {
		return nil, err
	}
	category := ProductCategory{Name: input.Name, CogsAccountId: input.AccountId}
	if err := tx.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (input *NewCategory) validate(ctx context.Context, tx *gorm.DB) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	return ValidatePostableAccount(ctx, tx, input.AccountId)
}

// categoryAccount loads the account linked to an expense or income category (nil when absent).
func categoryAccount[T ExpenseCategory | IncomeCategory](ctx context.Context, tx *gorm.DB, categoryId *int) (*Account, error) {
	if categoryId == nil {
		return nil, nil
	}
	category, err := utils.FetchModel[T](ctx, tx, *categoryId)
	if err != nil {
		return nil, err
	}
	switch c := any(category).(type) {
	case *ExpenseCategory:
		return ResolveAccount(ctx, tx, c.AccountId)
	case *IncomeCategory:
		return ResolveAccount(ctx, tx, c.AccountId)
	}
	return nil, nil
}

func ExpenseCategoryAccount(ctx context.Context, tx *gorm.DB, categoryId *int) (*Account, error) {
	return categoryAccount[ExpenseCategory](ctx, tx, categoryId)
}

func IncomeCategoryAccount(ctx context.Context, tx *gorm.DB, categoryId *int) (*Account, error) {
	return categoryAccount[IncomeCategory](ctx, tx, categoryId)
}
