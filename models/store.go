package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

// Store is a warehouse; its account carries the inventory value.
type Store struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	AccountId *int      `gorm:"uniqueIndex" json:"account_id"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStore struct {
	Name      string `json:"name" validate:"required,max=100"`
	AccountId *int   `json:"account_id"`
}

func CreateStore(ctx context.Context, tx *gorm.DB, input *NewStore) (*Store, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Store](ctx, tx, "name", input.Name, 0); err != nil {
		return nil, err
	}
	if err := validateAccountLink(ctx, tx, input.AccountId, "store", 0); err != nil {
		return nil, err
	}
	store := Store{Name: input.Name, AccountId: input.AccountId, IsActive: utils.NewTrue()}
	if err := tx.WithContext(ctx).Create(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}
