package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

type CostCenter struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Code      string    `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewCostCenter struct {
	Code string `json:"code" validate:"required,max=50"`
	Name string `json:"name" validate:"required,max=200"`
}

func CreateCostCenter(ctx context.Context, tx *gorm.DB, input *NewCostCenter) (*CostCenter, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[CostCenter](ctx, tx, "code", input.Code, 0); err != nil {
		return nil, err
	}
	center := CostCenter{Code: input.Code, Name: input.Name, IsActive: utils.NewTrue()}
	if err := tx.WithContext(ctx).Create(&center).Error; err != nil {
		return nil, err
	}
	return &center, nil
}
