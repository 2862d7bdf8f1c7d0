package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var daysPerYear = decimal.NewFromInt(365)

type FixedAsset struct {
	ID                   int                `gorm:"primary_key" json:"id"`
	Code                 string             `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name                 string             `gorm:"size:200;not null" json:"name"`
	AcquisitionDate      time.Time          `gorm:"not null" json:"acquisition_date"`
	Cost                 decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"cost"`
	SalvageValue         decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"salvage_value"`
	UsefulLifeYears      int                `gorm:"not null" json:"useful_life_years"`
	CurrentValue         decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"current_value"`
	LastDepreciationDate *time.Time         `json:"last_depreciation_date"`
	DepreciationMethod   DepreciationMethod `gorm:"size:20;not null;default:'straight_line'" json:"depreciation_method"`
	AssetAccountId       *int               `json:"asset_account_id"`
	ExpenseAccountId     *int               `json:"expense_account_id"`
	AccumulatedAccountId *int               `json:"accumulated_account_id"`
	IsActive             *bool              `gorm:"not null;default:true" json:"is_active"`
	CreatedAt            time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// AssetDepreciation is one posted depreciation run of an asset.
type AssetDepreciation struct {
	ID                       int             `gorm:"primary_key" json:"id"`
	FixedAssetId             int             `gorm:"index;not null" json:"fixed_asset_id"`
	DepreciationDate         time.Time       `gorm:"not null" json:"depreciation_date"`
	Amount                   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	ValueBefore              decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"value_before"`
	ValueAfter               decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"value_after"`
	PreviousDepreciationDate *time.Time      `json:"previous_depreciation_date"`
	JournalEntryId           *int            `json:"journal_entry_id"`
	CreatedAt                time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewFixedAsset struct {
	Code                 string          `json:"code" validate:"required,max=50"`
	Name                 string          `json:"name" validate:"required,max=200"`
	AcquisitionDate      time.Time       `json:"acquisition_date" validate:"required"`
	Cost                 decimal.Decimal `json:"cost"`
	SalvageValue         decimal.Decimal `json:"salvage_value"`
	UsefulLifeYears      int             `json:"useful_life_years" validate:"required,gt=0"`
	AssetAccountId       *int            `json:"asset_account_id"`
	ExpenseAccountId     *int            `json:"expense_account_id"`
	AccumulatedAccountId *int            `json:"accumulated_account_id"`
}

// CalculateDepreciation is the straight-line amount due from the last depreciation
// (or the acquisition) up to target, never taking the value below salvage.
func (a *FixedAsset) CalculateDepreciation(target time.Time) decimal.Decimal {
	if a.UsefulLifeYears <= 0 {
		return decimal.Zero
	}
	from := a.AcquisitionDate
	if a.LastDepreciationDate != nil {
		from = *a.LastDepreciationDate
	}
	days := utils.DaysBetween(from, target)
	if days <= 0 {
		return decimal.Zero
	}

	daily := a.Cost.Sub(a.SalvageValue).
		Div(decimal.NewFromInt(int64(a.UsefulLifeYears))).
		Div(daysPerYear)
	amount := utils.RoundMoney(daily.Mul(decimal.NewFromInt(int64(days))))
	if headroom := a.CurrentValue.Sub(a.SalvageValue); amount.GreaterThan(headroom) {
		amount = headroom
	}
	if !amount.IsPositive() {
		return decimal.Zero
	}
	return amount
}

func CreateFixedAsset(ctx context.Context, tx *gorm.DB, input *NewFixedAsset) (*FixedAsset, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[FixedAsset](ctx, tx, "code", input.Code, 0); err != nil {
		return nil, err
	}
	if !input.Cost.IsPositive() {
		return nil, errors.New("cost must be positive")
	}
	if input.SalvageValue.IsNegative() || !input.SalvageValue.LessThan(input.Cost) {
		return nil, errors.New("salvage value must be between zero and cost")
	}
	for _, id := range []*int{input.AssetAccountId, input.ExpenseAccountId, input.AccumulatedAccountId} {
		if err := ValidatePostableAccount(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	asset := FixedAsset{
		Code:                 input.Code,
		Name:                 input.Name,
		AcquisitionDate:      utils.TruncateDate(input.AcquisitionDate),
		Cost:                 input.Cost,
		SalvageValue:         input.SalvageValue,
		UsefulLifeYears:      input.UsefulLifeYears,
		CurrentValue:         input.Cost,
		DepreciationMethod:   DepreciationStraightLine,
		AssetAccountId:       input.AssetAccountId,
		ExpenseAccountId:     input.ExpenseAccountId,
		AccumulatedAccountId: input.AccumulatedAccountId,
		IsActive:             utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// LastAssetDepreciation is the most recent run of an asset, or nil.
func LastAssetDepreciation(ctx context.Context, tx *gorm.DB, assetId int) (*AssetDepreciation, error) {
	var rows []AssetDepreciation
	if err := tx.WithContext(ctx).
		Where("fixed_asset_id = ?", assetId).
		Order("depreciation_date DESC").
		Order("id DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func ActiveFixedAssetIds(ctx context.Context, tx *gorm.DB) ([]int, error) {
	var ids []int
	err := tx.WithContext(ctx).Model(&FixedAsset{}).
		Where("is_active = ?", true).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}
