package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const systemSettingsId = 1

var settingsCacheKey = utils.CacheKey("settings")

// SystemSettings is a single row (id 1) created on first read.
type SystemSettings struct {
	ID                      int             `gorm:"primary_key" json:"id"`
	SalesAccountId          *int            `json:"sales_account_id"`
	PurchasesAccountId      *int            `json:"purchases_account_id"`
	VatOutputAccountId      *int            `json:"vat_output_account_id"`
	VatInputAccountId       *int            `json:"vat_input_account_id"`
	CogsAccountId           *int            `json:"cogs_account_id"`
	DefaultExpenseAccountId *int            `json:"default_expense_account_id"`
	DefaultIncomeAccountId  *int            `json:"default_income_account_id"`
	OpeningBalanceAccountId *int            `json:"opening_balance_account_id"`
	VatPercentage           decimal.Decimal `gorm:"type:decimal(7,4);not null;default:5" json:"vat_percentage"`
	UpdatePurchasePrice     *bool           `gorm:"not null;default:false" json:"update_purchase_price"`
	UpdateSalePrice         *bool           `gorm:"not null;default:false" json:"update_sale_price"`
	LockDate                *time.Time      `json:"lock_date"`
	UpdatedAt               time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSystemSettings struct {
	SalesAccountId          *int             `json:"sales_account_id"`
	PurchasesAccountId      *int             `json:"purchases_account_id"`
	VatOutputAccountId      *int             `json:"vat_output_account_id"`
	VatInputAccountId       *int             `json:"vat_input_account_id"`
	CogsAccountId           *int             `json:"cogs_account_id"`
	DefaultExpenseAccountId *int             `json:"default_expense_account_id"`
	DefaultIncomeAccountId  *int             `json:"default_income_account_id"`
	OpeningBalanceAccountId *int             `json:"opening_balance_account_id"`
	VatPercentage           *decimal.Decimal `json:"vat_percentage"`
	UpdatePurchasePrice     *bool            `json:"update_purchase_price"`
	UpdateSalePrice         *bool            `json:"update_sale_price"`
	LockDate                *time.Time       `json:"lock_date"`
	ClearLockDate           bool             `json:"clear_lock_date"`
}

func GetSystemSettings(ctx context.Context, tx *gorm.DB) (*SystemSettings, error) {
	if cached, ok, err := utils.RetrieveRedis[SystemSettings](ctx, settingsCacheKey); err == nil && ok {
		return cached, nil
	}
	var settings SystemSettings
	err := tx.WithContext(ctx).
		Where(SystemSettings{ID: systemSettingsId}).
		Attrs(SystemSettings{
			VatPercentage:       decimal.NewFromInt(5),
			UpdatePurchasePrice: utils.NewFalse(),
			UpdateSalePrice:     utils.NewFalse(),
		}).
		FirstOrCreate(&settings).Error
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis(ctx, settingsCacheKey, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func UpdateSystemSettings(ctx context.Context, tx *gorm.DB, input *NewSystemSettings) (*SystemSettings, error) {
	settings, err := GetSystemSettings(ctx, tx)
	if err != nil {
		return nil, err
	}

	links := []struct {
		name string
		id   *int
		dest **int
	}{
		{"sales", input.SalesAccountId, &settings.SalesAccountId},
		{"purchases", input.PurchasesAccountId, &settings.PurchasesAccountId},
		{"vat output", input.VatOutputAccountId, &settings.VatOutputAccountId},
		{"vat input", input.VatInputAccountId, &settings.VatInputAccountId},
		{"cogs", input.CogsAccountId, &settings.CogsAccountId},
		{"default expense", input.DefaultExpenseAccountId, &settings.DefaultExpenseAccountId},
		{"default income", input.DefaultIncomeAccountId, &settings.DefaultIncomeAccountId},
		{"opening balance", input.OpeningBalanceAccountId, &settings.OpeningBalanceAccountId},
	}
	for _, link := range links {
		if link.id == nil {
			continue
		}
		if err := ValidatePostableAccount(ctx, tx, link.id); err != nil {
			return nil, fmt.Errorf("%s account: %w", link.name, err)
		}
		*link.dest = link.id
	}
	if input.VatPercentage != nil {
		if input.VatPercentage.IsNegative() {
			return nil, fmt.Errorf("vat percentage cannot be negative")
		}
		settings.VatPercentage = *input.VatPercentage
	}
	if input.UpdatePurchasePrice != nil {
		settings.UpdatePurchasePrice = input.UpdatePurchasePrice
	}
	if input.UpdateSalePrice != nil {
		settings.UpdateSalePrice = input.UpdateSalePrice
	}
	if input.ClearLockDate {
		settings.LockDate = nil
	} else if input.LockDate != nil {
		lockDate := utils.TruncateDate(*input.LockDate)
		settings.LockDate = &lockDate
	}

	if err := tx.WithContext(ctx).Save(settings).Error; err != nil {
		return nil, err
	}
	if err := InvalidateSettingsCache(ctx); err != nil {
		return nil, err
	}
	return settings, nil
}

// InvalidateSettingsCache must run again once the updating transaction commits;
// a reader may re-cache the old row in between.
func InvalidateSettingsCache(ctx context.Context) error {
	return utils.RemoveRedis(ctx, settingsCacheKey)
}

// storedLockDate reads the lock date from the database, never from the cache.
func storedLockDate(ctx context.Context, tx *gorm.DB) (*time.Time, error) {
	var rows []SystemSettings
	err := tx.WithContext(ctx).
		Model(&SystemSettings{}).
		Select("id", "lock_date").
		Where("id = ?", systemSettingsId).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0].LockDate, nil
}

// AccountDefaults is the resolved, read-only view of the settings handed to posters.
type AccountDefaults struct {
	Sales               *Account
	Purchases           *Account
	VatOutput           *Account
	VatInput            *Account
	Cogs                *Account
	DefaultExpense      *Account
	DefaultIncome       *Account
	OpeningBalance      *Account
	VatPercentage       decimal.Decimal
	UpdatePurchasePrice bool
	UpdateSalePrice     bool
}

func LoadAccountDefaults(ctx context.Context, tx *gorm.DB) (*AccountDefaults, error) {
	settings, err := GetSystemSettings(ctx, tx)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, 8)
	for _, id := range []*int{
		settings.SalesAccountId, settings.PurchasesAccountId, settings.VatOutputAccountId, settings.VatInputAccountId,
		settings.CogsAccountId, settings.DefaultExpenseAccountId, settings.DefaultIncomeAccountId, settings.OpeningBalanceAccountId,
	} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	byId := make(map[int]*Account, len(ids))
	if len(ids) > 0 {
		var accounts []*Account
		if err := tx.WithContext(ctx).Where("id IN ?", utils.UniqueSlice(ids)).Find(&accounts).Error; err != nil {
			return nil, err
		}
		for _, a := range accounts {
			byId[a.ID] = a
		}
	}
	pick := func(id *int) *Account {
		if id == nil {
			return nil
		}
		return byId[*id]
	}

	return &AccountDefaults{
		Sales:               pick(settings.SalesAccountId),
		Purchases:           pick(settings.PurchasesAccountId),
		VatOutput:           pick(settings.VatOutputAccountId),
		VatInput:            pick(settings.VatInputAccountId),
		Cogs:                pick(settings.CogsAccountId),
		DefaultExpense:      pick(settings.DefaultExpenseAccountId),
		DefaultIncome:       pick(settings.DefaultIncomeAccountId),
		OpeningBalance:      pick(settings.OpeningBalanceAccountId),
		VatPercentage:       settings.VatPercentage,
		UpdatePurchasePrice: utils.DereferencePtr(settings.UpdatePurchasePrice),
		UpdateSalePrice:     utils.DereferencePtr(settings.UpdateSalePrice),
	}, nil
}

// FirstAccount returns the first non-nil candidate, following category -> settings fallback order.
func FirstAccount(candidates ...*Account) *Account {
	for _, a := range candidates {
		if a != nil {
			return a
		}
	}
	return nil
}
