package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

type defaultAccount struct {
	Code        string
	Name        string
	AccountType models.AccountType
	ParentCode  string
	Selectable  bool
}

func defaultChartOfAccounts() []defaultAccount {
	return []defaultAccount{
		{"1", "Assets", models.AccountTypeAsset, "", false},
		{"11", "Current Assets", models.AccountTypeAsset, "1", false},
		{"111", "Cash on Hand", models.AccountTypeAsset, "11", false},
		{"112", "Banks", models.AccountTypeAsset, "11", false},
		{"113", "Inventory", models.AccountTypeAsset, "11", false},
		{"114", "VAT Input", models.AccountTypeAsset, "11", true},
		{"12", "Customers", models.AccountTypeAsset, "1", false},
		{"2", "Liabilities", models.AccountTypeLiability, "", false},
		{"21", "Current Liabilities", models.AccountTypeLiability, "2", false},
		{"211", "Suppliers", models.AccountTypeLiability, "21", false},
		{"212", "VAT Output", models.AccountTypeLiability, "21", true},
		{"3", "Equity", models.AccountTypeEquity, "", false},
		{"31", "Capital", models.AccountTypeEquity, "3", true},
		{"4", "Income", models.AccountTypeIncome, "", false},
		{"41", "Sales", models.AccountTypeIncome, "4", true},
		{"42", "Other Income", models.AccountTypeIncome, "4", true},
		{"5", "Expenses", models.AccountTypeExpense, "", false},
		{"51", "Cost of Goods Sold", models.AccountTypeExpense, "5", true},
		{"52", "Administrative Expenses", models.AccountTypeExpense, "5", true},
		{"53", "Purchases", models.AccountTypeExpense, "5", true},
	}
}

// settings links filled by SetupChartOfAccounts when still empty
var defaultSettingsCodes = map[string]string{
	"sales":           "41",
	"purchases":       "53",
	"vat_output":      "212",
	"vat_input":       "114",
	"cogs":            "51",
	"default_expense": "52",
	"default_income":  "42",
	"opening_balance": "31",
}

// LinkedAccountKind names the parent under which a safe, bank, store or contact gets its own account.
type LinkedAccountKind string

const (
	LinkedAccountSafe     LinkedAccountKind = "111"
	LinkedAccountBank     LinkedAccountKind = "112"
	LinkedAccountStore    LinkedAccountKind = "113"
	LinkedAccountCustomer LinkedAccountKind = "12"
	LinkedAccountSupplier LinkedAccountKind = "211"
)

// SetupChartOfAccounts creates the missing default accounts and links the empty settings to them.
// Running it twice changes nothing.
func (p *Poster) SetupChartOfAccounts(ctx context.Context) ([]*models.Account, error) {
	var created []*models.Account
	err := p.transaction(ctx, "Setup chart of accounts", nil, func(ctx context.Context, tx *gorm.DB) error {
		byCode := make(map[string]*models.Account)
		for _, def := range defaultChartOfAccounts() {
			existing, err := models.GetAccountByCode(ctx, tx, def.Code)
			if err == nil {
				byCode[def.Code] = existing
				continue
			}
			if !utils.IsRecordNotFound(err) {
				return err
			}
			input := &models.NewAccount{
				Code:         def.Code,
				Name:         def.Name,
				AccountType:  def.AccountType,
				IsSelectable: &def.Selectable,
			}
			if parent, ok := byCode[def.ParentCode]; ok {
				input.ParentId = &parent.ID
			}
			account, err := models.CreateAccount(ctx, tx, input)
			if err != nil {
				return fmt.Errorf("account %s: %w", def.Code, err)
			}
			byCode[def.Code] = account
			created = append(created, account)
		}
		return linkDefaultSettings(ctx, tx, byCode)
	})
	if err != nil {
		config.LogError(p.Logger, "ChartOfAccountsSetup.go", "SetupChartOfAccounts", "SetupChartOfAccounts", nil, err)
		return nil, err
	}
	// the cache was dropped inside the transaction; drop it again after commit
	if err := models.InvalidateSettingsCache(ctx); err != nil {
		config.LogWarning(p.Logger, "ChartOfAccountsSetup.go", "SetupChartOfAccounts", "settings cache not invalidated", err.Error())
	}
	return created, nil
}

func linkDefaultSettings(ctx context.Context, tx *gorm.DB, byCode map[string]*models.Account) error {
	settings, err := models.GetSystemSettings(ctx, tx)
	if err != nil {
		return err
	}
	pick := func(current *int, key string) *int {
		if current != nil {
			return nil
		}
		if account, ok := byCode[defaultSettingsCodes[key]]; ok {
			return &account.ID
		}
		return nil
	}
	_, err = models.UpdateSystemSettings(ctx, tx, &models.NewSystemSettings{
		SalesAccountId:          pick(settings.SalesAccountId, "sales"),
		PurchasesAccountId:      pick(settings.PurchasesAccountId, "purchases"),
		VatOutputAccountId:      pick(settings.VatOutputAccountId, "vat_output"),
		VatInputAccountId:       pick(settings.VatInputAccountId, "vat_input"),
		CogsAccountId:           pick(settings.CogsAccountId, "cogs"),
		DefaultExpenseAccountId: pick(settings.DefaultExpenseAccountId, "default_expense"),
		DefaultIncomeAccountId:  pick(settings.DefaultIncomeAccountId, "default_income"),
		OpeningBalanceAccountId: pick(settings.OpeningBalanceAccountId, "opening_balance"),
	})
	return err
}

// CreateLinkedAccount adds the next sub-account under kind's parent, e.g. 111001 for the first safe.
func CreateLinkedAccount(ctx context.Context, tx *gorm.DB, kind LinkedAccountKind, name string) (*models.Account, error) {
	parent, err := models.GetAccountByCode(ctx, tx, string(kind))
	if err != nil {
		return nil, fmt.Errorf("parent account %s: %w", kind, err)
	}
	var codes []string
	if err := tx.WithContext(ctx).Model(&models.Account{}).
		Where("parent_id = ?", parent.ID).
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	next := 1
	for _, code := range codes {
		n, err := strconv.Atoi(strings.TrimPrefix(code, parent.Code))
		if err == nil && n >= next {
			next = n + 1
		}
	}

	account, err := models.CreateAccount(ctx, tx, &models.NewAccount{
		Code:         fmt.Sprintf("%s%03d", parent.Code, next),
		Name:         name,
		AccountType:  parent.AccountType,
		ParentId:     &parent.ID,
		IsSelectable: utils.NewTrue(),
	})
	if err != nil && utils.IsDuplicateKeyErr(err) {
		return nil, fmt.Errorf("account code %s%03d was taken concurrently: %w", parent.Code, next, err)
	}
	return account, err
}
