package models

import (
	"github.com/mmdatafocus/ledger_backend/config"
	"gorm.io/gorm"
)

func allModels() []interface{} {
	return []interface{}{
		&Account{}, &CostCenter{}, &FinancialPeriod{}, &SystemSettings{}, &AuditLog{},
		&JournalEntry{}, &JournalItem{},
		&Safe{}, &Bank{}, &Contact{}, &Store{},
		&ExpenseCategory{}, &IncomeCategory{}, &ProductCategory{},
		&Product{}, &ProductUnit{},
		&SafeTransaction{}, &ContactTransaction{}, &ProductTransaction{},
		&Invoice{}, &InvoiceItem{}, &Payment{}, &Expense{}, &Income{}, &CashMovement{},
		&FixedAsset{}, &AssetDepreciation{},
		&InventoryAdjustment{}, &StockTransfer{}, &MoneyTransfer{}, &StorePermit{}, &StorePermitItem{},
	}
}

// MigrateTable creates or alters every ledger table.
func MigrateTable(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		config.LogError(config.GetLogger(), "models", "MigrateTable", "auto migrate", nil, err)
		return err
	}
	return nil
}
