package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/models"
	"gorm.io/gorm"
)

// EntryPrefixFor maps a document type to the prefix of its generated journal entry numbers.
// Invoices use their own per-type prefix (see models.InvoiceType.EntryPrefix).
func EntryPrefixFor(docType models.DocumentType) string {
	switch docType {
	case models.DocumentInvoice:
		return "INV"
	case models.DocumentPayment:
		return "PAY"
	case models.DocumentExpense:
		return "EXP"
	case models.DocumentIncome:
		return "INC"
	case models.DocumentCashMovement:
		return "CSH"
	case models.DocumentDepreciation:
		return "DEP"
	case models.DocumentInventoryAdjustment:
		return "ADJ"
	case models.DocumentStockTransfer:
		return "STR"
	case models.DocumentMoneyTransfer:
		return "MTR"
	case models.DocumentStorePermit:
		return "SPM"
	case models.DocumentSafeOpening, models.DocumentBankOpening, models.DocumentContactOpening:
		return "OPN"
	}
	return "JE"
}

// EnforcePostingGate validates the period lock for a document being posted or unposted.
func EnforcePostingGate(ctx context.Context, tx *gorm.DB, docType models.DocumentType, id int, date time.Time) error {
	if err := models.CheckPeriodLock(ctx, tx, date); err != nil {
		return fmt.Errorf("%s %d: %w", docType, id, err)
	}
	return nil
}
