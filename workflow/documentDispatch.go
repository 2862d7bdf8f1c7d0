package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/ledger_backend/models"
)

type postFunc func(ctx context.Context, id int) (bool, error)

func (p *Poster) handlers(docType models.DocumentType) (post postFunc, unpost postFunc, ok bool) {
	switch docType {
	case models.DocumentJournal:
		return p.PostJournalEntry, p.UnpostJournalEntry, true
	case models.DocumentInvoice:
		return p.PostInvoice, p.UnpostInvoice, true
	case models.DocumentPayment:
		return p.PostPayment, p.UnpostPayment, true
	case models.DocumentExpense:
		return p.PostExpense, p.UnpostExpense, true
	case models.DocumentIncome:
		return p.PostIncome, p.UnpostIncome, true
	case models.DocumentCashMovement:
		return p.PostCashMovement, p.UnpostCashMovement, true
	case models.DocumentInventoryAdjustment:
		return p.PostInventoryAdjustment, p.UnpostInventoryAdjustment, true
	case models.DocumentStockTransfer:
		return p.PostStockTransfer, p.UnpostStockTransfer, true
	case models.DocumentMoneyTransfer:
		return p.PostMoneyTransfer, p.UnpostMoneyTransfer, true
	case models.DocumentStorePermit:
		return p.PostStorePermit, p.UnpostStorePermit, true
	case models.DocumentSafeOpening:
		return p.PostSafeOpeningBalance, p.UnpostSafeOpeningBalance, true
	case models.DocumentBankOpening:
		return p.PostBankOpeningBalance, p.UnpostBankOpeningBalance, true
	case models.DocumentContactOpening:
		return p.PostContactOpeningBalance, p.UnpostContactOpeningBalance, true
	}
	return nil, nil, false
}

// PostDocument posts any document by type. Depreciation is not a document; use PostDepreciation.
func (p *Poster) PostDocument(ctx context.Context, docType models.DocumentType, id int) (bool, error) {
	post, _, ok := p.handlers(docType)
	if !ok {
		return false, fmt.Errorf("cannot post document type %q", docType)
	}
	return post(ctx, id)
}

func (p *Poster) UnpostDocument(ctx context.Context, docType models.DocumentType, id int) (bool, error) {
	_, unpost, ok := p.handlers(docType)
	if !ok {
		return false, fmt.Errorf("cannot unpost document type %q", docType)
	}
	return unpost(ctx, id)
}
