package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvoiceHasPayments = errors.New("invoice has posted payments")

func (p *Poster) CreateInvoice(ctx context.Context, input *models.NewInvoice) (*models.Invoice, error) {
	return createDocument[models.Invoice](ctx, p, input.AutoPost, func(ctx context.Context, tx *gorm.DB) (*models.Invoice, error) {
		return models.CreateInvoice(ctx, tx, input)
	}, p.PostInvoice, "Items")
}

// UpdateInvoice replaces a draft invoice; posted invoices must be unposted first.
func (p *Poster) UpdateInvoice(ctx context.Context, id int, input *models.NewInvoice) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := p.locked(ctx, "Update invoice", models.DocumentInvoice, id, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		invoice, err = models.UpdateInvoice(ctx, tx, id, input)
		return err
	})
	if err != nil {
		config.LogError(p.Logger, "InvoiceWorkflow.go", "UpdateInvoice", "UpdateInvoice", id, err)
		return nil, err
	}
	return invoice, nil
}

func (p *Poster) DeleteInvoice(ctx context.Context, id int) error {
	return deleteDocument[models.Invoice](ctx, p, id, p.UnpostInvoice, models.DeleteDraftInvoice)
}

func (p *Poster) PostInvoice(ctx context.Context, id int) (bool, error) {
	return postDocument[models.Invoice](ctx, p, id, p.applyInvoice, "Items")
}

func (p *Poster) UnpostInvoice(ctx context.Context, id int) (bool, error) {
	return unpostDocument[models.Invoice](ctx, p, id, reverseInvoice)
}

type cogsLine struct {
	account *models.Account
	amount  decimal.Decimal
}

// applyInvoice books the contact, cash, stock and journal side of an invoice.
// Returns mirror the sale/purchase journal, done by signing the amounts.
func (p *Poster) applyInvoice(run *postingRun, inv *models.Invoice) error {
	ctx, tx := run.ctx, run.tx
	run.prefix = inv.InvoiceType.EntryPrefix()
	run.journal.Description = fmt.Sprintf("%s invoice %s", inv.InvoiceType, inv.InvoiceNumber)
	run.journal.Reference = inv.InvoiceNumber

	contact, err := utils.FetchModel[models.Contact](ctx, tx, inv.ContactId)
	if err != nil {
		return fmt.Errorf("contact %d: %w", inv.ContactId, err)
	}
	store, err := utils.FetchModel[models.Store](ctx, tx, inv.StoreId)
	if err != nil {
		return fmt.Errorf("store %d: %w", inv.StoreId, err)
	}
	contactAccount, err := run.account(contact.AccountId)
	if err != nil {
		return err
	}
	storeAccount, err := run.account(store.AccountId)
	if err != nil {
		return err
	}

	if inv.NetAmount.IsPositive() {
		row, err := run.contactTransaction(inv.ContactId, inv.InvoiceType.ContactTransactionType(), inv.NetAmount, inv.InvoiceNumber)
		if err != nil {
			config.LogError(p.Logger, "InvoiceWorkflow.go", "applyInvoice", "contactTransaction", inv.ID, err)
			return err
		}
		if err := models.SetArtifactRef[models.Invoice](ctx, tx, inv.ID, "contact_transaction_id", row.ID); err != nil {
			return err
		}
	}

	var cashAccount *models.Account
	if inv.PaidAmount.IsPositive() {
		owner, err := models.LoadCashOwner(ctx, tx, inv.SafeId, inv.BankId)
		if err != nil {
			return err
		}
		cashRow, err := run.cashTransaction(owner, inv.InvoiceType.SafeTransactionType(), inv.PaidAmount, inv.InvoiceNumber)
		if err != nil {
			config.LogError(p.Logger, "InvoiceWorkflow.go", "applyInvoice", "cashTransaction", inv.ID, err)
			return err
		}
		if err := models.SetArtifactRef[models.Invoice](ctx, tx, inv.ID, "safe_transaction_id", cashRow.ID); err != nil {
			return err
		}
		settlement, err := run.contactTransaction(inv.ContactId, inv.InvoiceType.SettlementTransactionType(), inv.PaidAmount, inv.InvoiceNumber)
		if err != nil {
			return err
		}
		if err := models.SetArtifactRef[models.Invoice](ctx, tx, inv.ID, "settlement_transaction_id", settlement.ID); err != nil {
			return err
		}
		if cashAccount, err = owner.Account(ctx, tx); err != nil {
			return err
		}
	}

	sign := decimal.NewFromInt(1)
	if inv.InvoiceType.IsReturn() {
		sign = sign.Neg()
	}

	var cogs []cogsLine
	for i := range inv.Items {
		item := &inv.Items[i]
		unit, err := models.GetProductUnit(ctx, tx, item.ProductId, item.ProductUnitId)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		row, err := run.productTransaction(item.ProductId, inv.StoreId, item.ProductUnitId, inv.InvoiceType.ProductTransactionType(), item.Quantity, item.UnitPrice, inv.InvoiceNumber)
		if err != nil {
			config.LogError(p.Logger, "InvoiceWorkflow.go", "applyInvoice", "productTransaction", item, err)
			return err
		}
		if err := models.SetArtifactRef[models.InvoiceItem](ctx, tx, item.ID, "product_transaction_id", row.ID); err != nil {
			return err
		}
		if inv.InvoiceType.IsSaleSide() {
			categoryCogs, err := models.ProductCogsAccount(ctx, tx, item.ProductId)
			if err != nil {
				return err
			}
			cogs = append(cogs, cogsLine{
				account: models.FirstAccount(categoryCogs, run.defaults.Cogs),
				amount:  unit.CostOf(item.Quantity).Mul(sign),
			})
		}
	}

	net := inv.NetAmount.Mul(sign)
	base := inv.TotalAmount.Sub(inv.DiscountAmount).Mul(sign)
	tax := inv.TaxAmount.Mul(sign)
	paid := inv.PaidAmount.Mul(sign)
	vat := withVat(inv.TaxAmount, effectiveVatRate(inv.TaxAmount, inv.TotalAmount.Sub(inv.DiscountAmount)))
	j := &run.journal
	if inv.InvoiceType.IsSaleSide() {
		j.Debit(contactAccount, net, "customer")
		j.Credit(run.defaults.Sales, base, "sales")
		j.Credit(run.defaults.VatOutput, tax, "vat output", vat)
		for _, line := range cogs {
			j.Debit(line.account, line.amount, "cost of goods sold")
			j.Credit(storeAccount, line.amount, "inventory")
		}
		j.Debit(cashAccount, paid, "cash")
		j.Credit(contactAccount, paid, "customer")
	} else {
		j.Debit(models.FirstAccount(storeAccount, run.defaults.Purchases), base, "inventory")
		j.Debit(run.defaults.VatInput, tax, "vat input", vat)
		j.Credit(contactAccount, net, "supplier")
		j.Debit(contactAccount, paid, "supplier")
		j.Credit(cashAccount, paid, "cash")
	}

	return updateUnitPrices(run, inv)
}

// effectiveVatRate is the invoice tax as a percentage of its taxable base.
func effectiveVatRate(tax, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return tax.Div(base).Mul(decimal.NewFromInt(100)).Round(4)
}

// updateUnitPrices copies invoice prices to the product units when the settings ask for it.
func updateUnitPrices(run *postingRun, inv *models.Invoice) error {
	var column string
	switch {
	case inv.InvoiceType == models.InvoiceTypePurchase && run.defaults.UpdatePurchasePrice:
		column = "purchase_price"
	case inv.InvoiceType == models.InvoiceTypeSale && run.defaults.UpdateSalePrice:
		column = "sale_price"
	default:
		return nil
	}
	for _, item := range inv.Items {
		if err := models.UpdateProductUnitPrice(run.ctx, run.tx, item.ProductUnitId, column, item.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

func reverseInvoice(run *postingRun, inv *models.Invoice) error {
	count, err := models.PostedPaymentsForInvoice(run.ctx, run.tx, inv.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("invoice %s: %w", inv.InvoiceNumber, ErrInvoiceHasPayments)
	}
	return models.ClearInvoiceItemRefs(run.ctx, run.tx, inv.ID)
}
