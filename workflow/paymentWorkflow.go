package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

var ErrInvoiceNotPosted = errors.New("invoice is not posted")

func (p *Poster) CreatePayment(ctx context.Context, input *models.NewPayment) (*models.Payment, error) {
	return createDocument[models.Payment](ctx, p, input.AutoPost, func(ctx context.Context, tx *gorm.DB) (*models.Payment, error) {
		return models.CreatePayment(ctx, tx, input)
	}, p.PostPayment)
}

func (p *Poster) DeletePayment(ctx context.Context, id int) error {
	return deleteDocument[models.Payment](ctx, p, id, p.UnpostPayment, models.DeleteDraftPayment)
}

func (p *Poster) PostPayment(ctx context.Context, id int) (bool, error) {
	return postDocument[models.Payment](ctx, p, id, p.applyPayment)
}

func (p *Poster) UnpostPayment(ctx context.Context, id int) (bool, error) {
	return unpostDocument[models.Payment](ctx, p, id, reversePayment)
}

func (p *Poster) applyPayment(run *postingRun, pay *models.Payment) error {
	ctx, tx := run.ctx, run.tx
	run.journal.Description = fmt.Sprintf("%s %s", pay.ReceiptType, pay.PaymentNumber)
	run.journal.Reference = pay.PaymentNumber

	owner, err := models.LoadCashOwner(ctx, tx, pay.SafeId, pay.BankId)
	if err != nil {
		return err
	}
	cashRow, err := run.cashTransaction(owner, pay.SafeTransactionType(), pay.Amount, pay.PaymentNumber)
	if err != nil {
		config.LogError(p.Logger, "PaymentWorkflow.go", "applyPayment", "cashTransaction", pay.ID, err)
		return err
	}
	if err := models.SetArtifactRef[models.Payment](ctx, tx, pay.ID, "safe_transaction_id", cashRow.ID); err != nil {
		return err
	}
	cashAccount, err := owner.Account(ctx, tx)
	if err != nil {
		return err
	}

	var counter *models.Account
	counterLabel := "contact"
	if pay.ContactId != nil {
		contact, err := utils.FetchModel[models.Contact](ctx, tx, *pay.ContactId)
		if err != nil {
			return fmt.Errorf("contact %d: %w", *pay.ContactId, err)
		}
		row, err := run.contactTransaction(contact.ID, pay.ContactTransactionType(), pay.Amount, pay.PaymentNumber)
		if err != nil {
			config.LogError(p.Logger, "PaymentWorkflow.go", "applyPayment", "contactTransaction", pay.ID, err)
			return err
		}
		if err := models.SetArtifactRef[models.Payment](ctx, tx, pay.ID, "contact_transaction_id", row.ID); err != nil {
			return err
		}
		if counter, err = run.account(contact.AccountId); err != nil {
			return err
		}
	} else if pay.ReceiptType == models.ReceiptTypeReceipt {
		counterLabel = "income"
		category, err := models.IncomeCategoryAccount(ctx, tx, pay.IncomeCategoryId)
		if err != nil {
			return err
		}
		counter = models.FirstAccount(category, run.defaults.DefaultIncome)
	} else {
		counterLabel = "expense"
		category, err := models.ExpenseCategoryAccount(ctx, tx, pay.ExpenseCategoryId)
		if err != nil {
			return err
		}
		counter = models.FirstAccount(category, run.defaults.DefaultExpense)
	}

	if pay.InvoiceId != nil {
		invoice, err := utils.FetchModel[models.Invoice](ctx, tx, *pay.InvoiceId)
		if err != nil {
			return fmt.Errorf("invoice %d: %w", *pay.InvoiceId, err)
		}
		if !invoice.IsPosted {
			return fmt.Errorf("invoice %s: %w", invoice.InvoiceNumber, ErrInvoiceNotPosted)
		}
		if _, err := models.ApplyInvoicePayment(ctx, tx, invoice.ID, pay.Amount); err != nil {
			return err
		}
	}

	if pay.ReceiptType == models.ReceiptTypeReceipt {
		run.journal.Debit(cashAccount, pay.Amount, "cash")
		run.journal.Credit(counter, pay.Amount, counterLabel)
	} else {
		run.journal.Debit(counter, pay.Amount, counterLabel)
		run.journal.Credit(cashAccount, pay.Amount, "cash")
	}
	return nil
}

func reversePayment(run *postingRun, pay *models.Payment) error {
	if pay.InvoiceId == nil {
		return nil
	}
	_, err := models.ApplyInvoicePayment(run.ctx, run.tx, *pay.InvoiceId, pay.Amount.Neg())
	return err
}
