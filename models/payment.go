package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is a receipt from a customer or a payment to a supplier. Without a contact
// the counter side is an income (receipt) or expense (payment) category.
type Payment struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	PaymentNumber        string          `gorm:"size:50;uniqueIndex;not null" json:"payment_number"`
	ReceiptType          ReceiptType     `gorm:"size:10;not null;index" json:"receipt_type"`
	PaymentDate          time.Time       `gorm:"not null;index" json:"payment_date"`
	ContactId            *int            `gorm:"index" json:"contact_id"`
	InvoiceId            *int            `gorm:"index" json:"invoice_id"`
	ExpenseCategoryId    *int            `json:"expense_category_id"`
	IncomeCategoryId     *int            `json:"income_category_id"`
	SafeId               *int            `gorm:"index" json:"safe_id"`
	BankId               *int            `gorm:"index" json:"bank_id"`
	Amount               decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Notes                string          `gorm:"type:text" json:"notes"`
	SafeTransactionId    *int            `json:"safe_transaction_id"`
	ContactTransactionId *int            `json:"contact_transaction_id"`
	PostingState
	CreatedBy *int      `json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	PaymentNumber     string          `json:"payment_number" validate:"max=50"`
	ReceiptType       ReceiptType     `json:"receipt_type" validate:"required,oneof=receipt payment"`
	PaymentDate       time.Time       `json:"payment_date" validate:"required"`
	ContactId         *int            `json:"contact_id"`
	InvoiceId         *int            `json:"invoice_id"`
	ExpenseCategoryId *int            `json:"expense_category_id"`
	IncomeCategoryId  *int            `json:"income_category_id"`
	SafeId            *int            `json:"safe_id"`
	BankId            *int            `json:"bank_id"`
	Amount            decimal.Decimal `json:"amount"`
	Notes             string          `json:"notes"`
	AutoPost          bool            `json:"auto_post"`
}

func (p *Payment) GetId() int                 { return p.ID }
func (p *Payment) DocumentType() DocumentType { return DocumentPayment }
func (p *Payment) DocumentDate() time.Time    { return p.PaymentDate }
func (p *Payment) ArtifactColumns() []string {
	return []string{"safe_transaction_id", "contact_transaction_id"}
}

func (p *Payment) CheckTransactionLock(ctx context.Context, tx *gorm.DB) error {
	return CheckPeriodLock(ctx, tx, p.PaymentDate)
}

// SafeTransactionType is collection for receipts and payment otherwise.
func (p *Payment) SafeTransactionType() SafeTransactionType {
	if p.ReceiptType == ReceiptTypeReceipt {
		return SafeTransactionCollection
	}
	return SafeTransactionPayment
}

func (p *Payment) ContactTransactionType() ContactTransactionType {
	if p.ReceiptType == ReceiptTypeReceipt {
		return ContactTransactionCollection
	}
	return ContactTransactionPayment
}

// InvoiceType is the invoice type a payment of this direction may settle.
func (t ReceiptType) InvoiceType() InvoiceType {
	if t == ReceiptTypeReceipt {
		return InvoiceTypeSale
	}
	return InvoiceTypePurchase
}

func (input *NewPayment) validate(ctx context.Context, tx *gorm.DB, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	if input.PaymentNumber != "" {
		if err := utils.ValidateUnique[Payment](ctx, tx, "payment_number", input.PaymentNumber, id); err != nil {
			return err
		}
	}
	if _, err := LoadCashOwner(ctx, tx, input.SafeId, input.BankId); err != nil {
		return err
	}

	if input.ContactId == nil {
		if input.InvoiceId != nil {
			return errors.New("an invoice payment needs the invoice contact")
		}
		if input.ReceiptType == ReceiptTypeReceipt && input.IncomeCategoryId == nil {
			return errors.New("a receipt needs a contact or an income category")
		}
		if input.ReceiptType == ReceiptTypePayment && input.ExpenseCategoryId == nil {
			return errors.New("a payment needs a contact or an expense category")
		}
	} else if err := utils.ValidateResourceId[Contact](ctx, tx, *input.ContactId); err != nil {
		return fmt.Errorf("contact %d: %w", *input.ContactId, err)
	}
	if err := utils.ValidateOptionalResourceId[ExpenseCategory](ctx, tx, input.ExpenseCategoryId, "expense category"); err != nil {
		return err
	}
	if err := utils.ValidateOptionalResourceId[IncomeCategory](ctx, tx, input.IncomeCategoryId, "income category"); err != nil {
		return err
	}

	if input.InvoiceId != nil {
		invoice, err := utils.FetchModel[Invoice](ctx, tx, *input.InvoiceId)
		if err != nil {
			return fmt.Errorf("invoice %d: %w", *input.InvoiceId, err)
		}
		if invoice.InvoiceType != input.ReceiptType.InvoiceType() {
			return fmt.Errorf("a %s cannot settle a %s invoice", input.ReceiptType, invoice.InvoiceType)
		}
		if invoice.ContactId != *input.ContactId {
			return errors.New("payment contact does not match the invoice contact")
		}
	}
	return CheckPeriodLock(ctx, tx, input.PaymentDate)
}

func CreatePayment(ctx context.Context, tx *gorm.DB, input *NewPayment) (*Payment, error) {
	if err := input.validate(ctx, tx, 0); err != nil {
		return nil, err
	}
	payment := Payment{
		PaymentNumber:     input.PaymentNumber,
		ReceiptType:       input.ReceiptType,
		PaymentDate:       input.PaymentDate.UTC(),
		ContactId:         input.ContactId,
		InvoiceId:         input.InvoiceId,
		ExpenseCategoryId: input.ExpenseCategoryId,
		IncomeCategoryId:  input.IncomeCategoryId,
		SafeId:            input.SafeId,
		BankId:            input.BankId,
		Amount:            input.Amount,
		Notes:             input.Notes,
	}
	if payment.PaymentNumber == "" {
		prefix := "PAY"
		if input.ReceiptType == ReceiptTypeReceipt {
			prefix = "REC"
		}
		var err error
		if payment.PaymentNumber, err = nextDocumentNumber[Payment](ctx, tx, prefix); err != nil {
			return nil, err
		}
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		payment.CreatedBy = &userId
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func DeleteDraftPayment(ctx context.Context, tx *gorm.DB, id int) error {
	payment, err := utils.FetchModelForUpdate[Payment](ctx, tx, id)
	if err != nil {
		return err
	}
	if err := guardDraftDocument(ctx, tx, payment); err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(payment).Error
}

// PostedPaymentsForInvoice counts posted payments settling an invoice.
func PostedPaymentsForInvoice(ctx context.Context, tx *gorm.DB, invoiceId int) (int64, error) {
	return utils.ResourceCountWhere[Payment](ctx, tx, "invoice_id = ? AND is_posted = ?", invoiceId, true)
}
