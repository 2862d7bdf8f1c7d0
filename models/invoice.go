package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Invoice struct {
	ID                      int             `gorm:"primary_key" json:"id"`
	InvoiceNumber           string          `gorm:"size:50;uniqueIndex;not null" json:"invoice_number"`
	InvoiceType             InvoiceType     `gorm:"size:20;not null;index" json:"invoice_type"`
	PaymentType             PaymentType     `gorm:"size:10;not null" json:"payment_type"`
	InvoiceDate             time.Time       `gorm:"not null;index" json:"invoice_date"`
	ContactId               int             `gorm:"index;not null" json:"contact_id"`
	StoreId                 int             `gorm:"index;not null" json:"store_id"`
	SafeId                  *int            `gorm:"index" json:"safe_id"`
	BankId                  *int            `gorm:"index" json:"bank_id"`
	DiscountType            string          `gorm:"size:20" json:"discount_type"`
	DiscountValue           decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"discount_value"`
	TaxType                 string          `gorm:"size:20" json:"tax_type"`
	TaxValue                decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"tax_value"`
	TotalAmount             decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_amount"`
	DiscountAmount          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"discount_amount"`
	TaxAmount               decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"tax_amount"`
	NetAmount               decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"net_amount"`
	PaidAmount              decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"paid_amount"`
	RemainingAmount         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"remaining_amount"`
	Notes                   string          `gorm:"type:text" json:"notes"`
	ContactTransactionId    *int            `json:"contact_transaction_id"`
	SettlementTransactionId *int            `json:"settlement_transaction_id"`
	SafeTransactionId       *int            `json:"safe_transaction_id"`
	PostingState
	Items     []InvoiceItem `gorm:"foreignKey:InvoiceId" json:"items"`
	CreatedBy *int          `json:"created_by"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceItem struct {
	ID                   int              `gorm:"primary_key" json:"id"`
	InvoiceId            int              `gorm:"index;not null" json:"invoice_id"`
	ProductId            int              `gorm:"index;not null" json:"product_id"`
	ProductUnitId        int              `gorm:"not null" json:"product_unit_id"`
	Quantity             decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice            decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	DiscountPercentage   decimal.Decimal  `gorm:"type:decimal(7,4);not null;default:0" json:"discount_percentage"`
	TaxPercentage        *decimal.Decimal `gorm:"type:decimal(7,4)" json:"tax_percentage"`
	TotalPrice           decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"total_price"`
	DiscountAmount       decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"discount_amount"`
	TaxAmount            decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"tax_amount"`
	NetPrice             decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"net_price"`
	ProductTransactionId *int             `json:"product_transaction_id"`
}

type NewInvoiceItem struct {
	ProductId          int              `json:"product_id" validate:"required"`
	ProductUnitId      int              `json:"product_unit_id" validate:"required"`
	Quantity           decimal.Decimal  `json:"quantity"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	DiscountPercentage decimal.Decimal  `json:"discount_percentage"`
	TaxPercentage      *decimal.Decimal `json:"tax_percentage"`
}

type NewInvoice struct {
	InvoiceNumber string           `json:"invoice_number" validate:"max=50"`
	InvoiceType   InvoiceType      `json:"invoice_type" validate:"required,oneof=sale purchase sale_return purchase_return"`
	PaymentType   PaymentType      `json:"payment_type" validate:"required,oneof=cash credit"`
	InvoiceDate   time.Time        `json:"invoice_date" validate:"required"`
	ContactId     int              `json:"contact_id" validate:"required"`
	StoreId       int              `json:"store_id" validate:"required"`
	SafeId        *int             `json:"safe_id"`
	BankId        *int             `json:"bank_id"`
	DiscountType  string           `json:"discount_type" validate:"omitempty,oneof=percentage value"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	TaxType       string           `json:"tax_type" validate:"omitempty,oneof=percentage value"`
	TaxValue      decimal.Decimal  `json:"tax_value"`
	PaidAmount    decimal.Decimal  `json:"paid_amount"`
	Notes         string           `json:"notes"`
	Items         []NewInvoiceItem `json:"items" validate:"required,min=1,dive"`
	AutoPost      bool             `json:"auto_post"`
}

func (inv *Invoice) GetId() int                 { return inv.ID }
func (inv *Invoice) DocumentType() DocumentType { return DocumentInvoice }
func (inv *Invoice) DocumentDate() time.Time    { return inv.InvoiceDate }
func (inv *Invoice) ArtifactColumns() []string {
	return []string{"contact_transaction_id", "settlement_transaction_id", "safe_transaction_id"}
}

func (inv *Invoice) CheckTransactionLock(ctx context.Context, tx *gorm.DB) error {
	return CheckPeriodLock(ctx, tx, inv.InvoiceDate)
}

// CalculateTotals fills item and invoice amounts. vatPercentage applies to items without their own tax rate.
func (inv *Invoice) CalculateTotals(vatPercentage decimal.Decimal) {
	total, itemDiscounts, itemTaxes := decimal.Zero, decimal.Zero, decimal.Zero
	for i := range inv.Items {
		item := &inv.Items[i]
		item.TotalPrice = utils.RoundMoney(item.Quantity.Mul(item.UnitPrice))
		item.DiscountAmount = utils.PercentOf(item.TotalPrice, item.DiscountPercentage)
		rate := vatPercentage
		if item.TaxPercentage != nil {
			rate = *item.TaxPercentage
		}
		item.TaxAmount = utils.PercentOf(item.TotalPrice.Sub(item.DiscountAmount), rate)
		item.NetPrice = item.TotalPrice.Sub(item.DiscountAmount).Add(item.TaxAmount)

		total = total.Add(item.TotalPrice)
		itemDiscounts = itemDiscounts.Add(item.DiscountAmount)
		itemTaxes = itemTaxes.Add(item.TaxAmount)
	}

	invoiceDiscount := utils.CalculateDiscountAmount(total, inv.DiscountValue, inv.DiscountType)
	invoiceTax := utils.CalculateTaxAmount(total.Sub(invoiceDiscount), inv.TaxValue, inv.TaxType)

	inv.TotalAmount = total
	inv.DiscountAmount = itemDiscounts.Add(invoiceDiscount)
	inv.TaxAmount = itemTaxes.Add(invoiceTax)
	inv.NetAmount = inv.TotalAmount.Sub(inv.DiscountAmount).Add(inv.TaxAmount)
	if inv.PaymentType == PaymentTypeCash {
		inv.PaidAmount = inv.NetAmount
	}
	inv.RemainingAmount = inv.NetAmount.Sub(inv.PaidAmount)
}

// validate input for both create & update. (id = 0 for create)
func (input *NewInvoice) validate(ctx context.Context, tx *gorm.DB, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.InvoiceNumber != "" {
		if err := utils.ValidateUnique[Invoice](ctx, tx, "invoice_number", input.InvoiceNumber, id); err != nil {
			return err
		}
	}
	contact, err := utils.FetchModel[Contact](ctx, tx, input.ContactId)
	if err != nil {
		return fmt.Errorf("contact %d: %w", input.ContactId, err)
	}
	if contact.ContactType != input.InvoiceType.ContactType() {
		return fmt.Errorf("%s invoice needs a %s contact", input.InvoiceType, input.InvoiceType.ContactType())
	}
	if err := utils.ValidateResourceId[Store](ctx, tx, input.StoreId); err != nil {
		return fmt.Errorf("store %d: %w", input.StoreId, err)
	}

	if input.PaidAmount.IsNegative() {
		return errors.New("paid amount cannot be negative")
	}
	if input.PaymentType == PaymentTypeCash || input.PaidAmount.IsPositive() {
		if _, err := LoadCashOwner(ctx, tx, input.SafeId, input.BankId); err != nil {
			return err
		}
	} else if _, err := OptionalCashOwner(ctx, tx, input.SafeId, input.BankId); err != nil {
		return err
	}

	for i, item := range input.Items {
		if !item.Quantity.IsPositive() {
			return fmt.Errorf("line %d: quantity must be positive", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("line %d: unit price cannot be negative", i+1)
		}
		if item.DiscountPercentage.IsNegative() || item.DiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("line %d: discount percentage must be between 0 and 100", i+1)
		}
		if item.TaxPercentage != nil && item.TaxPercentage.IsNegative() {
			return fmt.Errorf("line %d: tax percentage cannot be negative", i+1)
		}
		if _, err := GetProductUnit(ctx, tx, item.ProductId, item.ProductUnitId); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return CheckPeriodLock(ctx, tx, input.InvoiceDate)
}

func (input *NewInvoice) items() []InvoiceItem {
	items := make([]InvoiceItem, 0, len(input.Items))
	for _, i := range input.Items {
		items = append(items, InvoiceItem{
			ProductId:          i.ProductId,
			ProductUnitId:      i.ProductUnitId,
			Quantity:           i.Quantity,
			UnitPrice:          i.UnitPrice,
			DiscountPercentage: i.DiscountPercentage,
			TaxPercentage:      i.TaxPercentage,
		})
	}
	return items
}

// CreateInvoice stores a draft invoice with computed totals.
func CreateInvoice(ctx context.Context, tx *gorm.DB, input *NewInvoice) (*Invoice, error) {
	if err := input.validate(ctx, tx, 0); err != nil {
		return nil, err
	}
	settings, err := GetSystemSettings(ctx, tx)
	if err != nil {
		return nil, err
	}

	invoice := Invoice{
		InvoiceNumber: input.InvoiceNumber,
		InvoiceType:   input.InvoiceType,
		PaymentType:   input.PaymentType,
		InvoiceDate:   input.InvoiceDate.UTC(),
		ContactId:     input.ContactId,
		StoreId:       input.StoreId,
		SafeId:        input.SafeId,
		BankId:        input.BankId,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		TaxType:       input.TaxType,
		TaxValue:      input.TaxValue,
		PaidAmount:    input.PaidAmount,
		Notes:         input.Notes,
		Items:         input.items(),
	}
	invoice.CalculateTotals(settings.VatPercentage)
	if invoice.PaidAmount.GreaterThan(invoice.NetAmount) {
		return nil, fmt.Errorf("paid amount %s exceeds net amount %s", invoice.PaidAmount.StringFixed(2), invoice.NetAmount.StringFixed(2))
	}
	if invoice.InvoiceNumber == "" {
		if invoice.InvoiceNumber, err = nextDocumentNumber[Invoice](ctx, tx, input.InvoiceType.EntryPrefix()); err != nil {
			return nil, err
		}
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		invoice.CreatedBy = &userId
	}
	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateInvoice replaces the header and items of a draft invoice.
func UpdateInvoice(ctx context.Context, tx *gorm.DB, id int, input *NewInvoice) (*Invoice, error) {
	invoice, err := utils.FetchModelForChange[Invoice](ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := guardDraftDocument(ctx, tx, invoice); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, tx, id); err != nil {
		return nil, err
	}
	settings, err := GetSystemSettings(ctx, tx)
	if err != nil {
		return nil, err
	}

	if input.InvoiceNumber != "" {
		invoice.InvoiceNumber = input.InvoiceNumber
	}
	invoice.InvoiceType = input.InvoiceType
	invoice.PaymentType = input.PaymentType
	invoice.InvoiceDate = input.InvoiceDate.UTC()
	invoice.ContactId = input.ContactId
	invoice.StoreId = input.StoreId
	invoice.SafeId = input.SafeId
	invoice.BankId = input.BankId
	invoice.DiscountType = input.DiscountType
	invoice.DiscountValue = input.DiscountValue
	invoice.TaxType = input.TaxType
	invoice.TaxValue = input.TaxValue
	invoice.PaidAmount = input.PaidAmount
	invoice.Notes = input.Notes
	invoice.Items = input.items()
	invoice.CalculateTotals(settings.VatPercentage)
	if invoice.PaidAmount.GreaterThan(invoice.NetAmount) {
		return nil, fmt.Errorf("paid amount %s exceeds net amount %s", invoice.PaidAmount.StringFixed(2), invoice.NetAmount.StringFixed(2))
	}

	if err := tx.WithContext(ctx).Where("invoice_id = ?", id).Delete(&InvoiceItem{}).Error; err != nil {
		return nil, err
	}
	for i := range invoice.Items {
		invoice.Items[i].InvoiceId = id
	}
	if err := tx.WithContext(ctx).Create(&invoice.Items).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Save(invoice).Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Invoice](ctx, tx, id, "Items")
}

// DeleteDraftInvoice removes an unposted invoice and its items.
func DeleteDraftInvoice(ctx context.Context, tx *gorm.DB, id int) error {
	invoice, err := utils.FetchModelForUpdate[Invoice](ctx, tx, id)
	if err != nil {
		return err
	}
	if err := guardDraftDocument(ctx, tx, invoice); err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Where("invoice_id = ?", id).Delete(&InvoiceItem{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(invoice).Error
}

// ApplyInvoicePayment moves amount (negative to reverse) from remaining to paid.
func ApplyInvoicePayment(ctx context.Context, tx *gorm.DB, invoiceId int, amount decimal.Decimal) (*Invoice, error) {
	invoice, err := utils.FetchModelForUpdate[Invoice](ctx, tx, invoiceId)
	if err != nil {
		return nil, fmt.Errorf("invoice %d: %w", invoiceId, err)
	}
	paid := invoice.PaidAmount.Add(amount)
	if paid.IsNegative() {
		return nil, fmt.Errorf("invoice %s: paid amount would become negative", invoice.InvoiceNumber)
	}
	if paid.GreaterThan(invoice.NetAmount) {
		return nil, fmt.Errorf("invoice %s: payment of %s exceeds remaining %s", invoice.InvoiceNumber, amount.StringFixed(2), invoice.RemainingAmount.StringFixed(2))
	}
	invoice.PaidAmount = paid
	invoice.RemainingAmount = invoice.NetAmount.Sub(paid)
	if err := tx.WithContext(ctx).Model(invoice).UpdateColumns(map[string]interface{}{
		"paid_amount":      invoice.PaidAmount,
		"remaining_amount": invoice.RemainingAmount,
	}).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// ClearInvoiceItemRefs drops the product transaction back-references of all items.
func ClearInvoiceItemRefs(ctx context.Context, tx *gorm.DB, invoiceId int) error {
	return tx.WithContext(ctx).Model(&InvoiceItem{}).
		Where("invoice_id = ?", invoiceId).
		UpdateColumn("product_transaction_id", nil).Error
}
