package models

type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// debit-normal accounts grow with debits
func (t AccountType) IsDebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

type ContactType string

const (
	ContactTypeCustomer ContactType = "customer"
	ContactTypeSupplier ContactType = "supplier"
)

type BalanceType string

const (
	BalanceTypeDebit  BalanceType = "debit"
	BalanceTypeCredit BalanceType = "credit"
)

type SafeTransactionType string

const (
	SafeTransactionSaleInvoice           SafeTransactionType = "sale_invoice"
	SafeTransactionPurchaseInvoice       SafeTransactionType = "purchase_invoice"
	SafeTransactionSaleReturnInvoice     SafeTransactionType = "sale_return_invoice"
	SafeTransactionPurchaseReturnInvoice SafeTransactionType = "purchase_return_invoice"
	SafeTransactionCollection            SafeTransactionType = "collection"
	SafeTransactionPayment               SafeTransactionType = "payment"
	SafeTransactionDeposit               SafeTransactionType = "deposit"
	SafeTransactionWithdrawal            SafeTransactionType = "withdrawal"
	SafeTransactionExpense               SafeTransactionType = "expense"
	SafeTransactionIncome                SafeTransactionType = "income"
)

// Sign is +1 for inflows and -1 for outflows of a safe or bank.
func (t SafeTransactionType) Sign() int64 {
	switch t {
	case SafeTransactionSaleInvoice, SafeTransactionCollection, SafeTransactionDeposit,
		SafeTransactionIncome, SafeTransactionPurchaseReturnInvoice:
		return 1
	case SafeTransactionPurchaseInvoice, SafeTransactionPayment, SafeTransactionWithdrawal,
		SafeTransactionExpense, SafeTransactionSaleReturnInvoice:
		return -1
	}
	return 0
}

func (t SafeTransactionType) IsValid() bool {
	return t.Sign() != 0
}

type ContactTransactionType string

const (
	ContactTransactionSaleInvoice           ContactTransactionType = "sale_invoice"
	ContactTransactionPurchaseInvoice       ContactTransactionType = "purchase_invoice"
	ContactTransactionSaleReturnInvoice     ContactTransactionType = "sale_return_invoice"
	ContactTransactionPurchaseReturnInvoice ContactTransactionType = "purchase_return_invoice"
	ContactTransactionCollection            ContactTransactionType = "collection"
	ContactTransactionPayment               ContactTransactionType = "payment"
	ContactTransactionRefund                ContactTransactionType = "refund"
)

func (t ContactTransactionType) IsValid() bool {
	switch t {
	case ContactTransactionSaleInvoice, ContactTransactionPurchaseInvoice, ContactTransactionSaleReturnInvoice,
		ContactTransactionPurchaseReturnInvoice, ContactTransactionCollection, ContactTransactionPayment,
		ContactTransactionRefund:
		return true
	}
	return false
}

// Sign is the effect on what a customer owes us or what we owe a supplier. A refund pays back
// a settled return, so it undoes the return's decrease on either side. Types foreign to the
// contact side are neutral.
func (t ContactTransactionType) Sign(contactType ContactType) int64 {
	switch contactType {
	case ContactTypeCustomer:
		switch t {
		case ContactTransactionSaleInvoice, ContactTransactionRefund:
			return 1
		case ContactTransactionSaleReturnInvoice, ContactTransactionCollection:
			return -1
		}
	case ContactTypeSupplier:
		switch t {
		case ContactTransactionPurchaseInvoice, ContactTransactionRefund:
			return 1
		case ContactTransactionPurchaseReturnInvoice, ContactTransactionPayment:
			return -1
		}
	}
	return 0
}

type ProductTransactionType string

const (
	ProductTransactionSale           ProductTransactionType = "sale"
	ProductTransactionPurchase       ProductTransactionType = "purchase"
	ProductTransactionSaleReturn     ProductTransactionType = "sale_return"
	ProductTransactionPurchaseReturn ProductTransactionType = "purchase_return"
	ProductTransactionAdjustment     ProductTransactionType = "adjustment"
	ProductTransactionTransferOut    ProductTransactionType = "transfer_out"
	ProductTransactionTransferIn     ProductTransactionType = "transfer_in"
)

// Sign returns 0 for adjustments, whose base quantity is already signed.
func (t ProductTransactionType) Sign() int64 {
	switch t {
	case ProductTransactionPurchase, ProductTransactionSaleReturn, ProductTransactionTransferIn:
		return 1
	case ProductTransactionSale, ProductTransactionPurchaseReturn, ProductTransactionTransferOut:
		return -1
	}
	return 0
}

func (t ProductTransactionType) IsValid() bool {
	return t == ProductTransactionAdjustment || t.Sign() != 0
}

type InvoiceType string

const (
	InvoiceTypeSale           InvoiceType = "sale"
	InvoiceTypePurchase       InvoiceType = "purchase"
	InvoiceTypeSaleReturn     InvoiceType = "sale_return"
	InvoiceTypePurchaseReturn InvoiceType = "purchase_return"
)

// sale side invoices are issued to customers
func (t InvoiceType) IsSaleSide() bool {
	return t == InvoiceTypeSale || t == InvoiceTypeSaleReturn
}

func (t InvoiceType) IsReturn() bool {
	return t == InvoiceTypeSaleReturn || t == InvoiceTypePurchaseReturn
}

func (t InvoiceType) ContactType() ContactType {
	if t.IsSaleSide() {
		return ContactTypeCustomer
	}
	return ContactTypeSupplier
}

func (t InvoiceType) SafeTransactionType() SafeTransactionType {
	return SafeTransactionType(string(t) + "_invoice")
}

func (t InvoiceType) ContactTransactionType() ContactTransactionType {
	return ContactTransactionType(string(t) + "_invoice")
}

// SettlementTransactionType is the contact transaction recorded for the paid part of an invoice.
func (t InvoiceType) SettlementTransactionType() ContactTransactionType {
	switch t {
	case InvoiceTypeSale:
		return ContactTransactionCollection
	case InvoiceTypePurchase:
		return ContactTransactionPayment
	}
	return ContactTransactionRefund
}

func (t InvoiceType) ProductTransactionType() ProductTransactionType {
	return ProductTransactionType(t)
}

func (t InvoiceType) EntryPrefix() string {
	switch t {
	case InvoiceTypePurchase:
		return "PUR"
	case InvoiceTypeSaleReturn:
		return "SRT"
	case InvoiceTypePurchaseReturn:
		return "PRT"
	}
	return "INV"
}

type PaymentType string

const (
	PaymentTypeCash   PaymentType = "cash"
	PaymentTypeCredit PaymentType = "credit"
)

type ReceiptType string

const (
	ReceiptTypeReceipt ReceiptType = "receipt"
	ReceiptTypePayment ReceiptType = "payment"
)

type AdjustmentType string

const (
	AdjustmentTypeIncrease AdjustmentType = "increase"
	AdjustmentTypeDecrease AdjustmentType = "decrease"
)

type PermitType string

const (
	PermitTypeIssue   PermitType = "issue"
	PermitTypeReceive PermitType = "receive"
)

type CashMovementType string

const (
	CashMovementDeposit    CashMovementType = "deposit"
	CashMovementWithdrawal CashMovementType = "withdrawal"
)

type DepreciationMethod string

const (
	DepreciationStraightLine DepreciationMethod = "straight_line"
)

// DocumentType tags ledger artifacts with the document that generated them.
type DocumentType string

const (
	DocumentJournal             DocumentType = "journal"
	DocumentInvoice             DocumentType = "invoice"
	DocumentPayment             DocumentType = "payment"
	DocumentExpense             DocumentType = "expense"
	DocumentIncome              DocumentType = "income"
	DocumentCashMovement        DocumentType = "cash_movement"
	DocumentDepreciation        DocumentType = "depreciation"
	DocumentInventoryAdjustment DocumentType = "inventory_adjustment"
	DocumentStockTransfer       DocumentType = "stock_transfer"
	DocumentMoneyTransfer       DocumentType = "money_transfer"
	DocumentStorePermit         DocumentType = "store_permit"
	DocumentSafeOpening         DocumentType = "safe_opening"
	DocumentBankOpening         DocumentType = "bank_opening"
	DocumentContactOpening      DocumentType = "contact_opening"
)

type AuditAction string

const (
	AuditActionPost   AuditAction = "POST"
	AuditActionUnpost AuditAction = "UNPOST"
)

type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "PENDING"
	PublishStatusPublished PublishStatus = "PUBLISHED"
	PublishStatusFailed    PublishStatus = "FAILED"
	PublishStatusDead      PublishStatus = "DEAD"
)
