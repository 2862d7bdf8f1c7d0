package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Expense is money paid out of a safe or bank against an expense category.
type Expense struct {
	ID                int             `gorm:"primary_key" json:"id"`
	ExpenseNumber     string          `gorm:"size:50;uniqueIndex;not null" json:"expense_number"`
	ExpenseDate       time.Time       `gorm:"not null;index" json:"expense_date"`
	CategoryId        *int            `gorm:"index" json:"category_id"`
	CostCenterId      *int            `gorm:"index" json:"cost_center_id"`
	SafeId            *int            `gorm:"index" json:"safe_id"`
	BankId            *int            `gorm:"index" json:"bank_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	VatRate           decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"vat_rate"`
	VatAmount         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"vat_amount"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	Description       string          `gorm:"type:text" json:"description"`
	SafeTransactionId *int            `json:"safe_transaction_id"`
	PostingState
	CreatedBy *int      `json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewCashVoucher is the input of both expenses and incomes.
type NewCashVoucher struct {
	Number       string           `json:"number" validate:"max=50"`
	Date         time.Time        `json:"date" validate:"required"`
	CategoryId   *int             `json:"category_id"`
	CostCenterId *int             `json:"cost_center_id"`
	SafeId       *int             `json:"safe_id"`
	BankId       *int             `json:"bank_id"`
	Amount       decimal.Decimal  `json:"amount"`
	VatRate      decimal.Decimal  `json:"vat_rate"`
	VatAmount    *decimal.Decimal `json:"vat_amount"`
	Description  string           `json:"description"`
	AutoPost     bool             `json:"auto_post"`
}

func (e *Expense) GetId() int                 { return e.ID }
func (e *Expense) DocumentType() DocumentType { return DocumentExpense }
func (e *Expense) DocumentDate() time.Time    { return e.ExpenseDate }
func (e *Expense) ArtifactColumns() []string  { return []string{"safe_transaction_id"} }

func (e *Expense) CheckTransactionLock(ctx context.Context, tx *gorm.DB) error {
	return CheckPeriodLock(ctx, tx, e.ExpenseDate)
}

func (input *NewCashVoucher) validate(ctx context.Context, tx *gorm.DB) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	if input.VatRate.IsNegative() || (input.VatAmount != nil && input.VatAmount.IsNegative()) {
		return errors.New("vat cannot be negative")
	}
	if _, err := LoadCashOwner(ctx, tx, input.SafeId, input.BankId); err != nil {
		return err
	}
	if err := utils.ValidateOptionalResourceId[CostCenter](ctx, tx, input.CostCenterId, "cost center"); err != nil {
		return err
	}
	return CheckPeriodLock(ctx, tx, input.Date)
}

// amounts derives vat from the rate unless it was given explicitly.
func (input *NewCashVoucher) amounts() (vat decimal.Decimal, total decimal.Decimal) {
	if input.VatAmount != nil {
		vat = utils.RoundMoney(*input.VatAmount)
	} else {
		vat = utils.PercentOf(input.Amount, input.VatRate)
	}
	return vat, input.Amount.Add(vat)
}

func CreateExpense(ctx context.Context, tx *gorm.DB, input *NewCashVoucher) (*Expense, error) {
	if err := input.validate(ctx, tx); err != nil {
		return nil, err
	}
	if err := utils.ValidateOptionalResourceId[ExpenseCategory](ctx, tx, input.CategoryId, "expense category"); err != nil {
		return nil, err
	}
	if input.Number != "" {
		if err := utils.ValidateUnique[Expense](ctx, tx, "expense_number", input.Number, 0); err != nil {
			return nil, err
		}
	}

	vat, total := input.amounts()
	expense := Expense{
		ExpenseNumber: input.Number,
		ExpenseDate:   input.Date.UTC(),
		CategoryId:    input.CategoryId,
		CostCenterId:  input.CostCenterId,
		SafeId:        input.SafeId,
		BankId:        input.BankId,
		Amount:        input.Amount,
		VatRate:       input.VatRate,
		VatAmount:     vat,
		TotalAmount:   total,
		Description:   input.Description,
	}
	if expense.ExpenseNumber == "" {
		var err error
		if expense.ExpenseNumber, err = nextDocumentNumber[Expense](ctx, tx, "EXP"); err != nil {
			return nil, err
		}
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		expense.CreatedBy = &userId
	}
	if err := tx.WithContext(ctx).Create(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func DeleteDraftExpense(ctx context.Context, tx *gorm.DB, id int) error {
	expense, err := utils.FetchModelForUpdate[Expense](ctx, tx, id)
	if err != nil {
		return err
	}
	if err := guardDraftDocument(ctx, tx, expense); err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(expense).Error
}
