package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Income is money received into a safe or bank against an income category.
type Income struct {
	ID                int             `gorm:"primary_key" json:"id"`
	IncomeNumber      string          `gorm:"size:50;uniqueIndex;not null" json:"income_number"`
	IncomeDate        time.Time       `gorm:"not null;index" json:"income_date"`
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

func (i *Income) GetId() int                 { return i.ID }
func (i *Income) DocumentType() DocumentType { return DocumentIncome }
func (i *Income) DocumentDate() time.Time    { return i.IncomeDate }
func (i *Income) ArtifactColumns() []string  { return []string{"safe_transaction_id"} }

func (i *Income) CheckTransactionLock(ctx context.Context, tx *gorm.DB) error {
	return CheckPeriodLock(ctx, tx, i.IncomeDate)
}

func CreateIncome(ctx context.Context, tx *gorm.DB, input *NewCashVoucher) (*Income, error) {
	if err := input.validate(ctx, tx); err != nil {
		return nil, err
	}
	if err := utils.ValidateOptionalResourceId[IncomeCategory](ctx, tx, input.CategoryId, "income category"); err != nil {
		return nil, err
	}
	if input.Number != "" {
		if err := utils.ValidateUnique[Income](ctx, tx, "income_number", input.Number, 0); err != nil {
			return nil, err
		}
	}

	vat, total := input.amounts()
	income := Income{
		IncomeNumber: input.Number,
		IncomeDate:   input.Date.UTC(),
		CategoryId:   input.CategoryId,
		CostCenterId: input.CostCenterId,
		SafeId:       input.SafeId,
		BankId:       input.BankId,
		Amount:       input.Amount,
		VatRate:      input.VatRate,
		VatAmount:    vat,
		TotalAmount:  total,
		Description:  input.Description,
	}
	if income.IncomeNumber == "" {
		var err error
		if income.IncomeNumber, err = nextDocumentNumber[Income](ctx, tx, "INC"); err != nil {
			return nil, err
		}
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		income.CreatedBy = &userId
	}
	if err := tx.WithContext(ctx).Create(&income).Error; err != nil {
		return nil, err
	}
	return &income, nil
}

func DeleteDraftIncome(ctx context.Context, tx *gorm.DB, id int) error {
	income, err := utils.FetchModelForUpdate[Income](ctx, tx, id)
	if err != nil {
		return err
	}
	if err := guardDraftDocument(ctx, tx, income); err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(income).Error
}
