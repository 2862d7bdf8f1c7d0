package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"gorm.io/gorm"
)

func (p *Poster) CreateExpense(ctx context.Context, input *models.NewCashVoucher) (*models.Expense, error) {
	return createDocument[models.Expense](ctx, p, input.AutoPost, func(ctx context.Context, tx *gorm.DB) (*models.Expense, error) {
		return models.CreateExpense(ctx, tx, input)
	}, p.PostExpense)
}

func (p *Poster) DeleteExpense(ctx context.Context, id int) error {
	return deleteDocument[models.Expense](ctx, p, id, p.UnpostExpense, models.DeleteDraftExpense)
}

func (p *Poster) PostExpense(ctx context.Context, id int) (bool, error) {
	return postDocument[models.Expense](ctx, p, id, p.applyExpense)
}

func (p *Poster) UnpostExpense(ctx context.Context, id int) (bool, error) {
	return unpostDocument[models.Expense](ctx, p, id, nil)
}

// applyExpense: Dr expense (with cost center), Dr vat input, Cr cash for the total.
func (p *Poster) applyExpense(run *postingRun, e *models.Expense) error {
	ctx, tx := run.ctx, run.tx
	run.journal.Description = fmt.Sprintf("expense %s", e.ExpenseNumber)
	run.journal.Reference = e.ExpenseNumber

	owner, err := models.LoadCashOwner(ctx, tx, e.SafeId, e.BankId)
	if err != nil {
		return err
	}
	row, err := run.cashTransaction(owner, models.SafeTransactionExpense, e.TotalAmount, e.ExpenseNumber)
	if err != nil {
		config.LogError(p.Logger, "ExpenseWorkflow.go", "applyExpense", "cashTransaction", e.ID, err)
		return err
	}
	if err := models.SetArtifactRef[models.Expense](ctx, tx, e.ID, "safe_transaction_id", row.ID); err != nil {
		return err
	}

	cashAccount, err := owner.Account(ctx, tx)
	if err != nil {
		return err
	}
	category, err := models.ExpenseCategoryAccount(ctx, tx, e.CategoryId)
	if err != nil {
		return err
	}
	run.journal.Debit(models.FirstAccount(category, run.defaults.DefaultExpense), e.Amount, "expense", withCostCenter(e.CostCenterId))
	run.journal.Debit(run.defaults.VatInput, e.VatAmount, "vat input", withVat(e.VatAmount, e.VatRate))
	run.journal.Credit(cashAccount, e.TotalAmount, "cash")
	return nil
}

func (p *Poster) CreateIncome(ctx context.Context, input *models.NewCashVoucher) (*models.Income, error) {
	return createDocument[models.Income](ctx, p, input.AutoPost, func(ctx context.Context, tx *gorm.DB) (*models.Income, error) {
		return models.CreateIncome(ctx, tx, input)
	}, p.PostIncome)
}

func (p *Poster) DeleteIncome(ctx context.Context, id int) error {
	return deleteDocument[models.Income](ctx, p, id, p.UnpostIncome, models.DeleteDraftIncome)
}

func (p *Poster) PostIncome(ctx context.Context, id int) (bool, error) {
	return postDocument[models.Income](ctx, p, id, p.applyIncome)
}

func (p *Poster) UnpostIncome(ctx context.Context, id int) (bool, error) {
	return unpostDocument[models.Income](ctx, p, id, nil)
}

// applyIncome: Dr cash for the total, Cr income (with cost center), Cr vat output.
func (p *Poster) applyIncome(run *postingRun, in *models.Income) error {
	ctx, tx := run.ctx, run.tx
	run.journal.Description = fmt.Sprintf("income %s", in.IncomeNumber)
	run.journal.Reference = in.IncomeNumber

	owner, err := models.LoadCashOwner(ctx, tx, in.SafeId, in.BankId)
	if err != nil {
		return err
	}
	row, err := run.cashTransaction(owner, models.SafeTransactionIncome, in.TotalAmount, in.IncomeNumber)
	if err != nil {
		config.LogError(p.Logger, "ExpenseWorkflow.go", "applyIncome", "cashTransaction", in.ID, err)
		return err
	}
	if err := models.SetArtifactRef[models.Income](ctx, tx, in.ID, "safe_transaction_id", row.ID); err != nil {
		return err
	}

	cashAccount, err := owner.Account(ctx, tx)
	if err != nil {
		return err
	}
	category, err := models.IncomeCategoryAccount(ctx, tx, in.CategoryId)
	if err != nil {
		return err
	}
	run.journal.Debit(cashAccount, in.TotalAmount, "cash")
	run.journal.Credit(models.FirstAccount(category, run.defaults.DefaultIncome), in.Amount, "income", withCostCenter(in.CostCenterId))
	run.journal.Credit(run.defaults.VatOutput, in.VatAmount, "vat output", withVat(in.VatAmount, in.VatRate))
	return nil
}
