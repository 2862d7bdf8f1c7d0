package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"gorm.io/gorm"
)

func (p *Poster) CreateCashMovement(ctx context.Context, input *models.NewCashMovement) (*models.CashMovement, error) {
	return createDocument[models.CashMovement](ctx, p, input.AutoPost, func(ctx context.Context, tx *gorm.DB) (*models.CashMovement, error) {
		return models.CreateCashMovement(ctx, tx, input)
	}, p.PostCashMovement)
}

func (p *Poster) DeleteCashMovement(ctx context.Context, id int) error {
	return deleteDocument[models.CashMovement](ctx, p, id, p.UnpostCashMovement, models.DeleteDraftCashMovement)
}

func (p *Poster) PostCashMovement(ctx context.Context, id int) (bool, error) {
	return postDocument[models.CashMovement](ctx, p, id, p.applyCashMovement)
}

func (p *Poster) UnpostCashMovement(ctx context.Context, id int) (bool, error) {
	return unpostDocument[models.CashMovement](ctx, p, id, nil)
}

// applyCashMovement journals only when a counter account is set.
func (p *Poster) applyCashMovement(run *postingRun, m *models.CashMovement) error {
	ctx, tx := run.ctx, run.tx
	run.journal.Description = fmt.Sprintf("%s %s", m.MovementType, m.MovementNumber)
	run.journal.Reference = m.MovementNumber

	owner, err := models.LoadCashOwner(ctx, tx, m.SafeId, m.BankId)
	if err != nil {
		return err
	}
	row, err := run.cashTransaction(owner, m.SafeTransactionType(), m.Amount, m.MovementNumber)
	if err != nil {
		config.LogError(p.Logger, "CashMovementWorkflow.go", "applyCashMovement", "cashTransaction", m.ID, err)
		return err
	}
	if err := models.SetArtifactRef[models.CashMovement](ctx, tx, m.ID, "safe_transaction_id", row.ID); err != nil {
		return err
	}
	if m.CounterAccountId == nil {
		return nil
	}

	cashAccount, err := owner.Account(ctx, tx)
	if err != nil {
		return err
	}
	counter, err := run.account(m.CounterAccountId)
	if err != nil {
		return err
	}
	if m.MovementType == models.CashMovementDeposit {
		run.journal.Debit(cashAccount, m.Amount, "cash")
		run.journal.Credit(counter, m.Amount, "counter account")
	} else {
		run.journal.Debit(counter, m.Amount, "counter account")
		run.journal.Credit(cashAccount, m.Amount, "cash")
	}
	return nil
}
