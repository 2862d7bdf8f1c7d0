package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"gorm.io/gorm"
)

func (p *Poster) CreateMoneyTransfer(ctx context.Context, input *models.NewMoneyTransfer) (*models.MoneyTransfer, error) {
	return createDocument[models.MoneyTransfer](ctx, p, input.AutoPost, func(ctx context.Context, tx *gorm.DB) (*models.MoneyTransfer, error) {
		return models.CreateMoneyTransfer(ctx, tx, input)
	}, p.PostMoneyTransfer)
}

func (p *Poster) DeleteMoneyTransfer(ctx context.Context, id int) error {
	return deleteDocument[models.MoneyTransfer](ctx, p, id, p.UnpostMoneyTransfer, models.DeleteDraftMoneyTransfer)
}

func (p *Poster) PostMoneyTransfer(ctx context.Context, id int) (bool, error) {
	return postDocument[models.MoneyTransfer](ctx, p, id, p.applyMoneyTransfer)
}

func (p *Poster) UnpostMoneyTransfer(ctx context.Context, id int) (bool, error) {
	return unpostDocument[models.MoneyTransfer](ctx, p, id, nil)
}

func (p *Poster) applyMoneyTransfer(run *postingRun, t *models.MoneyTransfer) error {
	ctx, tx := run.ctx, run.tx
	run.journal.Description = fmt.Sprintf("money transfer %s", t.TransferNumber)
	run.journal.Reference = t.TransferNumber

	from, to, err := t.Ends(ctx, tx)
	if err != nil {
		return err
	}
	out, err := run.cashTransaction(from, models.SafeTransactionWithdrawal, t.Amount, t.TransferNumber)
	if err != nil {
		config.LogError(p.Logger, "MoneyTransferWorkflow.go", "applyMoneyTransfer", "cashTransaction out", t.ID, err)
		return err
	}
	in, err := run.cashTransaction(to, models.SafeTransactionDeposit, t.Amount, t.TransferNumber)
	if err != nil {
		config.LogError(p.Logger, "MoneyTransferWorkflow.go", "applyMoneyTransfer", "cashTransaction in", t.ID, err)
		return err
	}
	if err := models.SetArtifactRef[models.MoneyTransfer](ctx, tx, t.ID, "out_transaction_id", out.ID); err != nil {
		return err
	}
	if err := models.SetArtifactRef[models.MoneyTransfer](ctx, tx, t.ID, "in_transaction_id", in.ID); err != nil {
		return err
	}

	fromAccount, err := from.Account(ctx, tx)
	if err != nil {
		return err
	}
	toAccount, err := to.Account(ctx, tx)
	if err != nil {
		return err
	}
	run.journal.Debit(toAccount, t.Amount, to.Name)
	run.journal.Credit(fromAccount, t.Amount, from.Name)
	return nil
}
