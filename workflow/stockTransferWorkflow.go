package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

func (p *Poster) CreateStockTransfer(ctx context.Context, input *models.NewStockTransfer) (*models.StockTransfer, error) {
	return createDocument[models.StockTransfer](ctx, p, input.AutoPost, func(ctx context.Context, tx *gorm.DB) (*models.StockTransfer, error) {
		return models.CreateStockTransfer(ctx, tx, input)
	}, p.PostStockTransfer)
}

func (p *Poster) DeleteStockTransfer(ctx context.Context, id int) error {
	return deleteDocument[models.StockTransfer](ctx, p, id, p.UnpostStockTransfer, models.DeleteDraftStockTransfer)
}

func (p *Poster) PostStockTransfer(ctx context.Context, id int) (bool, error) {
	return postDocument[models.StockTransfer](ctx, p, id, p.applyStockTransfer)
}

func (p *Poster) UnpostStockTransfer(ctx context.Context, id int) (bool, error) {
	return unpostDocument[models.StockTransfer](ctx, p, id, nil)
}

// applyStockTransfer journals only between two different store accounts.
func (p *Poster) applyStockTransfer(run *postingRun, t *models.StockTransfer) error {
	ctx, tx := run.ctx, run.tx
	run.journal.Description = fmt.Sprintf("stock transfer %s", t.TransferNumber)
	run.journal.Reference = t.TransferNumber

	unit, err := models.GetProductUnit(ctx, tx, t.ProductId, t.ProductUnitId)
	if err != nil {
		return err
	}
	out, err := run.productTransaction(t.ProductId, t.FromStoreId, t.ProductUnitId, models.ProductTransactionTransferOut, t.Quantity, unit.PurchasePrice, t.TransferNumber)
	if err != nil {
		config.LogError(p.Logger, "StockTransferWorkflow.go", "applyStockTransfer", "productTransaction out", t.ID, err)
		return err
	}
	in, err := run.productTransaction(t.ProductId, t.ToStoreId, t.ProductUnitId, models.ProductTransactionTransferIn, t.Quantity, unit.PurchasePrice, t.TransferNumber)
	if err != nil {
		config.LogError(p.Logger, "StockTransferWorkflow.go", "applyStockTransfer", "productTransaction in", t.ID, err)
		return err
	}
	if err := models.SetArtifactRef[models.StockTransfer](ctx, tx, t.ID, "out_transaction_id", out.ID); err != nil {
		return err
	}
	if err := models.SetArtifactRef[models.StockTransfer](ctx, tx, t.ID, "in_transaction_id", in.ID); err != nil {
		return err
	}

	from, err := utils.FetchModel[models.Store](ctx, tx, t.FromStoreId)
	if err != nil {
		return err
	}
	to, err := utils.FetchModel[models.Store](ctx, tx, t.ToStoreId)
	if err != nil {
		return err
	}
	if from.AccountId == nil || to.AccountId == nil || *from.AccountId == *to.AccountId {
		return nil
	}
	fromAccount, err := run.account(from.AccountId)
	if err != nil {
		return err
	}
	toAccount, err := run.account(to.AccountId)
	if err != nil {
		return err
	}
	value := unit.CostOf(t.Quantity)
	run.journal.Debit(toAccount, value, to.Name)
	run.journal.Credit(fromAccount, value, from.Name)
	return nil
}
