package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

func (p *Poster) CreateInventoryAdjustment(ctx context.Context, input *models.NewInventoryAdjustment) (*models.InventoryAdjustment, error) {
	return createDocument[models.InventoryAdjustment](ctx, p, input.AutoPost, func(ctx context.Context, tx *gorm.DB) (*models.InventoryAdjustment, error) {
		return models.CreateInventoryAdjustment(ctx, tx, input)
	}, p.PostInventoryAdjustment)
}

func (p *Poster) DeleteInventoryAdjustment(ctx context.Context, id int) error {
	return deleteDocument[models.InventoryAdjustment](ctx, p, id, p.UnpostInventoryAdjustment, models.DeleteDraftInventoryAdjustment)
}

func (p *Poster) PostInventoryAdjustment(ctx context.Context, id int) (bool, error) {
	return postDocument[models.InventoryAdjustment](ctx, p, id, p.applyInventoryAdjustment)
}

func (p *Poster) UnpostInventoryAdjustment(ctx context.Context, id int) (bool, error) {
	return unpostDocument[models.InventoryAdjustment](ctx, p, id, nil)
}

// applyInventoryAdjustment values the quantity at the unit purchase price against COGS.
func (p *Poster) applyInventoryAdjustment(run *postingRun, a *models.InventoryAdjustment) error {
	ctx, tx := run.ctx, run.tx
	run.journal.Description = fmt.Sprintf("inventory %s %s", a.AdjustmentType, a.AdjustmentNumber)
	run.journal.Reference = a.AdjustmentNumber

	unit, err := models.GetProductUnit(ctx, tx, a.ProductId, a.ProductUnitId)
	if err != nil {
		return err
	}
	row, err := run.productTransaction(a.ProductId, a.StoreId, a.ProductUnitId, models.ProductTransactionAdjustment, a.SignedQuantity(), unit.PurchasePrice, a.AdjustmentNumber)
	if err != nil {
		config.LogError(p.Logger, "InventoryAdjustmentWorkflow.go", "applyInventoryAdjustment", "productTransaction", a.ID, err)
		return err
	}
	if err := models.SetArtifactRef[models.InventoryAdjustment](ctx, tx, a.ID, "product_transaction_id", row.ID); err != nil {
		return err
	}

	store, err := utils.FetchModel[models.Store](ctx, tx, a.StoreId)
	if err != nil {
		return err
	}
	storeAccount, err := run.account(store.AccountId)
	if err != nil {
		return err
	}
	categoryCogs, err := models.ProductCogsAccount(ctx, tx, a.ProductId)
	if err != nil {
		return err
	}
	cogsAccount := models.FirstAccount(categoryCogs, run.defaults.Cogs)

	// signed value: a decrease flips both lines
	value := unit.CostOf(a.SignedQuantity())
	run.journal.Debit(storeAccount, value, "inventory")
	run.journal.Credit(cogsAccount, value, "cost of goods sold")
	return nil
}
