package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func (p *Poster) CreateStorePermit(ctx context.Context, input *models.NewStorePermit) (*models.StorePermit, error) {
	return createDocument[models.StorePermit](ctx, p, input.AutoPost, func(ctx context.Context, tx *gorm.DB) (*models.StorePermit, error) {
		return models.CreateStorePermit(ctx, tx, input)
	}, p.PostStorePermit, "Items")
}

func (p *Poster) DeleteStorePermit(ctx context.Context, id int) error {
	return deleteDocument[models.StorePermit](ctx, p, id, p.UnpostStorePermit, models.DeleteDraftStorePermit)
}

func (p *Poster) PostStorePermit(ctx context.Context, id int) (bool, error) {
	return postDocument[models.StorePermit](ctx, p, id, p.applyStorePermit, "Items")
}

func (p *Poster) UnpostStorePermit(ctx context.Context, id int) (bool, error) {
	return unpostDocument[models.StorePermit](ctx, p, id, func(run *postingRun, permit *models.StorePermit) error {
		return models.ClearStorePermitItemRefs(run.ctx, run.tx, permit.ID)
	})
}

// applyStorePermit moves stock per item; receipts are valued against purchases, issues against COGS.
func (p *Poster) applyStorePermit(run *postingRun, permit *models.StorePermit) error {
	ctx, tx := run.ctx, run.tx
	run.journal.Description = fmt.Sprintf("store %s permit %s", permit.PermitType, permit.PermitNumber)
	run.journal.Reference = permit.PermitNumber

	store, err := utils.FetchModel[models.Store](ctx, tx, permit.StoreId)
	if err != nil {
		return err
	}
	storeAccount, err := run.account(store.AccountId)
	if err != nil {
		return err
	}

	total := decimal.Zero
	var cogs []cogsLine
	for i := range permit.Items {
		item := &permit.Items[i]
		unit, err := models.GetProductUnit(ctx, tx, item.ProductId, item.ProductUnitId)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		row, err := run.productTransaction(item.ProductId, permit.StoreId, item.ProductUnitId, permit.ProductTransactionType(), item.Quantity, unit.PurchasePrice, permit.PermitNumber)
		if err != nil {
			config.LogError(p.Logger, "StorePermitWorkflow.go", "applyStorePermit", "productTransaction", item, err)
			return err
		}
		if err := models.SetArtifactRef[models.StorePermitItem](ctx, tx, item.ID, "product_transaction_id", row.ID); err != nil {
			return err
		}

		value := unit.CostOf(item.Quantity)
		total = total.Add(value)
		if permit.PermitType == models.PermitTypeIssue {
			categoryCogs, err := models.ProductCogsAccount(ctx, tx, item.ProductId)
			if err != nil {
				return err
			}
			cogs = append(cogs, cogsLine{account: models.FirstAccount(categoryCogs, run.defaults.Cogs), amount: value})
		}
	}
	if err := tx.WithContext(ctx).Model(permit).UpdateColumn("total_value", total).Error; err != nil {
		return err
	}
	if !total.IsPositive() {
		return nil
	}

	if permit.PermitType == models.PermitTypeReceive {
		run.journal.Debit(storeAccount, total, "inventory")
		run.journal.Credit(run.defaults.Purchases, total, "purchases")
		return nil
	}
	for _, line := range cogs {
		run.journal.Debit(line.account, line.amount, "cost of goods sold")
	}
	run.journal.Credit(storeAccount, total, "inventory")
	return nil
}
