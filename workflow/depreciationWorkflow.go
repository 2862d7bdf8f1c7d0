package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

// PostDepreciation books the straight-line depreciation of an asset up to target.
// It returns nil without error when nothing is due.
func (p *Poster) PostDepreciation(ctx context.Context, assetId int, target time.Time) (*models.AssetDepreciation, error) {
	target = utils.TruncateDate(target)
	var result *models.AssetDepreciation
	err := p.locked(ctx, "Post depreciation", models.DocumentDepreciation, assetId, func(ctx context.Context, tx *gorm.DB) error {
		asset, err := utils.FetchModelForUpdate[models.FixedAsset](ctx, tx, assetId)
		if err != nil {
			return err
		}
		if !utils.DereferencePtr(asset.IsActive) {
			return nil
		}
		amount := asset.CalculateDepreciation(target)
		if amount.IsZero() {
			return nil
		}
		if err := EnforcePostingGate(ctx, tx, models.DocumentDepreciation, assetId, target); err != nil {
			return err
		}

		run, err := p.newRun(ctx, tx, models.DocumentDepreciation, asset.ID, target)
		if err != nil {
			return err
		}
		expenseAccount, err := run.account(asset.ExpenseAccountId)
		if err != nil {
			return err
		}
		accumulatedAccount, err := run.account(asset.AccumulatedAccountId)
		if err != nil {
			return err
		}
		run.journal.EntryNumber = fmt.Sprintf("DEP-%s-%s", asset.Code, target.Format("20060102"))
		run.journal.Description = fmt.Sprintf("depreciation of %s up to %s", asset.Name, target.Format("2006-01-02"))
		run.journal.Reference = asset.Code
		run.journal.Debit(expenseAccount, amount, "depreciation expense")
		run.journal.Credit(accumulatedAccount, amount, "accumulated depreciation")
		entryId, err := run.commitJournal()
		if err != nil {
			return err
		}

		row := models.AssetDepreciation{
			FixedAssetId:             asset.ID,
			DepreciationDate:         target,
			Amount:                   amount,
			ValueBefore:              asset.CurrentValue,
			ValueAfter:               asset.CurrentValue.Sub(amount),
			PreviousDepreciationDate: asset.LastDepreciationDate,
			JournalEntryId:           entryId,
		}
		if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(asset).UpdateColumns(map[string]interface{}{
			"current_value":          row.ValueAfter,
			"last_depreciation_date": target,
		}).Error; err != nil {
			return err
		}
		result = &row
		return nil
	})
	if err != nil {
		config.LogError(p.Logger, "DepreciationWorkflow.go", "PostDepreciation", "PostDepreciation", map[string]interface{}{"asset_id": assetId, "target": target}, err)
		return nil, err
	}
	return result, nil
}

// ReverseLastDepreciation undoes the most recent depreciation of an asset.
// It returns false when the asset was never depreciated.
func (p *Poster) ReverseLastDepreciation(ctx context.Context, assetId int) (bool, error) {
	reversed := false
	err := p.locked(ctx, "Reverse depreciation", models.DocumentDepreciation, assetId, func(ctx context.Context, tx *gorm.DB) error {
		asset, err := utils.FetchModelForUpdate[models.FixedAsset](ctx, tx, assetId)
		if err != nil {
			return err
		}
		last, err := models.LastAssetDepreciation(ctx, tx, asset.ID)
		if err != nil || last == nil {
			return err
		}
		if err := EnforcePostingGate(ctx, tx, models.DocumentDepreciation, assetId, last.DepreciationDate); err != nil {
			return err
		}
		if last.JournalEntryId != nil {
			if err := p.Engine.UnpostAndDelete(ctx, tx, *last.JournalEntryId); err != nil {
				return err
			}
		}
		if err := tx.WithContext(ctx).Model(asset).UpdateColumns(map[string]interface{}{
			"current_value":          asset.CurrentValue.Add(last.Amount),
			"last_depreciation_date": last.PreviousDepreciationDate,
		}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Delete(last).Error; err != nil {
			return err
		}
		reversed = true
		return nil
	})
	if err != nil {
		config.LogError(p.Logger, "DepreciationWorkflow.go", "ReverseLastDepreciation", "ReverseLastDepreciation", assetId, err)
		return false, err
	}
	return reversed, nil
}

// RunDepreciation depreciates every active asset up to target, one transaction per asset.
// A failing asset does not stop the others; the errors are joined.
func (p *Poster) RunDepreciation(ctx context.Context, target time.Time) ([]*models.AssetDepreciation, error) {
	ids, err := models.ActiveFixedAssetIds(ctx, p.DB.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	var (
		posted []*models.AssetDepreciation
		errs   []error
	)
	for _, id := range ids {
		row, err := p.PostDepreciation(ctx, id, target)
		if err != nil {
			errs = append(errs, fmt.Errorf("asset %d: %w", id, err))
			continue
		}
		if row != nil {
			posted = append(posted, row)
		}
	}
	return posted, errors.Join(errs...)
}
