package workflow

import (
	"context"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"gorm.io/gorm"
)

// UpdateSettings saves the settings in their own transaction and drops the cached copy after commit.
func (p *Poster) UpdateSettings(ctx context.Context, input *models.NewSystemSettings) (*models.SystemSettings, error) {
	var settings *models.SystemSettings
	err := p.transaction(ctx, "Update settings", nil, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		settings, err = models.UpdateSystemSettings(ctx, tx, input)
		return err
	})
	if err != nil {
		config.LogError(p.Logger, "SettingsWorkflow.go", "UpdateSettings", "UpdateSystemSettings", input, err)
		return nil, err
	}
	if err := models.InvalidateSettingsCache(ctx); err != nil {
		config.LogWarning(p.Logger, "SettingsWorkflow.go", "UpdateSettings", "settings cache not invalidated", err.Error())
	}
	return settings, nil
}
