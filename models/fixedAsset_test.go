package models_test

import (
	"testing"
	"time"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/shopspring/decimal"
)

func TestCalculateDepreciation(t *testing.T) {
	acquired := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		asset  models.FixedAsset
		target time.Time
		want   string
	}{
		{
			name:   "from acquisition",
			asset:  models.FixedAsset{AcquisitionDate: acquired, Cost: dec("3650"), UsefulLifeYears: 1, CurrentValue: dec("3650")},
			target: time.Date(2024, 1, 11, 15, 0, 0, 0, time.UTC),
			want:   "100",
		},
		{
			name:   "from last run, net of salvage",
			asset:  models.FixedAsset{AcquisitionDate: acquired, LastDepreciationDate: &last, Cost: dec("7450"), SalvageValue: dec("150"), UsefulLifeYears: 2, CurrentValue: dec("7000")},
			target: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
			want:   "50",
		},
		{
			name:   "capped at salvage",
			asset:  models.FixedAsset{AcquisitionDate: acquired, Cost: dec("3650"), SalvageValue: dec("50"), UsefulLifeYears: 1, CurrentValue: dec("80")},
			target: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			want:   "30",
		},
		{
			name:   "target before last run",
			asset:  models.FixedAsset{AcquisitionDate: acquired, LastDepreciationDate: &last, Cost: dec("3650"), UsefulLifeYears: 1, CurrentValue: dec("3000")},
			target: acquired,
			want:   "0",
		},
		{
			name:   "fully depreciated",
			asset:  models.FixedAsset{AcquisitionDate: acquired, Cost: dec("3650"), UsefulLifeYears: 1, CurrentValue: decimal.Zero},
			target: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			want:   "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, tt.asset.CalculateDepreciation(tt.target))
		})
	}
}
