package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

// FinancialPeriod is an immutable date range; only its closed flag changes.
type FinancialPeriod struct {
	ID        int        `gorm:"primary_key" json:"id"`
	Name      string     `gorm:"size:100;not null" json:"name"`
	StartDate time.Time  `gorm:"not null;index" json:"start_date"`
	EndDate   time.Time  `gorm:"not null;index" json:"end_date"`
	IsClosed  bool       `gorm:"not null;default:false;index" json:"is_closed"`
	ClosedAt  *time.Time `json:"closed_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFinancialPeriod struct {
	Name      string    `json:"name" validate:"required,max=100"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	IsClosed  bool      `json:"is_closed"`
}

// Contains compares calendar dates, so any time of day on the end date is inside.
func (p *FinancialPeriod) Contains(d time.Time) bool {
	day := utils.TruncateDate(d)
	return !day.Before(utils.TruncateDate(p.StartDate)) && !day.After(utils.TruncateDate(p.EndDate))
}

func (p *FinancialPeriod) overlaps(start, end time.Time) bool {
	return !utils.TruncateDate(end).Before(utils.TruncateDate(p.StartDate)) &&
		!utils.TruncateDate(start).After(utils.TruncateDate(p.EndDate))
}

func CreateFinancialPeriod(ctx context.Context, tx *gorm.DB, input *NewFinancialPeriod) (*FinancialPeriod, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	start := utils.TruncateDate(input.StartDate)
	end := utils.TruncateDate(input.EndDate)
	if end.Before(start) {
		return nil, errors.New("period end date is before its start date")
	}

	var existing []FinancialPeriod
	if err := tx.WithContext(ctx).Find(&existing).Error; err != nil {
		return nil, err
	}
	for _, p := range existing {
		if p.overlaps(start, end) {
			return nil, fmt.Errorf("period overlaps %q", p.Name)
		}
	}

	period := FinancialPeriod{
		Name:      input.Name,
		StartDate: start,
		EndDate:   end,
		IsClosed:  input.IsClosed,
	}
	if input.IsClosed {
		now := time.Now().UTC()
		period.ClosedAt = &now
	}
	if err := tx.WithContext(ctx).Create(&period).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

func CloseFinancialPeriod(ctx context.Context, tx *gorm.DB, id int) (*FinancialPeriod, error) {
	return setPeriodClosed(ctx, tx, id, true)
}

func ReopenFinancialPeriod(ctx context.Context, tx *gorm.DB, id int) (*FinancialPeriod, error) {
	return setPeriodClosed(ctx, tx, id, false)
}

func setPeriodClosed(ctx context.Context, tx *gorm.DB, id int, closed bool) (*FinancialPeriod, error) {
	period, err := utils.FetchModelForUpdate[FinancialPeriod](ctx, tx, id)
	if err != nil {
		return nil, err
	}
	var closedAt *time.Time
	if closed {
		now := time.Now().UTC()
		closedAt = &now
	}
	if err := tx.WithContext(ctx).Model(period).Updates(map[string]interface{}{
		"is_closed": closed,
		"closed_at": closedAt,
	}).Error; err != nil {
		return nil, err
	}
	period.IsClosed = closed
	period.ClosedAt = closedAt
	return period, nil
}

// IsDateLocked is true inside any closed period, or on/before the settings lock date.
func IsDateLocked(ctx context.Context, tx *gorm.DB, date time.Time) (bool, error) {
	var closed []FinancialPeriod
	if err := tx.WithContext(ctx).Where("is_closed = ?", true).Find(&closed).Error; err != nil {
		return false, err
	}
	for i := range closed {
		if closed[i].Contains(date) {
			return true, nil
		}
	}

	lockDate, err := storedLockDate(ctx, tx)
	if err != nil {
		return false, err
	}
	if lockDate != nil && !utils.TruncateDate(date).After(utils.TruncateDate(*lockDate)) {
		return true, nil
	}
	return false, nil
}

// CheckPeriodLock returns an error wrapping ErrPeriodLocked when date may not be mutated.
func CheckPeriodLock(ctx context.Context, tx *gorm.DB, date time.Time) error {
	locked, err := IsDateLocked(ctx, tx, date)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("%s: %w", date.Format("2006-01-02"), ErrPeriodLocked)
	}
	return nil
}
