package utils

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ModelChangeLocker interface {
	CheckTransactionLock(ctx context.Context, tx *gorm.DB) error
}

/* DB fetching */

// fetch model from db
// (may return RecordNotFound)
func FetchModel[T any](ctx context.Context, tx *gorm.DB, id int, associations ...string) (*T, error) {
	q := tx.WithContext(ctx)
	for _, field := range associations {
		q = q.Preload(field)
	}
	var result T
	if err := q.First(&result, id).Error; err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// fetch model with a row lock held until tx ends
// (SELECT ... FOR UPDATE, may return RecordNotFound)
func FetchModelForUpdate[T any](ctx context.Context, tx *gorm.DB, id int, associations ...string) (*T, error) {
	q := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	for _, field := range associations {
		q = q.Preload(field)
	}
	var result T
	if err := q.First(&result, id).Error; err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// fetch model and check if model is locked by transaction date
func FetchModelForChange[T any, PT interface {
	*T
	ModelChangeLocker
}](ctx context.Context, tx *gorm.DB, id int, associations ...string) (*T, error) {
	result, err := FetchModelForUpdate[T](ctx, tx, id, associations...)
	if err != nil {
		return nil, err
	}
	if err := PT(result).CheckTransactionLock(ctx, tx); err != nil {
		return nil, err
	}
	return result, nil
}
