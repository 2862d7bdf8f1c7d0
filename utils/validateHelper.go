package utils

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// check if id exists, return RecordNotFound Error
func ValidateResourceId[T any](ctx context.Context, tx *gorm.DB, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, tx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// optional foreign key, nil passes
func ValidateOptionalResourceId[T any](ctx context.Context, tx *gorm.DB, id *int, name string) error {
	if id == nil {
		return nil
	}
	if err := ValidateResourceId[T](ctx, tx, *id); err != nil {
		return fmt.Errorf("%s %d: %w", name, *id, err)
	}
	return nil
}

// exceptId = 0 for create
func ValidateUnique[T any](ctx context.Context, tx *gorm.DB, column string, value interface{}, exceptId int) error {
	var (
		count int64
		err   error
	)
	if exceptId == 0 {
		count, err = ResourceCountWhere[T](ctx, tx, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, tx, column+" = ? AND id <> ?", value, exceptId)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("duplicate %s %v", column, value)
	}
	return nil
}

func ResourceCountWhere[T any](ctx context.Context, tx *gorm.DB, condition string, values ...interface{}) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(new(T)).Where(condition, values...).Count(&count).Error
	return count, err
}
