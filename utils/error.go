package utils

import (
	"errors"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrorRecordNotFound = errors.New("record not found")

// IsRecordNotFound matches both our sentinel and gorm's.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKeyErr reports a unique index violation (MySQL 1062, or SQLite in tests).
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
