package testutils

import (
	"os"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated database private to t.
// TEST_MYSQL_DSN runs against MySQL instead of in-memory SQLite; that database must be empty.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := config.GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	var dialector gorm.Dialector
	if dsn := strings.TrimSpace(os.Getenv("TEST_MYSQL_DSN")); dsn != "" {
		dsn, err := config.ReadCommittedDSN(dsn)
		if err != nil {
			t.Fatalf("test dsn: %v", err)
		}
		dialector = mysql.Open(dsn)
	} else {
		dialector = sqlite.Open("file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
