package config

import (
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCommittedDSN(t *testing.T) {
	dsn, err := ReadCommittedDSN("ledger:secret@tcp(db:3306)/ledger?multiStatements=true&parseTime=true&loc=UTC")
	require.NoError(t, err)

	cfg, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "'READ-COMMITTED'", cfg.Params["transaction_isolation"])
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.MultiStatements)
	assert.Equal(t, "ledger", cfg.DBName)

	_, err = ReadCommittedDSN("not a dsn")
	assert.Error(t, err)
}
