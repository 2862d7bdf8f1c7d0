package workflow_test

import (
	"testing"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupChartOfAccountsIsIdempotent(t *testing.T) {
	f := newLedgerFixture(t)

	created, err := f.poster.SetupChartOfAccounts(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, created)

	settings, err := models.GetSystemSettings(f.ctx, f.db)
	require.NoError(t, err)
	sales, err := models.GetAccountByCode(f.ctx, f.db, "41")
	require.NoError(t, err)
	require.NotNil(t, settings.SalesAccountId)
	assert.Equal(t, sales.ID, *settings.SalesAccountId)
	requireDecimal(t, "5", settings.VatPercentage)

	root, err := models.GetAccountByCode(f.ctx, f.db, "1")
	require.NoError(t, err)
	assert.False(t, root.IsPostable(), "group accounts take no lines")
}

func TestCreateLinkedAccountNumbering(t *testing.T) {
	f := newLedgerFixture(t)

	second := f.linkedAccount(workflow.LinkedAccountSafe, "Second Safe")
	third := f.linkedAccount(workflow.LinkedAccountSafe, "Third Safe")
	assert.Equal(t, "111002", second.Code)
	assert.Equal(t, "111003", third.Code)
	assert.Equal(t, models.AccountTypeAsset, second.AccountType)

	supplier := f.linkedAccount(workflow.LinkedAccountSupplier, "Other Supplier")
	assert.Equal(t, "211002", supplier.Code)
	assert.Equal(t, models.AccountTypeLiability, supplier.AccountType)
}
