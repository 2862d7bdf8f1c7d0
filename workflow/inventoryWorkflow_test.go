package workflow_test

import (
	"testing"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/mmdatafocus/ledger_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *ledgerFixture) storePermit(permitType models.PermitType, qty int64) *models.StorePermit {
	f.t.Helper()
	permit, err := f.poster.CreateStorePermit(f.ctx, &models.NewStorePermit{
		PermitType: permitType,
		PermitDate: postingDate,
		StoreId:    f.store.ID,
		Items: []models.NewStorePermitItem{{
			ProductId:     f.product.ID,
			ProductUnitId: f.unit.ID,
			Quantity:      decimal.NewFromInt(qty),
		}},
	})
	require.NoError(f.t, err)
	return permit
}

func TestStorePermitReceiveAndIssue(t *testing.T) {
	f := newLedgerFixture(t)

	receive := f.storePermit(models.PermitTypeReceive, 5)
	posted, err := f.poster.PostStorePermit(f.ctx, receive.ID)
	require.NoError(t, err)
	require.True(t, posted)
	requireDecimal(t, "300", f.accountBalance("113001"))
	requireDecimal(t, "-300", f.accountBalance("53"), "purchases credited")
	requireDecimal(t, "15", f.reloadProduct().CurrentBalance)

	issue := f.storePermit(models.PermitTypeIssue, 3)
	posted, err = f.poster.PostStorePermit(f.ctx, issue.ID)
	require.NoError(t, err)
	require.True(t, posted)
	requireDecimal(t, "120", f.accountBalance("113001"))
	requireDecimal(t, "180", f.accountBalance("51"))
	requireDecimal(t, "12", f.reloadProduct().CurrentBalance)

	stored, err := utils.FetchModel[models.StorePermit](f.ctx, f.db, issue.ID, "Items")
	require.NoError(t, err)
	requireDecimal(t, "180", stored.TotalValue)
	require.NotNil(t, stored.Items[0].ProductTransactionId)
	f.assertLedgerHealthy()

	unposted, err := f.poster.UnpostStorePermit(f.ctx, issue.ID)
	require.NoError(t, err)
	require.True(t, unposted)
	requireDecimal(t, "300", f.accountBalance("113001"))
	requireDecimal(t, "0", f.accountBalance("51"))
	requireDecimal(t, "15", f.reloadProduct().CurrentBalance)

	stored, err = utils.FetchModel[models.StorePermit](f.ctx, f.db, issue.ID, "Items")
	require.NoError(t, err)
	assert.Nil(t, stored.Items[0].ProductTransactionId)

	require.NoError(t, f.poster.DeleteStorePermit(f.ctx, receive.ID))
	requireDecimal(t, "0", f.accountBalance("113001"))
	requireDecimal(t, "10", f.reloadProduct().CurrentBalance)
	f.assertLedgerHealthy()
}

func TestInventoryAdjustmentDecrease(t *testing.T) {
	f := newLedgerFixture(t)

	adjustment, err := f.poster.CreateInventoryAdjustment(f.ctx, &models.NewInventoryAdjustment{
		AdjustmentDate: postingDate,
		AdjustmentType: models.AdjustmentTypeDecrease,
		StoreId:        f.store.ID,
		ProductId:      f.product.ID,
		ProductUnitId:  f.unit.ID,
		Quantity:       decimal.NewFromInt(2),
		Reason:         "damaged",
		AutoPost:       true,
	})
	require.NoError(t, err)
	require.True(t, adjustment.Posted())

	requireDecimal(t, "8", f.reloadProduct().CurrentBalance)
	requireDecimal(t, "-120", f.accountBalance("113001"))
	requireDecimal(t, "120", f.accountBalance("51"))
	assert.Equal(t, models.LedgerArtifacts{ProductTransactions: 1, JournalEntries: 1}, f.artifacts(models.DocumentInventoryAdjustment, adjustment.ID))
	f.assertLedgerHealthy()

	unposted, err := f.poster.UnpostDocument(f.ctx, models.DocumentInventoryAdjustment, adjustment.ID)
	require.NoError(t, err)
	require.True(t, unposted)
	requireDecimal(t, "10", f.reloadProduct().CurrentBalance)
	requireDecimal(t, "0", f.accountBalance("51"))
	assert.False(t, f.artifacts(models.DocumentInventoryAdjustment, adjustment.ID).Any())
}

func TestStockTransferBetweenStores(t *testing.T) {
	f := newLedgerFixture(t)

	branchAccount := f.linkedAccount(workflow.LinkedAccountStore, "Branch Store")
	branch, err := models.CreateStore(f.ctx, f.db, &models.NewStore{Name: "Branch Store", AccountId: &branchAccount.ID})
	require.NoError(t, err)

	transfer, err := f.poster.CreateStockTransfer(f.ctx, &models.NewStockTransfer{
		TransferDate:  postingDate,
		FromStoreId:   f.store.ID,
		ToStoreId:     branch.ID,
		ProductId:     f.product.ID,
		ProductUnitId: f.unit.ID,
		Quantity:      decimal.NewFromInt(4),
	})
	require.NoError(t, err)

	posted, err := f.poster.PostStockTransfer(f.ctx, transfer.ID)
	require.NoError(t, err)
	require.True(t, posted)

	requireDecimal(t, "10", f.reloadProduct().CurrentBalance, "a transfer does not change total stock")
	requireDecimal(t, "240", f.accountBalanceById(&branchAccount.ID))
	requireDecimal(t, "-240", f.accountBalance("113001"))
	assert.Equal(t, models.LedgerArtifacts{ProductTransactions: 2, JournalEntries: 1}, f.artifacts(models.DocumentStockTransfer, transfer.ID))
	f.assertLedgerHealthy()

	require.NoError(t, f.poster.DeleteStockTransfer(f.ctx, transfer.ID))
	requireDecimal(t, "0", f.accountBalanceById(&branchAccount.ID))
	requireDecimal(t, "0", f.accountBalance("113001"))
	f.assertLedgerHealthy()
}

func TestStockTransferWithinOneAccountHasNoJournal(t *testing.T) {
	f := newLedgerFixture(t)

	annex, err := models.CreateStore(f.ctx, f.db, &models.NewStore{Name: "Annex", AccountId: f.store.AccountId})
	require.NoError(t, err)
	transfer, err := f.poster.CreateStockTransfer(f.ctx, &models.NewStockTransfer{
		TransferDate:  postingDate,
		FromStoreId:   f.store.ID,
		ToStoreId:     annex.ID,
		ProductId:     f.product.ID,
		ProductUnitId: f.unit.ID,
		Quantity:      decimal.NewFromInt(1),
		AutoPost:      true,
	})
	require.NoError(t, err)
	require.True(t, transfer.Posted())
	assert.Equal(t, models.LedgerArtifacts{ProductTransactions: 2}, f.artifacts(models.DocumentStockTransfer, transfer.ID))
}

func TestCashMovements(t *testing.T) {
	f := newLedgerFixture(t)

	deposit, err := f.poster.CreateCashMovement(f.ctx, &models.NewCashMovement{
		MovementType: models.CashMovementDeposit,
		MovementDate: postingDate,
		SafeId:       &f.safe.ID,
		Amount:       decimal.NewFromInt(50),
		AutoPost:     true,
	})
	require.NoError(t, err)
	require.True(t, deposit.Posted())
	requireDecimal(t, "50", f.reloadSafe().CurrentBalance)
	assert.Equal(t, models.LedgerArtifacts{SafeTransactions: 1}, f.artifacts(models.DocumentCashMovement, deposit.ID), "no counter account, no journal")

	admin, err := models.GetAccountByCode(f.ctx, f.db, "52")
	require.NoError(t, err)
	withdrawal, err := f.poster.CreateCashMovement(f.ctx, &models.NewCashMovement{
		MovementType:     models.CashMovementWithdrawal,
		MovementDate:     postingDate,
		SafeId:           &f.safe.ID,
		Amount:           decimal.NewFromInt(30),
		CounterAccountId: &admin.ID,
		AutoPost:         true,
	})
	require.NoError(t, err)
	requireDecimal(t, "20", f.reloadSafe().CurrentBalance)
	requireDecimal(t, "30", f.accountBalance("52"))
	requireDecimal(t, "-30", f.accountBalance("111001"))

	require.NoError(t, f.poster.DeleteCashMovement(f.ctx, withdrawal.ID))
	requireDecimal(t, "50", f.reloadSafe().CurrentBalance)
	requireDecimal(t, "0", f.accountBalance("52"))
}
