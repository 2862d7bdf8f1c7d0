package workflow_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/testutils"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/mmdatafocus/ledger_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	postingDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	fixedNow    = time.Date(2024, 3, 20, 9, 30, 0, 0, time.UTC)
)

// ledgerFixture is a migrated database with the default chart of accounts,
// one linked safe, bank, customer, supplier and store, and a product with 10 units in stock.
type ledgerFixture struct {
	t      *testing.T
	ctx    context.Context
	db     *gorm.DB
	poster *workflow.Poster

	safe     *models.Safe
	bank     *models.Bank
	customer *models.Contact
	supplier *models.Contact
	store    *models.Store
	product  *models.Product
	unit     *models.ProductUnit
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newLedgerFixture(t *testing.T, opts ...workflow.Option) *ledgerFixture {
	t.Helper()
	ctx := utils.SetUserIdInContext(context.Background(), 1)
	db := testutils.NewTestDB(t)

	opts = append([]workflow.Option{
		workflow.WithLocker(workflow.NewLocalPostingLocker()),
		workflow.WithLogger(quietLogger()),
		workflow.WithClock(func() time.Time { return fixedNow }),
		workflow.WithStrictLedgerLinks(false),
		workflow.WithAutoPost(false),
	}, opts...)
	p := workflow.NewPoster(db, opts...)

	_, err := p.SetupChartOfAccounts(ctx)
	require.NoError(t, err)

	f := &ledgerFixture{t: t, ctx: ctx, db: db, poster: p}

	safeAccount := f.linkedAccount(workflow.LinkedAccountSafe, "Main Safe")
	f.safe, err = models.CreateSafe(ctx, db, &models.NewSafe{Name: "Main Safe", AccountId: &safeAccount.ID})
	require.NoError(t, err)

	bankAccount := f.linkedAccount(workflow.LinkedAccountBank, "City Bank")
	f.bank, err = models.CreateBank(ctx, db, &models.NewBank{Name: "City Bank", AccountId: &bankAccount.ID})
	require.NoError(t, err)

	customerAccount := f.linkedAccount(workflow.LinkedAccountCustomer, "Acme Retail")
	f.customer, err = models.CreateContact(ctx, db, &models.NewContact{
		Name:        "Acme Retail",
		ContactType: models.ContactTypeCustomer,
		AccountId:   &customerAccount.ID,
	})
	require.NoError(t, err)

	supplierAccount := f.linkedAccount(workflow.LinkedAccountSupplier, "Nile Supplies")
	f.supplier, err = models.CreateContact(ctx, db, &models.NewContact{
		Name:        "Nile Supplies",
		ContactType: models.ContactTypeSupplier,
		AccountId:   &supplierAccount.ID,
	})
	require.NoError(t, err)

	storeAccount := f.linkedAccount(workflow.LinkedAccountStore, "Main Store")
	f.store, err = models.CreateStore(ctx, db, &models.NewStore{Name: "Main Store", AccountId: &storeAccount.ID})
	require.NoError(t, err)

	f.product, err = models.CreateProduct(ctx, db, &models.NewProduct{
		Code:           "P-001",
		Name:           "Widget",
		InitialBalance: decimal.NewFromInt(10),
		Units: []models.NewProductUnit{{
			Name:             "Piece",
			ConversionFactor: decimal.NewFromInt(1),
			PurchasePrice:    decimal.NewFromInt(60),
			SalePrice:        decimal.NewFromInt(100),
			IsBase:           true,
		}},
	})
	require.NoError(t, err)
	f.unit = &f.product.Units[0]
	return f
}

func (f *ledgerFixture) linkedAccount(kind workflow.LinkedAccountKind, name string) *models.Account {
	f.t.Helper()
	account, err := workflow.CreateLinkedAccount(f.ctx, f.db, kind, name)
	require.NoError(f.t, err)
	return account
}

// accountBalance reloads an account by code.
func (f *ledgerFixture) accountBalance(code string) decimal.Decimal {
	f.t.Helper()
	account, err := models.GetAccountByCode(f.ctx, f.db, code)
	require.NoError(f.t, err)
	return account.Balance
}

func (f *ledgerFixture) accountBalanceById(id *int) decimal.Decimal {
	f.t.Helper()
	require.NotNil(f.t, id)
	account, err := utils.FetchModel[models.Account](f.ctx, f.db, *id)
	require.NoError(f.t, err)
	return account.Balance
}

func (f *ledgerFixture) reloadSafe() *models.Safe {
	f.t.Helper()
	safe, err := utils.FetchModel[models.Safe](f.ctx, f.db, f.safe.ID)
	require.NoError(f.t, err)
	return safe
}

func (f *ledgerFixture) reloadContact(id int) *models.Contact {
	f.t.Helper()
	contact, err := utils.FetchModel[models.Contact](f.ctx, f.db, id)
	require.NoError(f.t, err)
	return contact
}

func (f *ledgerFixture) reloadProduct() *models.Product {
	f.t.Helper()
	product, err := utils.FetchModel[models.Product](f.ctx, f.db, f.product.ID)
	require.NoError(f.t, err)
	return product
}

func (f *ledgerFixture) artifacts(docType models.DocumentType, id int) models.LedgerArtifacts {
	f.t.Helper()
	a, err := models.CountArtifacts(f.ctx, f.db, docType, id)
	require.NoError(f.t, err)
	return a
}

// assertLedgerHealthy checks the global invariants: posted entries balance,
// subsidiary chains are consistent and account balances match their posted lines.
func (f *ledgerFixture) assertLedgerHealthy() {
	f.t.Helper()
	unbalanced, err := models.UnbalancedPostedEntries(f.ctx, f.db)
	require.NoError(f.t, err)
	require.Empty(f.t, unbalanced, "unbalanced posted entries")

	breaks, err := models.VerifySubsidiaryLedgers(f.ctx, f.db)
	require.NoError(f.t, err)
	require.Empty(f.t, breaks, "subsidiary chain breaks")

	drifts, err := models.RebuildAccountBalances(f.ctx, f.db, f.poster.Sinks, false)
	require.NoError(f.t, err)
	require.Empty(f.t, drifts, "account balance drift")
}

func (f *ledgerFixture) saleInvoice(paymentType models.PaymentType, qty int64) *models.Invoice {
	f.t.Helper()
	input := &models.NewInvoice{
		InvoiceType: models.InvoiceTypeSale,
		PaymentType: paymentType,
		InvoiceDate: postingDate,
		ContactId:   f.customer.ID,
		StoreId:     f.store.ID,
		Items: []models.NewInvoiceItem{{
			ProductId:     f.product.ID,
			ProductUnitId: f.unit.ID,
			Quantity:      decimal.NewFromInt(qty),
			UnitPrice:     decimal.NewFromInt(100),
		}},
	}
	if paymentType == models.PaymentTypeCash {
		input.SafeId = &f.safe.ID
	}
	invoice, err := f.poster.CreateInvoice(f.ctx, input)
	require.NoError(f.t, err)
	return invoice
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	expected := decimal.RequireFromString(want)
	if !expected.Equal(got) {
		require.Failf(t, "decimal mismatch", "want %s, got %s %v", expected.String(), got.String(), msgAndArgs)
	}
}
