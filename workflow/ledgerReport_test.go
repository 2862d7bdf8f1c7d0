package workflow_test

import (
	"testing"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trialLine(t *testing.T, report *models.TrialBalance, code string) models.TrialBalanceLine {
	t.Helper()
	for _, line := range report.Lines {
		if line.Code == code {
			return line
		}
	}
	require.Failf(t, "missing trial balance line", "account %s", code)
	return models.TrialBalanceLine{}
}

// postSaleAndExpense books a cash sale (VAT output 5) and a 100 + 5% expense on a cost center.
func postSaleAndExpense(t *testing.T, f *ledgerFixture) *models.CostCenter {
	t.Helper()
	invoice := f.saleInvoice(models.PaymentTypeCash, 1)
	_, err := f.poster.PostInvoice(f.ctx, invoice.ID)
	require.NoError(t, err)

	center, err := models.CreateCostCenter(f.ctx, f.db, &models.NewCostCenter{Code: "ADM", Name: "Administration"})
	require.NoError(t, err)
	_, err = f.poster.CreateExpense(f.ctx, &models.NewCashVoucher{
		Date:         postingDate,
		SafeId:       &f.safe.ID,
		Amount:       decimal.NewFromInt(100),
		VatRate:      decimal.NewFromInt(5),
		CostCenterId: &center.ID,
		Description:  "office rent",
		AutoPost:     true,
	})
	require.NoError(t, err)
	return center
}

func TestTrialBalance(t *testing.T) {
	f := newLedgerFixture(t)
	center := postSaleAndExpense(t, f)

	report, err := models.GetTrialBalance(f.ctx, f.db, models.ReportFilter{})
	require.NoError(t, err)
	assert.True(t, report.IsBalanced)
	requireDecimal(t, "165", report.TotalDebit)
	requireDecimal(t, "165", report.TotalCredit)

	sales := trialLine(t, report, "41")
	requireDecimal(t, "100", sales.Credit)
	requireDecimal(t, "100", sales.BalanceCredit)
	requireDecimal(t, "0", sales.BalanceDebit)
	requireDecimal(t, "60", trialLine(t, report, "51").BalanceDebit)
	safe := trialLine(t, report, "111001")
	requireDecimal(t, "105", safe.Debit)
	requireDecimal(t, "105", safe.Credit)
	requireDecimal(t, "0", safe.BalanceDebit)

	byCenter, err := models.GetTrialBalance(f.ctx, f.db, models.ReportFilter{CostCenterId: &center.ID})
	require.NoError(t, err)
	require.Len(t, byCenter.Lines, 1)
	assert.Equal(t, "52", byCenter.Lines[0].Code)
	requireDecimal(t, "100", byCenter.Lines[0].BalanceDebit)

	later := postingDate.AddDate(0, 0, 1)
	empty, err := models.GetTrialBalance(f.ctx, f.db, models.ReportFilter{From: &later})
	require.NoError(t, err)
	assert.Empty(t, empty.Lines)

	sameDay := postingDate
	day, err := models.GetTrialBalance(f.ctx, f.db, models.ReportFilter{From: &sameDay, To: &sameDay})
	require.NoError(t, err)
	assert.Len(t, day.Lines, len(report.Lines))
	f.assertLedgerHealthy()
}

func TestVatSummary(t *testing.T) {
	f := newLedgerFixture(t)
	postSaleAndExpense(t, f)

	summary, err := models.GetVatSummary(f.ctx, f.db, models.ReportFilter{})
	require.NoError(t, err)
	require.NotNil(t, summary.InputAccountId)
	require.NotNil(t, summary.OutputAccountId)
	requireDecimal(t, "5", summary.TotalInput)
	requireDecimal(t, "5", summary.TotalOutput)
	requireDecimal(t, "0", summary.NetPayable)
	require.Len(t, summary.ByRate, 1)
	requireDecimal(t, "5", summary.ByRate[0].Rate)
	requireDecimal(t, "5", summary.ByRate[0].Input)
	requireDecimal(t, "5", summary.ByRate[0].Output)

	// a second sale raises what is owed
	invoice := f.saleInvoice(models.PaymentTypeCredit, 2)
	_, err = f.poster.PostInvoice(f.ctx, invoice.ID)
	require.NoError(t, err)
	summary, err = models.GetVatSummary(f.ctx, f.db, models.ReportFilter{})
	require.NoError(t, err)
	requireDecimal(t, "15", summary.TotalOutput)
	requireDecimal(t, "10", summary.NetPayable)

	// unposting removes its lines from the summary
	_, err = f.poster.UnpostInvoice(f.ctx, invoice.ID)
	require.NoError(t, err)
	summary, err = models.GetVatSummary(f.ctx, f.db, models.ReportFilter{})
	require.NoError(t, err)
	requireDecimal(t, "0", summary.NetPayable)
}
