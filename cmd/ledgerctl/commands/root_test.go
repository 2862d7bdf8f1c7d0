package commands

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/mmdatafocus/ledger_backend/testutils"
	"github.com/mmdatafocus/ledger_backend/workflow"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "setup-coa", "accounts", "post", "unpost", "run-depreciation", "recalculate", "verify", "dispatch-audit", "trial-balance", "vat-summary"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestPostCommandRejectsBadId(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"post", "invoice", "abc"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid id "abc"`)
}

func TestVerifyLedgerOnFreshBook(t *testing.T) {
	ctx := context.Background()
	db := testutils.NewTestDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	p := workflow.NewPoster(db, workflow.WithLogger(logger), workflow.WithLocker(workflow.NewLocalPostingLocker()))
	_, err := p.SetupChartOfAccounts(ctx)
	require.NoError(t, err)

	report, err := verifyLedger(ctx, p)
	require.NoError(t, err)
	assert.Zero(t, report.problems())

	var out bytes.Buffer
	require.NoError(t, printJSON(&out, report))
	assert.Contains(t, out.String(), `"unbalanced_entries"`)
}

func TestReportFlagsFilter(t *testing.T) {
	flags := &reportFlags{from: "2024-03-01", to: "2024-03-31", costCenter: 4}
	filter, err := flags.filter()
	require.NoError(t, err)
	require.NotNil(t, filter.From)
	require.NotNil(t, filter.To)
	assert.Equal(t, "2024-03-01", filter.From.Format("2006-01-02"))
	assert.Equal(t, "2024-03-31", filter.To.Format("2006-01-02"))
	require.NotNil(t, filter.CostCenterId)
	assert.Equal(t, 4, *filter.CostCenterId)

	filter, err = (&reportFlags{}).filter()
	require.NoError(t, err)
	assert.Nil(t, filter.From)
	assert.Nil(t, filter.CostCenterId)

	_, err = (&reportFlags{from: "03/01/2024"}).filter()
	assert.ErrorContains(t, err, "invalid --from")

	_, err = (&reportFlags{from: "2024-03-31", to: "2024-03-01"}).filter()
	assert.ErrorContains(t, err, "--to is before --from")
}

func TestTrialBalanceCommandRejectsBadDate(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"trial-balance", "--to", "yesterday"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --to")
}
