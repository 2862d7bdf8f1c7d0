package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/workflow"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or alter the ledger tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return models.MigrateTable(db)
		},
	}
}

func newSetupCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup-coa",
		Short: "Create the default chart of accounts and link the settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newPoster(cmd.Context(), opts)
			if err != nil {
				return err
			}
			created, err := p.SetupChartOfAccounts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d accounts\n", len(created))
			return nil
		},
	}
}

func newAccountsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "Print the chart of accounts with rolled-up balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			tree, err := models.GetAccountTree(cmd.Context(), db)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tree)
		},
	}
}

func newPostCommand(opts *rootOptions, post bool) *cobra.Command {
	use, short := "post <type> <id>", "Post a document"
	if !post {
		use, short = "unpost <type> <id>", "Unpost a document"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[1], err)
			}
			p, err := newPoster(cmd.Context(), opts)
			if err != nil {
				return err
			}
			docType := models.DocumentType(args[0])
			var changed bool
			if post {
				changed, err = p.PostDocument(cmd.Context(), docType, id)
			} else {
				changed, err = p.UnpostDocument(cmd.Context(), docType, id)
			}
			if err != nil {
				return errors.New(models.LocalizedMessage(cmd.Context(), err))
			}
			if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d unchanged\n", docType, id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d done\n", docType, id)
			return nil
		},
	}
}

func newDepreciationCommand(opts *rootOptions) *cobra.Command {
	var (
		asOf    string
		assetId int
		reverse bool
	)
	cmd := &cobra.Command{
		Use:   "run-depreciation",
		Short: "Depreciate active fixed assets up to a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := time.Now().UTC()
			if asOf != "" {
				d, err := time.Parse("2006-01-02", asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				target = d
			}
			p, err := newPoster(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if reverse {
				if assetId == 0 {
					return errors.New("--reverse needs --asset")
				}
				reversed, err := p.ReverseLastDepreciation(cmd.Context(), assetId)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reversed=%t\n", reversed)
				return nil
			}
			if assetId != 0 {
				row, err := p.PostDepreciation(cmd.Context(), assetId, target)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), row)
			}
			rows, err := p.RunDepreciation(cmd.Context(), target)
			if printErr := printJSON(cmd.OutOrStdout(), rows); printErr != nil {
				return printErr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Depreciate up to this date (YYYY-MM-DD), default today")
	cmd.Flags().IntVar(&assetId, "asset", 0, "Only this fixed asset")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "Reverse the asset's last depreciation")
	return cmd
}

func newRecalculateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recalculate",
		Short: "Rebuild subsidiary ledger chains and account balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newPoster(cmd.Context(), opts)
			if err != nil {
				return err
			}
			var drifts []models.AccountBalanceDrift
			err = p.DB.WithContext(cmd.Context()).Transaction(func(tx *gorm.DB) error {
				if err := models.RecalculateAllSubsidiaryLedgers(cmd.Context(), tx); err != nil {
					return err
				}
				fixed, err := models.RebuildAccountBalances(cmd.Context(), tx, p.Sinks, true)
				drifts = fixed
				return err
			})
			if err != nil {
				config.LogError(p.Logger, "ledgerctl", "recalculate", "Transaction", nil, err)
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"fixed_accounts": drifts})
		},
	}
}

type verifyReport struct {
	UnbalancedEntries []int                        `json:"unbalanced_entries"`
	ChainBreaks       []models.ChainBreak          `json:"chain_breaks"`
	AccountDrifts     []models.AccountBalanceDrift `json:"account_drifts"`
}

func (r verifyReport) problems() int {
	return len(r.UnbalancedEntries) + len(r.ChainBreaks) + len(r.AccountDrifts)
}

func newVerifyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Report unbalanced entries, broken chains and drifted account balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newPoster(cmd.Context(), opts)
			if err != nil {
				return err
			}
			report, err := verifyLedger(cmd.Context(), p)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if n := report.problems(); n > 0 {
				return fmt.Errorf("ledger verification found %d problems", n)
			}
			return nil
		},
	}
}

func verifyLedger(ctx context.Context, p *workflow.Poster) (verifyReport, error) {
	var report verifyReport
	db := p.DB.WithContext(ctx)
	var err error
	if report.UnbalancedEntries, err = models.UnbalancedPostedEntries(ctx, db); err != nil {
		return report, err
	}
	if report.ChainBreaks, err = models.VerifySubsidiaryLedgers(ctx, db); err != nil {
		return report, err
	}
	if report.AccountDrifts, err = models.RebuildAccountBalances(ctx, db, p.Sinks, false); err != nil {
		return report, err
	}
	return report, nil
}

func newDispatchAuditCommand(opts *rootOptions) *cobra.Command {
	var (
		follow      bool
		createTopic bool
	)
	cmd := &cobra.Command{
		Use:   "dispatch-audit",
		Short: "Publish pending audit logs to Pub/Sub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if createTopic {
				if err := config.EnsureAuditTopic(cmd.Context()); err != nil {
					return err
				}
			}
			d := workflow.NewAuditDispatcher(db, config.GetLogger())
			if follow {
				d.Run(cmd.Context())
				return nil
			}
			result, err := d.DispatchOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "Keep polling until interrupted")
	cmd.Flags().BoolVar(&createTopic, "create-topic", false, "Create the audit topic when missing")
	return cmd
}

type reportFlags struct {
	from       string
	to         string
	costCenter int
}

func (f *reportFlags) register(cmd *cobra.Command, withCostCenter bool) {
	cmd.Flags().StringVar(&f.from, "from", "", "First day included (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "Last day included (YYYY-MM-DD)")
	if withCostCenter {
		cmd.Flags().IntVar(&f.costCenter, "cost-center", 0, "Only lines booked on this cost center")
	}
}

func (f *reportFlags) filter() (models.ReportFilter, error) {
	var filter models.ReportFilter
	for _, d := range []struct {
		name  string
		value string
		dest  **time.Time
	}{{"--from", f.from, &filter.From}, {"--to", f.to, &filter.To}} {
		if d.value == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", d.value)
		if err != nil {
			return filter, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dest = &parsed
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, errors.New("--to is before --from")
	}
	if f.costCenter != 0 {
		id := f.costCenter
		filter.CostCenterId = &id
	}
	return filter, nil
}

func newTrialBalanceCommand(opts *rootOptions) *cobra.Command {
	flags := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print debit and credit totals per account from posted entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			db, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			report, err := models.GetTrialBalance(cmd.Context(), db, filter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newVatSummaryCommand(opts *rootOptions) *cobra.Command {
	flags := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "vat-summary",
		Short: "Print VAT collected against VAT paid, split by rate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			db, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			summary, err := models.GetVatSummary(cmd.Context(), db, filter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	flags.register(cmd, false)
	return cmd
}
