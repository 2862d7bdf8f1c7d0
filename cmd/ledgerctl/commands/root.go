package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/workflow"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var errDatabaseNotInitialized = errors.New("database not initialized")

type rootOptions struct {
	withRedis bool
	strict    bool
}

// NewRootCommand builds the ledger maintenance CLI.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Ledger posting and maintenance tool",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&opts.withRedis, "redis", false, "Connect to Redis for distributed posting locks")
	rootCmd.PersistentFlags().BoolVar(&opts.strict, "strict", config.StrictLedgerLinks(), "Fail posts that reference missing accounts")

	rootCmd.AddCommand(
		newMigrateCommand(opts),
		newSetupCommand(opts),
		newAccountsCommand(opts),
		newPostCommand(opts, true),
		newPostCommand(opts, false),
		newDepreciationCommand(opts),
		newRecalculateCommand(opts),
		newVerifyCommand(opts),
		newDispatchAuditCommand(opts),
		newTrialBalanceCommand(opts),
		newVatSummaryCommand(opts),
	)
	return rootCmd
}

func connect(ctx context.Context, opts *rootOptions) (*gorm.DB, error) {
	if err := config.ConnectDatabaseWithRetry(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if db == nil {
		return nil, errDatabaseNotInitialized
	}
	if opts.withRedis {
		if err := config.ConnectRedisWithRetry(ctx); err != nil {
			config.LogWarning(config.GetLogger(), "ledgerctl", "connect", "redis unavailable, using in-process posting locks", err.Error())
		}
	}
	return db, nil
}

func newPoster(ctx context.Context, opts *rootOptions) (*workflow.Poster, error) {
	db, err := connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return workflow.NewPoster(db, workflow.WithStrictLedgerLinks(opts.strict)), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
