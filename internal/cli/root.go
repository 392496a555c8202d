// Package cli implements auditctl, the operator tool for the audit trail,
// the license ledger and local session tokens.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"regulus/internal/platform/config"
	"regulus/internal/platform/database"
	auditSQL "regulus/pkg/platform/audit/store/sqlstore"
)

// options are shared by every subcommand.
type options struct {
	cfg      config.Server
	dbDriver string
	dbURL    string
}

// NewRootCmd builds the auditctl command tree. Flags default to cfg.
func NewRootCmd(cfg config.Server) *cobra.Command {
	opts := &options{cfg: cfg}

	root := &cobra.Command{
		Use:           "auditctl",
		Short:         "Inspect and verify the regulus audit trail and license ledger",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.dbDriver, "db-driver", cfg.DatabaseDriver, "Database driver (postgres|sqlite)")
	root.PersistentFlags().StringVar(&opts.dbURL, "db", cfg.DatabaseURL, "Database DSN holding the audit trail")

	root.AddCommand(
		newVerifyCmd(opts),
		newExportCmd(opts),
		newTailCmd(opts),
		newLedgerCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

func (o *options) openAuditStore(ctx context.Context) (*auditSQL.Store, func(), error) {
	if o.dbURL == "" {
		return nil, nil, fmt.Errorf("--db or DATABASE_URL is required")
	}
	db, err := database.Open(ctx, o.dbDriver, o.dbURL)
	if err != nil {
		return nil, nil, err
	}
	store := auditSQL.New(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate audit store: %w", err)
	}
	return store, func() { _ = db.Close() }, nil
}
