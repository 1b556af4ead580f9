package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vellumsearch/vellum/internal/store"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply pending schema migrations to the store.

Migrations are forward-only and idempotent; each runs in its own
transaction and is recorded in the schema_migrations ledger. The
embedding column dimension comes from embeddings.dimensions in the
configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := store.Migrate(ctx, a.store.Pool, a.cfg.Embeddings.Dimensions); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
	return cmd
}
