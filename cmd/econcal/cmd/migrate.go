package cmd

import (
	"github.com/spf13/cobra"

	pgrepo "econcal/internal/repository/postgres"
)

func newMigrateCmd() *cobra.Command {
	var readerRole string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the Postgres schema and reader grants",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			role := c.Config.Pipeline.ReaderRole
			if readerRole != "" {
				role = readerRole
			}

			if err := pgrepo.Migrate(c.Context, c.PG.DB(), role); err != nil {
				c.Log.Errorw("Migration failed", "error", err)
				return err
			}
			c.Log.Infow("✓ Schema up to date", "reader_role", role)
			return nil
		},
	}

	cmd.Flags().StringVar(&readerRole, "reader-role", "", "role granted read access (overrides PIPELINE_READER_ROLE)")
	return cmd
}
