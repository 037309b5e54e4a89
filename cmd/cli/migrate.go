package cli

import (
	"fmt"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/database"

	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := database.NewConnection(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)
			if err := migrate(db, ctx.logger()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d schemas on %s\n", len(migrations), db.Dialector.Name())
			return nil
		},
	}
}
