package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/cloudimport"

	"github.com/spf13/cobra"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var lookback time.Duration

	cmd := &cobra.Command{
		Use:   "import-once",
		Short: "Poll the cloud recording API once and analyze new transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *application) error {
				im, client, err := app.importer(cmd.Context())
				if err != nil {
					return err
				}
				if im == nil {
					return errors.New("cloud import is disabled; set CLOUD_IMPORT_ENABLED=true")
				}
				scheduler := cloudimport.NewScheduler(client, im, app.cfg.CloudImportInterval, lookback, app.logger)
				summary, err := scheduler.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				app.launcher.Wait()
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Found", "Imported", "Duplicates", "Failed"},
					[][]string{{fmt.Sprint(summary.Found), fmt.Sprint(summary.Imported), fmt.Sprint(summary.Duplicates), fmt.Sprint(summary.Failed)}},
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&lookback, "since", importLookback, "How far back to look for recordings")
	return cmd
}
