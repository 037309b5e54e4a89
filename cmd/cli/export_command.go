package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	exportUsecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/usecase"

	"github.com/spf13/cobra"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var configID string

	cmd := &cobra.Command{
		Use:   "export <insight-id>...",
		Short: "Export insights through an export config",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *application) error {
				cfg, err := app.exportConfigs.FindByID(cmd.Context(), configID)
				if err != nil {
					return err
				}
				if cfg == nil {
					return errors.New("export config not found")
				}
				result, err := app.usecases.Exports.ExportInsights(cmd.Context(), cfg.OwnerUserID, cfg.ID, args)
				if err != nil {
					return err
				}
				renderExportResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&configID, "config", "", "Export config id")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func renderExportResult(out io.Writer, result *exportUsecase.ExportResult) {
	rows := make([][]string, 0, len(result.Items))
	for _, item := range result.Items {
		detail := item.RemoteID
		switch {
		case item.Message != "":
			detail = item.Message
		case item.SkipReason != "":
			detail = item.SkipReason
		case item.RemoteURL != "":
			detail = item.RemoteURL
		}
		rows = append(rows, []string{item.InsightID, item.Outcome, detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Insight", "Result", "Detail"}, rows, nil))
	fmt.Fprintf(out, "%s: %d exported, %d failed, %d skipped\n",
		strings.ToUpper(result.Provider), result.ExportedCount, result.FailedCount, result.SkippedCount)
}
