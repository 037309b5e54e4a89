package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	idomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	tdomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"

	"github.com/spf13/cobra"
)

func newTranscriptCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transcript",
		Aliases: []string{"transcripts"},
		Short:   "Inspect and manage transcripts",
	}
	cmd.AddCommand(newTranscriptListCommand(ctx))
	cmd.AddCommand(newTranscriptShowCommand(ctx))
	cmd.AddCommand(newTranscriptReanalyzeCommand(ctx))
	return cmd
}

func newTranscriptListCommand(ctx *commandContext) *cobra.Command {
	var (
		owner  string
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *application) error {
				var filter *tdomain.Status
				if status != "" {
					s := tdomain.Status(status)
					filter = &s
				}
				items, total, err := app.transcripts.FindByOwner(cmd.Context(), owner, filter, false, limit, 0)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(items))
				for _, t := range items {
					rows = append(rows, []string{t.ID, t.Title, string(t.Status), string(t.Origin), formatTime(t.CreatedAt)})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Status", "Origin", "Created"}, rows, nil))
				fmt.Fprintf(out, "%d of %d transcripts\n", len(items), total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "user", "", "Owner user id")
	cmd.Flags().StringVar(&status, "status", "", "Only this status")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newTranscriptShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transcript with its insights and timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *application) error {
				return showTranscript(cmd.Context(), app, cmd.OutOrStdout(), args[0])
			})
		},
	}
}

func newTranscriptReanalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reanalyze <id>",
		Short: "Archive current insights and analyze a transcript again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *application) error {
				t, err := loadTranscript(cmd.Context(), app, args[0])
				if err != nil {
					return err
				}
				if _, err := app.usecases.Transcripts.Reanalyze(cmd.Context(), t.OwnerUserID, t.ID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Analysis started, waiting for it to finish...")
				app.launcher.Wait()
				return showTranscript(cmd.Context(), app, cmd.OutOrStdout(), t.ID)
			})
		},
	}
}

func loadTranscript(ctx context.Context, app *application, id string) (*tdomain.Transcript, error) {
	t, err := app.transcripts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("transcript not found")
	}
	return t, nil
}

func showTranscript(ctx context.Context, app *application, out io.Writer, id string) error {
	t, err := loadTranscript(ctx, app, id)
	if err != nil {
		return err
	}
	activities, err := app.transcripts.ListActivities(ctx, id)
	if err != nil {
		return err
	}
	insights, err := app.insights.FindByTranscript(ctx, id, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s  %s\n", t.ID, t.Title)
	fmt.Fprintf(out, "status: %s  origin: %s  owner: %s\n", t.Status, t.Origin, t.OwnerUserID)
	if t.Summary != "" {
		fmt.Fprintf(out, "summary: %s\n", t.Summary)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderInsights(insights))
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderActivities(activities))
	return nil
}

func renderInsights(insights []*idomain.Insight) string {
	if len(insights) == 0 {
		return "No active insights"
	}
	sort.SliceStable(insights, func(i, j int) bool { return insights[i].Confidence > insights[j].Confidence })
	rows := make([][]string, 0, len(insights))
	for _, ins := range insights {
		rows = append(rows, []string{
			string(ins.Type),
			ins.Title,
			fmt.Sprintf("%.0f%%", ins.Confidence*100),
			string(ins.Severity),
			string(ins.Status),
		})
	}
	return renderTable(
		[]string{"Type", "Title", "Confidence", "Severity", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func renderActivities(activities []*tdomain.Activity) string {
	if len(activities) == 0 {
		return "No activity recorded"
	}
	rows := make([][]string, 0, len(activities))
	for _, a := range activities {
		rows = append(rows, []string{formatTime(a.CreatedAt), a.ActivityType, a.Message, formatMetadata(a.Metadata)})
	}
	return renderTable([]string{"When", "Activity", "Message", "Details"}, rows, nil)
}

func formatMetadata(meta map[string]interface{}) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return strings.Join(parts, " ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
