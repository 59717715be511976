package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"autopress/internal/clix"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the publish run ledger",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent publish runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		pagination, err := clix.ParsePagination(cmd.Flags())
		if err != nil {
			return fmt.Errorf("invalid pagination flags: %w", err)
		}

		runs, err := appInstance.RunStore.ListRuns(cmd.Context(), pagination.Limit, pagination.Offset)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs found.")
			return nil
		}

		table := newTable(out, "ID", "Title", "Status", "Trigger", "Post", "Started", "Finished")
		for _, r := range runs {
			table.Append([]string{
				r.ID.String(),
				r.BriefTitle,
				statusColor(r.Status),
				r.Trigger,
				formatNullInt64(r.PostID),
				r.StartedAt.Format("2006-01-02 15:04:05"),
				formatNullTime(r.FinishedAt, "2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one publish run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := uuid.Parse(args[0]); err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}

		run, err := appInstance.RunStore.GetRun(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get run %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run:      %s\n", run.ID)
		fmt.Fprintf(out, "Title:    %s\n", run.BriefTitle)
		fmt.Fprintf(out, "Slug:     %s\n", run.Slug)
		fmt.Fprintf(out, "Status:   %s\n", statusColor(run.Status))
		fmt.Fprintf(out, "Trigger:  %s\n", run.Trigger)
		fmt.Fprintf(out, "Post:     %s\n", formatNullInt64(run.PostID))
		fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Finished: %s\n", formatNullTime(run.FinishedAt, "2006-01-02 15:04:05"))
		if run.Error != nil {
			fmt.Fprintf(out, "Error:    %s\n", *run.Error)
		}
		if appInstance.CostService != nil {
			rc, err := appInstance.CostService.ForRun(cmd.Context(), run.ID)
			if err != nil {
				return fmt.Errorf("failed to get cost of run %s: %w", run.ID, err)
			}
			fmt.Fprintf(out, "AI cost:  $%.6f (%d calls)\n", rc.Total.Cost, rc.Total.Calls)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsListCmd.Flags().IntP("limit", "l", 20, "Number of runs to display")
	runsListCmd.Flags().IntP("offset", "o", 0, "Number of runs to skip")
}
