package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"autopress/internal/clix"
	"autopress/internal/services"
)

// costCmd represents the base command for cost operations.
var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "View AI usage costs",
	Long:  `Provides subcommands to list AI usage logs and view cost summaries, overall or per publish run.`,
}

var costListCmd = &cobra.Command{
	Use:   "list",
	Short: "List detailed AI usage logs",
	Long:  `Displays a paginated list of recorded AI API calls with associated costs and token counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if appInstance.CostService == nil {
			return fmt.Errorf("cost service is not initialized")
		}

		pagination, err := clix.ParsePagination(cmd.Flags())
		if err != nil {
			return fmt.Errorf("invalid pagination flags: %w", err)
		}

		logs, err := appInstance.CostService.Recent(cmd.Context(), pagination.Limit, pagination.Offset)
		if err != nil {
			return fmt.Errorf("failed to list cost logs: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(logs) == 0 {
			fmt.Fprintln(out, "No cost logs found.")
			return nil
		}

		table := newTable(out, "ID", "Timestamp", "Provider", "Service", "Model", "In", "Out", "Cost", "Run")
		for _, l := range logs {
			runID := "N/A"
			if l.RelatedRunID != nil {
				runID = l.RelatedRunID.String()
			}
			table.Append([]string{
				fmt.Sprintf("%d", l.ID),
				l.Timestamp.Format("2006-01-02 15:04:05"),
				l.ProviderName,
				l.ServiceType,
				l.ModelName,
				fmt.Sprintf("%d", l.InputTokens),
				fmt.Sprintf("%d", l.OutputTokens),
				fmt.Sprintf("%.8f", l.Cost),
				runID,
			})
		}
		table.Render()

		fmt.Fprintf(out, "\nDisplayed %d logs.\n", len(logs))
		return nil
	},
}

var costSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show total AI cost and token usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if appInstance.CostService == nil {
			return fmt.Errorf("cost service is not initialized")
		}

		totals, err := appInstance.CostService.Overall(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get cost summary: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "AI Usage Cost Summary:")
		fmt.Fprintln(out, "----------------------")
		fmt.Fprintf(out, "Total Cost:          $%.6f\n", totals.Cost)
		fmt.Fprintf(out, "Total Input Tokens:  %d\n", totals.InputTokens)
		fmt.Fprintf(out, "Total Output Tokens: %d\n", totals.OutputTokens)
		fmt.Fprintln(out, "----------------------")
		return nil
	},
}

var costRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show the AI spend of one publish run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if appInstance.CostService == nil {
			return fmt.Errorf("cost service is not initialized")
		}
		runID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}

		rc, err := appInstance.CostService.ForRun(cmd.Context(), runID)
		if err != nil {
			return fmt.Errorf("failed to get run cost: %w", err)
		}

		out := cmd.OutOrStdout()
		if rc.Total.Calls == 0 {
			fmt.Fprintf(out, "No AI usage recorded for run %s.\n", runID)
			return nil
		}
		table := newTable(out, "Service", "Calls", "In", "Out", "Cost")
		for _, svc := range rc.ServiceTypes() {
			table.Append(usageRow(svc, rc.ByService[svc]))
		}
		table.Append(usageRow("total", rc.Total))
		table.Render()
		return nil
	},
}

func usageRow(label string, t services.UsageTotals) []string {
	return []string{
		label,
		fmt.Sprintf("%d", t.Calls),
		fmt.Sprintf("%d", t.InputTokens),
		fmt.Sprintf("%d", t.OutputTokens),
		fmt.Sprintf("%.8f", t.Cost),
	}
}

func init() {
	rootCmd.AddCommand(costCmd)
	costCmd.AddCommand(costListCmd)
	costCmd.AddCommand(costSummaryCmd)
	costCmd.AddCommand(costRunCmd)

	costListCmd.Flags().IntP("limit", "l", 50, "Number of logs to display")
	costListCmd.Flags().IntP("offset", "o", 0, "Number of logs to skip")
}
