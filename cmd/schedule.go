package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"autopress/internal/clix"
	"autopress/internal/schedule"
)

var scheduleDate string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily content plan trigger",
	Long: `Registers a plan check at each cron spec in schedule.times (or --times) and
enqueues it for the worker when due. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		cfg := appInstance.Config
		specs, err := clix.ParseList(cmd.Flags(), "times", ";")
		if err != nil {
			return err
		}
		if len(specs) > 0 {
			cfg.Schedule.Times = specs
		}
		if err := cfg.ValidateWorker(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		sched, err := schedule.NewScheduler(appInstance.RedisOpt(), cfg.Schedule.Times, cfg.Location())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Scheduler running with %d trigger(s); plan file %s\n", len(sched.Entries()), cfg.Schedule.PlanFile)
		return sched.Run()
	},
}

var scheduleDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List the plan entries due on a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		cfg := appInstance.Config
		loc := cfg.Location()
		day, err := planDay(loc)
		if err != nil {
			return err
		}
		plan, err := schedule.LoadPlan(cfg.Schedule.PlanFile)
		if err != nil {
			return err
		}
		due := plan.Due(day, loc)
		out := cmd.OutOrStdout()
		if len(due) == 0 {
			fmt.Fprintf(out, "No plan entries for %s.\n", day.Format(schedule.DateLayout))
			return nil
		}
		table := newTable(out, "Date", "Title", "Keyword", "Idea")
		for _, e := range due {
			table.Append([]string{e.Date, e.Title, e.Keyword, e.Idea})
		}
		table.Render()
		return nil
	},
}

var scheduleTriggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Enqueue a plan check now",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if scheduleDate != "" {
			if _, err := schedule.ParseDate(scheduleDate, appInstance.Config.Location()); err != nil {
				return err
			}
		}
		if err := appInstance.JobClient.EnqueuePlanCheck(cmd.Context(), scheduleDate); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Plan check queued.")
		return nil
	},
}

func planDay(loc *time.Location) (time.Time, error) {
	if scheduleDate == "" {
		return time.Now().In(loc), nil
	}
	return schedule.ParseDate(scheduleDate, loc)
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleDueCmd)
	scheduleCmd.AddCommand(scheduleTriggerCmd)

	scheduleCmd.Flags().String("times", "", "Semicolon-separated cron specs overriding schedule.times")
	scheduleCmd.PersistentFlags().StringVar(&scheduleDate, "date", "", "Plan day (YYYY-MM-DD), default today")
}
