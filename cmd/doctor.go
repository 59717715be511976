package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, CMS credentials, database and Redis connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}
		out := cmd.OutOrStdout()
		failed := 0
		check := func(name string, err error) {
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s %s: %v\n", color.RedString("FAIL"), name, err)
				return
			}
			fmt.Fprintf(out, "%s %s\n", color.GreenString(" OK "), name)
		}

		check("configuration", appInstance.Config.Validate())

		if appInstance.Session != nil {
			check("cms token", appInstance.Session.Validate(ctx))
		} else {
			check("cms token", appInstance.RequireCMS())
		}

		if appInstance.PrimaryStore != nil {
			check("database", appInstance.PrimaryStore.Ping(ctx))
		} else {
			fmt.Fprintf(out, "%s database: not configured, run ledger disabled\n", color.YellowString("SKIP"))
		}

		inspector := asynq.NewInspector(appInstance.RedisOpt())
		_, err = inspector.Queues()
		check("redis", err)
		inspector.Close()

		emb := appInstance.EmbeddingService
		fmt.Fprintf(out, "%s embeddings: %s (%s)\n", color.CyanString("INFO"), emb.Name(), emb.Status())

		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
