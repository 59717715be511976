package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"autopress/internal/models"
)

var (
	publishTitle     string
	publishKeyword   string
	publishIdea      string
	publishExtra     string
	publishAsync     bool
	publishDraftFile string
)

var publishCmd = &cobra.Command{
	Use:   "publish [brief]",
	Short: "Generate a post from a brief and publish it",
	Long: `Generates a post from a brief and publishes it to the CMS.

The brief is a file (JSON, YAML or "Label: value" text), a URL, or raw text.
Alternatively pass --title/--keyword/--idea. With --draft the generation step
is skipped and a ready-made draft JSON file is published as is.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := cmsApp(cmd)
		if err != nil {
			return err
		}
		if err := appInstance.Config.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if publishDraftFile != "" {
			data, err := os.ReadFile(publishDraftFile)
			if err != nil {
				return fmt.Errorf("read draft: %w", err)
			}
			var draft models.Draft
			if err := json.Unmarshal(data, &draft); err != nil {
				return fmt.Errorf("decode draft %s: %w", publishDraftFile, err)
			}
			res := appInstance.PublishService.Publish(ctx, draft)
			printResult(out, res)
			return res.Err
		}

		brief := models.Brief{Title: publishTitle, Keyword: publishKeyword, Idea: publishIdea, Extra: publishExtra}
		if len(args) == 1 {
			brief, err = appInstance.InputProcessor.Brief(ctx, args[0])
			if err != nil {
				return fmt.Errorf("read brief: %w", err)
			}
		}
		if strings.TrimSpace(brief.Title) == "" {
			return fmt.Errorf("a brief argument or --title is required")
		}

		if publishAsync {
			runID, err := appInstance.JobClient.EnqueuePublishBrief(ctx, brief, models.TriggerCLI)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Queued %q as run %s\n", brief.Title, runID)
			return nil
		}

		run, res := appInstance.PublishService.PublishBrief(ctx, brief, uuid.New(), models.TriggerCLI)
		fmt.Fprintf(out, "Run %s (%s)\n", run.ID, statusColor(run.Status))
		printResult(out, res)
		return res.Err
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVarP(&publishTitle, "title", "t", "", "Post title")
	publishCmd.Flags().StringVarP(&publishKeyword, "keyword", "k", "", "Main keyword")
	publishCmd.Flags().StringVarP(&publishIdea, "idea", "i", "", "Short explanation of the post")
	publishCmd.Flags().StringVar(&publishExtra, "extra", "", "Extra instructions for the writer")
	publishCmd.Flags().BoolVar(&publishAsync, "async", false, "Queue the brief for the worker instead of publishing now")
	publishCmd.Flags().StringVar(&publishDraftFile, "draft", "", "Publish a ready-made draft JSON file without generation")
}
