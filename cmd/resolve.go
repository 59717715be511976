package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"autopress/internal/models"
)

var (
	resolveKind      string
	resolveThreshold float64
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Show which existing category or tag a name would reuse",
	Long: `Embeds the name together with the existing categories (or tags) and reports the
closest one. Nothing is created in the CMS.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := cmsApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		var names []string
		var ids []int64
		switch models.TaxonomyKind(resolveKind) {
		case models.KindCategory:
			cats, err := appInstance.Gateway.ListCategories(ctx)
			if err != nil {
				return err
			}
			for _, c := range cats {
				names, ids = append(names, c.Name), append(ids, c.ID)
			}
		case models.KindTag:
			tags, err := appInstance.Gateway.ListTags(ctx)
			if err != nil {
				return err
			}
			for _, t := range tags {
				names, ids = append(names, t.Name), append(ids, t.ID)
			}
		default:
			return fmt.Errorf("--kind must be %q or %q", models.KindCategory, models.KindTag)
		}

		threshold := appInstance.Resolver.Threshold()
		if cmd.Flags().Changed("threshold") {
			threshold = resolveThreshold
		}
		match, ok, err := appInstance.Resolver.Resolve(ctx, args[0], names, threshold)
		if err != nil {
			return err
		}
		if match.Index < 0 {
			fmt.Fprintf(out, "No existing %ss; %q would be created.\n", resolveKind, args[0])
			return nil
		}
		if ok {
			fmt.Fprintf(out, "%s %q -> %q (id %d, score %.4f >= %.2f)\n",
				color.GreenString("reuse"), args[0], match.Name, ids[match.Index], match.Score, threshold)
			return nil
		}
		fmt.Fprintf(out, "%s %q (closest %q, score %.4f < %.2f)\n",
			color.YellowString("create"), args[0], match.Name, match.Score, threshold)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVar(&resolveKind, "kind", string(models.KindCategory), "Taxonomy kind: category or tag")
	resolveCmd.Flags().Float64Var(&resolveThreshold, "threshold", 0, "Override the configured similarity threshold")
}
