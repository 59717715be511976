package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List CMS categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := cmsApp(cmd)
		if err != nil {
			return err
		}
		cats, err := appInstance.Gateway.ListCategories(cmd.Context())
		if err != nil {
			return err
		}
		table := newTable(cmd.OutOrStdout(), "ID", "Name", "Slug", "Parent", "Posts")
		for _, c := range cats {
			parent, count := "-", "-"
			if c.ParentID != nil && *c.ParentID != 0 {
				parent = strconv.FormatInt(*c.ParentID, 10)
			}
			if c.Count != nil {
				count = strconv.Itoa(*c.Count)
			}
			table.Append([]string{strconv.FormatInt(c.ID, 10), c.Name, c.Slug, parent, count})
		}
		table.Render()
		return nil
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List CMS tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := cmsApp(cmd)
		if err != nil {
			return err
		}
		tags, err := appInstance.Gateway.ListTags(cmd.Context())
		if err != nil {
			return err
		}
		table := newTable(cmd.OutOrStdout(), "ID", "Name", "Slug")
		for _, t := range tags {
			table.Append([]string{strconv.FormatInt(t.ID, 10), t.Name, t.Slug})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(tagsCmd)
}
