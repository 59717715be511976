package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"autopress/internal/cms"
	"autopress/internal/services"
)

var (
	postsSlug     string
	postsSearch   string
	postsCategory int64
	postsTag      int64
)

var postsCmd = &cobra.Command{
	Use:   "posts [id]",
	Short: "List CMS posts or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := cmsApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid post id %q", args[0])
			}
			post, err := appInstance.Gateway.GetPost(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "ID: %s\nTitle: %s\nSlug: %s\nStatus: %s\nDate: %s\nLink: %s\n",
				formatNullInt64(post.ID), post.Title, post.Slug, post.Status, post.Date, post.Link)
			fmt.Fprintf(out, "Excerpt: %s\n", services.BuildExcerpt(string(post.Content), services.ExcerptLength))
			return nil
		}

		posts, err := appInstance.Gateway.ListPosts(ctx, cms.PostQuery{
			Slug:     postsSlug,
			Search:   postsSearch,
			Category: postsCategory,
			Tag:      postsTag,
		})
		if err != nil {
			return err
		}
		if len(posts) == 0 {
			fmt.Fprintln(out, "No posts found.")
			return nil
		}
		table := newTable(out, "ID", "Title", "Slug", "Status", "Categories", "Tags")
		for _, p := range posts {
			table.Append([]string{
				formatNullInt64(p.ID),
				string(p.Title),
				p.Slug,
				p.Status,
				joinIDs(p.CategoryIDs),
				joinIDs(p.TagIDs),
			})
		}
		table.Render()
		return nil
	},
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func init() {
	rootCmd.AddCommand(postsCmd)
	postsCmd.Flags().StringVar(&postsSlug, "slug", "", "Filter by slug")
	postsCmd.Flags().StringVarP(&postsSearch, "search", "s", "", "Full-text search")
	postsCmd.Flags().Int64Var(&postsCategory, "category", 0, "Filter by category id")
	postsCmd.Flags().Int64Var(&postsTag, "tag", 0, "Filter by tag id")
}
