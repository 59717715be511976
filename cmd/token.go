package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange CMS credentials for a token and validate it",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := cmsApp(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := appInstance.Session.Validate(cmd.Context()); err != nil {
			fmt.Fprintf(out, "%s %v\n", color.RedString("Token rejected:"), err)
			return err
		}
		sess, _ := appInstance.Session.Session()
		fmt.Fprintf(out, "%s %s (issued %s)\n", color.GreenString("Token valid:"), maskToken(sess.Token), sess.IssuedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

func maskToken(tok string) string {
	if len(tok) <= 8 {
		return "********"
	}
	return tok[:4] + "..." + tok[len(tok)-4:]
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
