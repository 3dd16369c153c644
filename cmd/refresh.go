package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Serve the feed once and print it as JSON.",
		Long: `refresh runs the same path as GET /api/news: it returns today's snapshot
when one exists and otherwise refreshes it, subject to the daily quota.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			res := a.News().Get(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}
