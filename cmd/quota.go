package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/ocean-news/internal/news"
	"github.com/JakeFAU/ocean-news/internal/orchestrator"
)

type quotaReport struct {
	orchestrator.Status
	Attempts []news.FetchAttempt `json:"attempts,omitempty"`
}

func newQuotaCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Print today's fetch quota and snapshot state.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			status, err := a.News().Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("read status: %w", err)
			}
			report := quotaReport{Status: status}
			if log := a.AttemptLog(); log != nil && limit > 0 {
				report.Attempts, err = log.Recent(cmd.Context(), status.Date, limit)
				if err != nil {
					return fmt.Errorf("read attempt log: %w", err)
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().IntVar(&limit, "attempts", 10, "number of logged attempts to include when a database is configured")
	return cmd
}
