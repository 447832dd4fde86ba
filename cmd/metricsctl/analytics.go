package main

import (
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/timeutil"
	"github.com/spf13/cobra"
)

var analyticsDate string

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Print the comprehensive attendance analytics for one date",
	Example: `
  # Today in the operating timezone
  metricsctl analytics

  metricsctl analytics --date 2024-06-10
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		var date *time.Time
		if analyticsDate != "" {
			parsed, err := timeutil.ParseDate(analyticsDate, application.Rules.Location)
			if err != nil {
				return err
			}
			date = &parsed
		}

		report, err := application.Analytics.GetComprehensiveAnalytics(cmd.Context(), date)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(analyticsCmd)

	analyticsCmd.Flags().StringVar(&analyticsDate, "date", "", "Date to analyse (YYYY-MM-DD), defaults to today")
}
