package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waddleai/waddle-go/internal/usage"
)

func init() {
	usageCmd.Flags().Int("days", usage.DefaultPeriodDays, "Lookback window in days")
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show the account's token usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd)
		if err != nil {
			return err
		}
		days, _ := cmd.Flags().GetInt("days")
		snapshot, err := usage.Fetch(cmd.Context(), app.Client, days)
		if err != nil {
			return err
		}
		fmt.Printf("Last %d days: %d tokens over %d requests\n",
			snapshot.PeriodDays, snapshot.TotalTokens, snapshot.TotalRequests)
		fmt.Printf("Daily:   %d / %d\n", snapshot.DailyUsed, snapshot.DailyLimit)
		fmt.Printf("Monthly: %d / %d\n", snapshot.MonthlyUsed, snapshot.MonthlyLimit)
		return nil
	},
}
