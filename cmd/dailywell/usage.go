package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func usageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show this month's AI usage and spend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			av := app.wallet.CheckAvailability(time.Now())
			u := app.wallet.Snapshot()

			fmt.Printf("Plan:            %s\n", u.Plan)
			fmt.Printf("Month spend:     $%.4f\n", u.CurrentMonthCostUSD)
			if av.RemainingUSD > 0 {
				fmt.Printf("Remaining:       $%.4f\n", av.RemainingUSD)
			}
			fmt.Printf("Tokens used:     %d\n", u.TokensUsed)
			fmt.Printf("Local messages:  %d (chat %d, scan %d, report %d)\n",
				u.LocalMessages.Total(), u.LocalMessages.Chat, u.LocalMessages.Scan, u.LocalMessages.Report)
			fmt.Printf("Cloud messages:  %d (chat %d, scan %d, report %d)\n",
				u.CloudMessages.Total(), u.CloudMessages.Chat, u.CloudMessages.Scan, u.CloudMessages.Report)
			fmt.Printf("Resets on:       %s\n", u.ResetDate.Format("Jan 2, 2006"))
			if av.Message != "" {
				fmt.Printf("\n%s\n", av.Message)
			}

			return nil
		},
	}
	return cmd
}
