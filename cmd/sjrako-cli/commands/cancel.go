package commands

import (
	"fmt"

	"sjrako-backend/lib/scrapers/sjrako"

	"github.com/spf13/cobra"
)

var cancelAll bool

func init() {
	cancelCmd.Flags().BoolVar(&cancelAll, "all", false, "cancel the order on every date that can still be changed")
	rootCmd.AddCommand(cancelCmd)
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [date]",
	Short: "Cancels the lunch order on the given date (YYYY-MM-DD), or everywhere with --all.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !cancelAll && len(args) == 0 {
			return fmt.Errorf("give a date or pass --all")
		}

		client, err := login(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		_, orders := newController(client)

		if cancelAll {
			all, cancelled, err := orders.CancelAllLunches(ctx)
			for _, date := range cancelled {
				fmt.Printf("cancelled %s\n", date)
			}
			if err != nil {
				return err
			}
			if !all {
				return fmt.Errorf("some cancellations did not go through")
			}
			return nil
		}

		date, err := sjrako.ParseISO(args[0])
		if err != nil {
			return err
		}
		success, err := orders.CancelLunch(ctx, date)
		if err != nil {
			return err
		}
		if !success {
			return fmt.Errorf("the portal did not accept the cancellation for %s", date)
		}
		fmt.Printf("cancelled %s\n", date)
		return nil
	},
}
