package commands

import (
	"fmt"
	"strconv"

	"sjrako-backend/lib/scrapers/sjrako"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(orderCmd)
}

var orderCmd = &cobra.Command{
	Use:   "order <date> <number>",
	Short: "Orders the lunch with the given number (1-3) on the given date (YYYY-MM-DD).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		date, err := sjrako.ParseISO(args[0])
		if err != nil {
			return err
		}
		number, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%q is not a lunch number: %w", args[1], err)
		}

		client, err := login(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		_, orders := newController(client)
		success, err := orders.SetLunch(ctx, date, number)
		if err != nil {
			return err
		}
		if !success {
			return fmt.Errorf("the portal did not accept the order for %s", date)
		}
		fmt.Printf("ordered lunch %d for %s\n", number, date)
		return nil
	},
}
