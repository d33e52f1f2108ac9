package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(creditCmd)
}

var creditCmd = &cobra.Command{
	Use:   "credit",
	Short: "Prints the account's credit balance and monthly consumption.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := login(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		status, err := client.CreditStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	},
}
