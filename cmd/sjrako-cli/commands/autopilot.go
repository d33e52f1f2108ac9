package commands

import (
	"fmt"

	"sjrako-backend/lib/lunchscore"
	"sjrako-backend/services/autopilot"

	"github.com/spf13/cobra"
)

var autopilotEmail bool

func init() {
	autopilotCmd.Flags().BoolVar(&autopilotEmail, "email", false, "email the run report to the configured recipients")
	rootCmd.AddCommand(autopilotCmd)
}

var autopilotCmd = &cobra.Command{
	Use:   "autopilot",
	Short: "Orders the best lunch on every changeable day, skipping days where nothing scores well.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if config.Dataset == "" {
			return fmt.Errorf("no rating dataset is configured, set dataset in sjrako.json5")
		}
		oracle, err := lunchscore.LoadDatasetOracle(config.Dataset)
		if err != nil {
			return err
		}

		client, err := login(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		menus, orders := newController(client)
		service := autopilot.NewService(client, menus, orders, oracle, config.Autopilot)

		report, err := service.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Print(report.Summary())

		if autopilotEmail {
			if len(config.ReportTo) == 0 {
				return fmt.Errorf("no report recipients are configured, set report_to in sjrako.json5")
			}
			err = autopilot.NewMailer(config.Smtp, config.ReportTo).SendReport(ctx, report)
			if err != nil {
				return err
			}
			fmt.Println("report emailed")
		}
		return nil
	},
}
