package commands

import (
	"fmt"

	"sjrako-backend/lib/menustore"
	"sjrako-backend/lib/menustore/db"
	"sjrako-backend/lib/scrapers/sjrako"

	"github.com/spf13/cobra"
)

var (
	collectFrom    string
	collectTo      string
	collectOut     string
	collectArchive bool
)

func init() {
	collectCmd.Flags().StringVar(&collectFrom, "from", "", "first date to collect (YYYY-MM-DD), defaults to today")
	collectCmd.Flags().StringVar(&collectTo, "to", "", "last date to collect (YYYY-MM-DD), defaults to two weeks from now")
	collectCmd.Flags().StringVar(&collectOut, "out", "", "write the menus to this JSON snapshot file")
	collectCmd.Flags().BoolVar(&collectArchive, "archive", false, "archive the menus in the configured database")
	rootCmd.AddCommand(collectCmd)
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collects lunch menus in a date range into a snapshot file and/or the archive database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if collectOut == "" && !collectArchive {
			return fmt.Errorf("pass --out and/or --archive, otherwise there is nowhere to put the menus")
		}

		from := sjrako.Today()
		if collectFrom != "" {
			var err error
			from, err = sjrako.ParseISO(collectFrom)
			if err != nil {
				return err
			}
		}
		to := from.AddDays(14)
		if collectTo != "" {
			var err error
			to, err = sjrako.ParseISO(collectTo)
			if err != nil {
				return err
			}
		}

		client, err := login(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		menus := newRepository(client)
		collected, err := menus.GetAllLunchMenusBetween(ctx, from, to)
		if err != nil {
			return err
		}
		fmt.Printf("collected %d menus between %s and %s\n", len(collected), from.ISO(), to.ISO())

		if collectOut != "" {
			err = sjrako.SaveLunchMenus(collected, collectOut)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", collectOut)
		}

		if collectArchive {
			database, err := config.Archive.OpenDB()
			if err != nil {
				return err
			}
			defer database.Close()
			_, err = database.ExecContext(ctx, db.Schema)
			if err != nil {
				return err
			}
			err = menustore.NewStore(database).Archive(ctx, collected)
			if err != nil {
				return err
			}
			fmt.Println("archived")
		}
		return nil
	},
}
