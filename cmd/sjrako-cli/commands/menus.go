package commands

import (
	"fmt"
	"os"

	"sjrako-backend/lib/scrapers/sjrako"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var menusAuthenticated bool

func init() {
	menusCmd.Flags().BoolVar(&menusAuthenticated, "login", false,
		"log in first so the table shows which lunches are ordered")
	rootCmd.AddCommand(menusCmd)
}

var menusCmd = &cobra.Command{
	Use:   "menus",
	Short: "Prints the published lunch menus.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		if menusAuthenticated {
			err = client.Login(ctx, config.Credentials.Username, config.Credentials.Password)
			if err != nil {
				return err
			}
		}

		menus := newRepository(client)
		listing, err := menus.GetLunchMenus(ctx)
		if err != nil {
			return err
		}
		if menusAuthenticated && len(listing) > 0 {
			first, last := listing[0].Date, listing[len(listing)-1].Date
			listing, err = menus.GetAllLunchMenusBetween(ctx, first, last)
			if err != nil {
				return err
			}
		}

		printMenus(listing)
		return nil
	},
}

func printMenus(menus []sjrako.LunchMenu) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Date", "#", "Soup", "Main dish", "Ordered", "Changeable"})

	for _, menu := range menus {
		for _, lunch := range menu.Lunches {
			ordered := ""
			if lunch.IsOrdered {
				ordered = "yes"
			}
			changeable := ""
			if lunch.CanBeChanged {
				changeable = "yes"
			}
			t.AppendRow(table.Row{
				menu.Date.ISO(),
				lunch.Number,
				lunch.Soup,
				menu.FullMainDish(lunch),
				ordered,
				changeable,
			})
		}
		t.AppendSeparator()
	}
	t.Render()

	fmt.Printf("%d menus\n", len(menus))
}
