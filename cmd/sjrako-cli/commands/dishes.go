package commands

import (
	"fmt"
	"os"

	"sjrako-backend/lib/menustore"

	"github.com/spf13/cobra"
)

var dishesCSV string

func init() {
	dishesCmd.Flags().StringVar(&dishesCSV, "csv", "",
		"write the dishes to this file as a lunch_name CSV, the seed for a rating dataset")
	rootCmd.AddCommand(dishesCmd)
}

var dishesCmd = &cobra.Command{
	Use:   "dishes",
	Short: "Lists every distinct main dish in the archive database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		database, err := config.Archive.OpenDB()
		if err != nil {
			return err
		}
		defer database.Close()
		store := menustore.NewStore(database)

		if dishesCSV != "" {
			file, err := os.Create(dishesCSV)
			if err != nil {
				return err
			}
			defer file.Close()
			err = store.WriteDishesCSV(ctx, file)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", dishesCSV)
			return nil
		}

		dishes, err := store.Dishes(ctx)
		if err != nil {
			return err
		}
		for _, dish := range dishes {
			fmt.Println(dish)
		}
		fmt.Printf("%d dishes\n", len(dishes))
		return nil
	},
}
