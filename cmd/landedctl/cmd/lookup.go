package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Simplici0/landedcost/internal/hts"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <hts_code>",
	Short: "Show the reference line for an HTS code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		database, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		e, err := hts.NewStore(database).Lookup(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "HTS Code: %s\n", e.Code)
		fmt.Fprintf(out, "Description: %s\n", e.Description)
		fmt.Fprintf(out, "General Rate: %s\n", e.GeneralRate)
		if e.SpecialRate != "" {
			fmt.Fprintf(out, "Special Rate: %s\n", e.SpecialRate)
		}
		if e.UnitOfQuantity != "" {
			fmt.Fprintf(out, "Unit of Quantity: %s\n", e.UnitOfQuantity)
		}
		return nil
	},
}
