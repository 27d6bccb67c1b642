package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"speedraw/routes"
)

func newStylesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List the paint reveal styles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := [][]string{}
			for _, s := range routes.Styles() {
				rows = append(rows, []string{strconv.Itoa(s.Choice), s.Name, s.Description, s.BestFor})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Choice", "Name", "Description", "Best for"}, rows,
				[]columnAlignment{alignRight}))
			return nil
		},
	}
}
