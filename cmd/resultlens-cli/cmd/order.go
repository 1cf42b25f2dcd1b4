package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"resultlens/internal/application"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Inspect or reset the custom file order of the root",
}

var orderShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the ranked paths of the custom order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		return GetRunner().Do(ctx, func(s *application.Session) error {
			order, err := store.LoadOrder(s.Root())
			if err != nil {
				return err
			}
			if len(order) == 0 {
				fmt.Fprintln(out, "No custom order")
				return nil
			}
			paths := make([]string, 0, len(order))
			for p := range order {
				paths = append(paths, p)
			}
			// Ranks are per sibling group, so siblings stay adjacent when
			// sorted by path
			sort.Strings(paths)
			for _, p := range paths {
				fmt.Fprintf(out, "%4d  %s\n", order[p], p)
			}
			return nil
		})
	},
}

var orderResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the custom order and go back to the natural order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := GetRunner().ResetOrder(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Custom order cleared")
		return nil
	},
}

func init() {
	orderCmd.AddCommand(orderShowCmd)
	orderCmd.AddCommand(orderResetCmd)
	rootCmd.AddCommand(orderCmd)
}
