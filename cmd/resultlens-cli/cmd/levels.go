package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"resultlens/internal/application"
	"resultlens/internal/application/commands"
	"resultlens/internal/headless"
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "List the saved refinement levels of the root",
	Long: `Restore the saved refinement stack of the root, rerun every level and
print one line per level. The active level is marked with *.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r := GetRunner()

		found, err := r.Restore(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !found {
			fmt.Fprintln(out, "No saved levels")
			return nil
		}
		return r.Do(ctx, func(s *application.Session) error {
			crumbs, err := commands.NewListLevelsCommand(s).Execute(ctx)
			if err != nil {
				return err
			}
			headless.WriteLevels(out, crumbs)
			return nil
		})
	},
}

var closeCmd = &cobra.Command{
	Use:   "close [level]",
	Short: "Drop saved refinement levels",
	Long: `Drop the deepest saved refinement level, or every level after the
given index. Level 0 cannot be dropped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r := GetRunner()

		keep := -1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid level %q", args[0])
			}
			keep = n
		}

		found, err := r.Restore(ctx)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no saved levels")
		}
		err = r.Do(ctx, func(s *application.Session) error {
			if keep < 0 {
				return commands.NewCloseLevelCommand(s).Execute(ctx)
			}
			if keep >= s.Stack().Len() {
				return fmt.Errorf("level %d does not exist", keep)
			}
			s.TruncateTo(keep)
			return nil
		})
		if err != nil {
			return err
		}
		if err := r.Save(ctx); err != nil {
			return err
		}
		return r.Do(ctx, func(s *application.Session) error {
			headless.WriteLevels(cmd.OutOrStdout(), s.Stack().Breadcrumbs())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(levelsCmd)
	rootCmd.AddCommand(closeCmd)
}
