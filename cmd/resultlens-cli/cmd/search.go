package cmd

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"resultlens/internal/application"
	"resultlens/internal/domain"
	"resultlens/internal/headless"
)

var (
	refinePatterns []string
	isRegex        bool
	matchCase      bool
	wholeWord      bool
	includeGlobs   []string
	excludeGlobs   []string
	jsonOutput     bool
	flatOutput     bool
	saveState      bool
	maxRows        int
)

var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Search the root and print the results",
	Long: `Search every file under the root for pattern. Each --refine flag pushes
a refinement level that searches only the files matched by the level
before it; the deepest level is printed.

Examples:
  resultlens-cli search TODO
  resultlens-cli search 'func \w+' --regex --include '**/*.go'
  resultlens-cli search http --refine timeout --refine retry --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r := GetRunner()

		q := queryFor(args[0])
		if err := r.Search(ctx, q); err != nil {
			return err
		}
		for _, p := range refinePatterns {
			if err := r.Refine(ctx, queryFor(p)); err != nil {
				return fmt.Errorf("refine %q: %w", p, err)
			}
		}
		if saveState {
			if err := r.Save(ctx); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		mode := domain.ViewTree
		if flatOutput {
			mode = domain.ViewFlat
		}
		return r.Do(ctx, func(s *application.Session) error {
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(headless.Collect(s))
			}
			headless.WriteTree(out, s, mode, maxRows)
			st := s.Active().Stats()
			fmt.Fprintf(out, "\n%d matches in %d files\n", st.NumMatches, st.NumFilesWithMatches)
			return nil
		})
	},
}

// queryFor builds a query from the configured globs and the flags
func queryFor(pattern string) domain.QueryParams {
	q := cfg.Query(pattern)
	q.IsRegex = isRegex
	q.MatchCase = matchCase
	q.WholeWord = wholeWord
	if len(includeGlobs) > 0 {
		q.Include = includeGlobs
	}
	q.Exclude = excludeGlobs
	return q
}

func init() {
	rootCmd.AddCommand(searchCmd)
	f := searchCmd.Flags()
	f.StringArrayVar(&refinePatterns, "refine", nil, "refine the results with another pattern (repeatable)")
	f.BoolVarP(&isRegex, "regex", "e", false, "treat patterns as regular expressions")
	f.BoolVarP(&matchCase, "case", "c", false, "match case")
	f.BoolVarP(&wholeWord, "word", "w", false, "match whole words only")
	f.StringSliceVarP(&includeGlobs, "include", "i", nil, "only search paths matching these globs")
	f.StringSliceVarP(&excludeGlobs, "exclude", "x", nil, "skip paths matching these globs")
	f.BoolVar(&jsonOutput, "json", false, "print the results as JSON")
	f.BoolVar(&flatOutput, "flat", false, "list files by path instead of as a tree")
	f.BoolVar(&saveState, "save", false, "save the refinement stack for the root")
	f.IntVarP(&maxRows, "max-rows", "n", 0, "stop after this many rows (0 prints everything)")
}
