package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/fundscan/internal/collect"
	"github.com/sells-group/fundscan/internal/config"
	"github.com/sells-group/fundscan/internal/model"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find candidate Crunchbase profiles for a company",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeSearch); err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		results, err := collect.SearchProfiles(cmd.Context(), initSearchOnly(), strings.Join(args, " "), limit)
		if err != nil {
			return eris.Wrap(err, "search")
		}
		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No profiles found.")
			return nil
		}

		formatSearchResults(os.Stdout, results)
		return nil
	},
}

// formatSearchResults writes a tabular list of search hits to w.
func formatSearchResults(out io.Writer, results []model.CompanySearchResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TITLE\tURL")
	_, _ = fmt.Fprintln(w, "-----\t---")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", ellipsize(r.Title, 40), r.URL)
	}
	_ = w.Flush()
}

func init() {
	searchCmd.Flags().Int("limit", collect.DefaultSearchLimit, "max number of profiles to return")
	rootCmd.AddCommand(searchCmd)
}
