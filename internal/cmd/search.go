package cmd

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/aziis98/osf-optimize/internal/fts"
	"github.com/aziis98/osf-optimize/internal/util"
)

var (
	spaceNormalizer = regexp.MustCompile(`\s+`)
	highlightMarker = regexp.MustCompile(`\[HL\](.*?)\[/HL\]`)
)

func newSearchCmd(a *app) *cobra.Command {
	var limit int

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the full-text index",
		Long: util.Dedent(`
			Query the full-text search table built by the optimizer and print
			matching preprints with highlighted snippets. Useful to check that
			the index is populated after a run.
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			a.log.Debugf("Search for: '%s', limit: %d", query, limit)

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			hits, err := a.newMaintainer(db).Search(cmd.Context(), query, limit)
			if err != nil {
				return err
			}

			renderHits(a.stdout, query, hits)
			return nil
		},
	}

	searchCmd.Flags().IntVarP(&limit, "limit", "l", 5, "maximum number of results")
	return searchCmd
}

func renderHits(w io.Writer, query string, hits []fts.Hit) {
	r := lipgloss.NewRenderer(w)

	headerStyle := r.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	queryStyle := r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	titleStyle := r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	rowStyle := r.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	snippetStyle := r.NewStyle().Foreground(lipgloss.Color("250"))
	highlightStyle := r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "7", Dark: "8"}).
		Foreground(lipgloss.AdaptiveColor{Light: "0", Dark: "15"}).
		Bold(true)
	countStyle := r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	noResultsStyle := r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	fmt.Fprintln(w, headerStyle.Render("Search Results")+" for "+queryStyle.Render("'"+query+"'"))

	for _, hit := range hits {
		snippet := spaceNormalizer.ReplaceAllString(hit.Snippet, " ")
		snippet = highlightMarker.ReplaceAllStringFunc(snippet, func(match string) string {
			return highlightStyle.Render(highlightMarker.FindStringSubmatch(match)[1])
		})

		heading := titleStyle.Render(hit.Title) + " " + rowStyle.Render(fmt.Sprintf("#%d", hit.RowID))
		if hit.ID != "" {
			heading += " " + rowStyle.Render(hit.ID)
		}
		fmt.Fprintln(w, heading)
		fmt.Fprintln(w, "  "+snippetStyle.Render(snippet))
	}

	if len(hits) == 0 {
		fmt.Fprintln(w, noResultsStyle.Render("No results found."))
	} else {
		fmt.Fprintln(w, countStyle.Render(fmt.Sprintf("Found %d result(s).", len(hits))))
	}
}
