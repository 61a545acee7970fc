package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

var (
	searchLimit    int
	searchJSON     bool
	searchEquals   []string
	searchContains []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search published chunks",
	Long: `Runs a full-text query over the published chunks, ranked by BM25.
Every word of the query must appear in a chunk; accents and case are
ignored.

Filters narrow the results by chunk attribute:

  --filter language=French          exact match
  --contains title=agreement        case-insensitive substring

Attributes: title, filename, filepath, language, printDate, summary,
header_1, header_2, pageIndex. Pass "" as the query to list by filter
only.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringArrayVar(&searchEquals, "filter", nil, "attribute=value equality filter (repeatable)")
	searchCmd.Flags().StringArrayVar(&searchContains, "contains", nil, "attribute=value substring filter (repeatable)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errNotConfigured("search")
	}

	query := domain.SearchQuery{Text: args[0], Limit: searchLimit}
	for _, group := range []struct {
		op    domain.FilterOp
		specs []string
	}{
		{domain.FilterEquals, searchEquals},
		{domain.FilterContains, searchContains},
	} {
		for _, spec := range group.specs {
			f, err := parseFilter(spec, group.op)
			if err != nil {
				return err
			}
			query.Filters = append(query.Filters, f)
		}
	}

	hits, err := searchService.Search(commandContext(cmd), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return writeJSON(cmd.OutOrStdout(), hits)
	}
	outputSearchHits(cmd, hits)
	return nil
}

// parseFilter splits an attribute=value flag.
func parseFilter(spec string, op domain.FilterOp) (domain.SearchFilter, error) {
	attr, value, ok := strings.Cut(spec, "=")
	if !ok || attr == "" {
		return domain.SearchFilter{}, fmt.Errorf("%w: filter %q must be attribute=value", domain.ErrInvalidInput, spec)
	}
	return domain.SearchFilter{Attribute: attr, Op: op, Value: value}, nil
}

func outputSearchHits(cmd *cobra.Command, hits []domain.SearchHit) {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range hits {
		c := hits[i].Chunk
		title := domain.Deref(c.Title)
		if title == "" {
			title = c.Filename
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, hits[i].Score)
		cmd.Printf("      %s page %d, chunk %d\n", c.Filepath, c.PageIndex, c.ChunkIndex)
		if h := domain.Deref(c.Header1); h != "" {
			cmd.Printf("      Section: %s\n", h)
		}
		cmd.Printf("      %s\n", snippet(c.Content, 160))
		cmd.Println()
	}
}

// snippet returns the body of a chunk without its location prefix line,
// collapsed to one line and cut at max runes.
func snippet(content string, max int) string {
	if _, body, ok := strings.Cut(content, ":\n"); ok {
		content = body
	}
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
