package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

var (
	statusFolder     string
	statusIncomplete bool
	statusJSON       bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-document enrichment progress",
	Long: `Lists every stored document with the derived fields it still lacks,
its signature count and whether all its pages carry the document
fields.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var chunksCmd = &cobra.Command{
	Use:   "chunks [staged-path]",
	Short: "Print the current chunks of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunks,
}

func init() {
	statusCmd.Flags().StringVar(&statusFolder, "folder", "", "glob restricting documents by filepath")
	statusCmd.Flags().BoolVar(&statusIncomplete, "incomplete", false, "only list documents with enrichment left to do")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output statuses as JSON")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(chunksCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusService == nil {
		return errNotConfigured("status")
	}

	statuses, err := statusService.Status(commandContext(cmd), domain.DocumentFilter{Folder: statusFolder})
	if err != nil {
		return fmt.Errorf("failed to load status: %w", err)
	}

	complete := 0
	shown := make([]domain.DocumentStatus, 0, len(statuses))
	for i := range statuses {
		if statuses[i].Complete() {
			complete++
			if statusIncomplete {
				continue
			}
		}
		shown = append(shown, statuses[i])
	}

	if statusJSON {
		return writeJSON(cmd.OutOrStdout(), shown)
	}

	out := cmd.OutOrStdout()
	if len(shown) == 0 {
		fmt.Fprintf(out, "No documents to show (%d of %d complete).\n", complete, len(statuses))
		return nil
	}

	tw, flush := newTable(out)
	fmt.Fprintln(tw, "FILEPATH\tPAGES\tSIGNATURES\tCHUNKS\tIN SYNC\tMISSING")
	for i := range shown {
		st := shown[i]
		missing := strings.Join(st.Missing(), ",")
		if missing == "" {
			missing = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%t\t%s\n",
			st.Filepath, st.PageCount, st.SignatureCount, st.Chunks, st.PagesInSync, missing)
	}
	if err := flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d documents complete\n", complete, len(statuses))
	return nil
}

func runChunks(cmd *cobra.Command, args []string) error {
	if statusService == nil {
		return errNotConfigured("status")
	}

	chunks, err := statusService.Chunks(commandContext(cmd), domain.NewDocumentKey(args[0]))
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}

	if len(chunks) == 0 {
		cmd.Println("No chunks. Run the chunk stage first.")
		return nil
	}
	for i := range chunks {
		c := chunks[i]
		cmd.Printf("--- page %d, chunk %d (%s)\n", c.PageIndex, c.ChunkIndex, c.ID)
		cmd.Println(c.Content)
	}
	return nil
}
