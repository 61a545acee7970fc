package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Parse staged files into the document store",
	Long: `Walks each path (a file or directory, relative paths are resolved
against the staging directory) and stores the pages of every PDF that is
not stored yet. Documents already in the store are left untouched.

With no path the whole staging directory is ingested.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}
	if len(args) == 0 {
		args = []string{"."}
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	for _, root := range args {
		report, err := ingestService.Ingest(ctx, root)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", root, err)
		}
		fmt.Fprintf(out, "%s: %d created (%d pages), %d existing, %d failed\n",
			root, report.Created, report.Pages, report.Existing, report.Failed)
	}
	return nil
}
