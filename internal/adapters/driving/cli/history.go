package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pipeline runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output runs as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if pipelineService == nil {
		return errNotConfigured("pipeline")
	}

	runs, err := pipelineService.History(commandContext(cmd), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load run history: %w", err)
	}

	if historyJSON {
		return writeJSON(cmd.OutOrStdout(), runs)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	tw, flush := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tSTAGES\tPROCESSED\tFAILED\tERROR")
	for i := range runs {
		r := runs[i]
		processed, failed := 0, 0
		for _, s := range r.Stages {
			processed += s.Processed
			failed += s.Failed
		}
		errText := r.Error
		if errText == "" {
			errText = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond),
			len(r.Stages), processed, failed, errText)
	}
	return flush()
}
