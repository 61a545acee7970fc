package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

var (
	runFolder string
	runJSON   bool
)

var runCmd = &cobra.Command{
	Use:   "run [stage...]",
	Short: "Run the enrichment and chunking pipeline",
	Long: `Runs the pipeline stages in order:

  metadata    extract title, print date and language
  summary     summarise the leading pages
  signatures  extract and validate handwritten signatures
  propagate   copy document fields from the first page to every page
  chunk       regenerate the chunks of every page
  publish     replace the search index with the current chunks

With no stage (or "all") every stage runs. Stages that need an AI
provider or a search index are skipped when none is configured, unless
they are named explicitly.`,
	ValidArgs: []string{"all", "metadata", "summary", "signatures", "propagate", "chunk", "publish"},
	RunE:      runPipeline,
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the current chunks to the search index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return executeRun(cmd, domain.RunOptions{Stages: []domain.Stage{domain.StagePublish}})
	},
}

func init() {
	runCmd.Flags().StringVar(&runFolder, "folder", "", "glob restricting the documents a run touches (default pipeline.folder_filter)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "output the run report as JSON")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(publishCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	stages, err := parseStages(args)
	if err != nil {
		return err
	}
	folder, err := runFolderFilter(cmd)
	if err != nil {
		return err
	}
	return executeRun(cmd, domain.RunOptions{
		Stages: stages,
		Filter: domain.DocumentFilter{Folder: folder},
	})
}

// runFolderFilter returns --folder when given, else the configured
// pipeline.folder_filter.
func runFolderFilter(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("folder") || settingsService == nil {
		return runFolder, nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		return "", fmt.Errorf("failed to load settings: %w", err)
	}
	return settings.Pipeline.Folder, nil
}

func executeRun(cmd *cobra.Command, opts domain.RunOptions) error {
	if pipelineService == nil {
		return errNotConfigured("pipeline")
	}

	report, err := pipelineService.Run(commandContext(cmd), opts)
	if report != nil {
		if runJSON {
			if jerr := writeJSON(cmd.OutOrStdout(), report); jerr != nil {
				return jerr
			}
		} else {
			printRunReport(cmd.OutOrStdout(), report)
		}
	}
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}
	return nil
}

// parseStages converts stage names; "all" or no names selects every stage.
func parseStages(args []string) ([]domain.Stage, error) {
	stages := make([]domain.Stage, 0, len(args))
	for _, arg := range args {
		if arg == "all" {
			return nil, nil
		}
		s, err := domain.ParseStage(arg)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, nil
}

func printRunReport(w io.Writer, report *domain.RunReport) {
	fmt.Fprintf(w, "Run %s\n", report.ID)
	if report.Filter != "" {
		fmt.Fprintf(w, "Folder: %s\n", report.Filter)
	}

	tw, flush := newTable(w)
	fmt.Fprintln(tw, "STAGE\tSELECTED\tPROCESSED\tFAILED\tSKIPPED\tDURATION")
	for _, s := range report.Stages {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n",
			s.Stage, s.Selected, s.Processed, s.Failed, s.Skipped, s.Duration.Round(time.Millisecond))
	}
	flush() //nolint:errcheck

	if report.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", report.Error)
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
