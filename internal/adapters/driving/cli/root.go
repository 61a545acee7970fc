// Package cli provides the cobra command tree for cortexdocs.
// Services are injected by main through Execute; commands fail with a
// clear message when the service they need is not configured.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driving"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// Scheduler runs the pipeline and publisher in the background.
type Scheduler interface {
	// Start blocks until the context is done or Stop is called.
	Start(ctx context.Context) error

	// Stop halts scheduled work.
	Stop() error
}

// Services holds everything the commands drive.
type Services struct {
	Version   string
	Ingest    driving.IngestService
	Pipeline  driving.PipelineService
	Status    driving.StatusService
	Search    driving.SearchService
	Settings  driving.SettingsService
	Scheduler Scheduler

	// ValidateAI checks the configured AI provider credentials.
	ValidateAI func(ctx context.Context, settings *domain.AISettings) error
}

var (
	version = "dev"
	verbose bool

	ingestService   driving.IngestService
	pipelineService driving.PipelineService
	statusService   driving.StatusService
	searchService   driving.SearchService
	settingsService driving.SettingsService
	scheduler       Scheduler
	validateAI      func(ctx context.Context, settings *domain.AISettings) error
)

var rootCmd = &cobra.Command{
	Use:   "cortexdocs",
	Short: "Enrich, chunk and index paginated documents",
	Long: `cortexdocs ingests staged PDF files, enriches them with a title,
print date, language, summary and validated signatures, and produces
header-aware overlapping chunks for a full-text index.

Every stage only acts on documents that lack its output, so running the
pipeline again is always safe.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print per-document pipeline decisions to stderr")
}

// Execute injects the services and runs the command tree.
func Execute(ctx context.Context, s Services) error {
	setServices(s)
	return rootCmd.ExecuteContext(ctx)
}

func setServices(s Services) {
	if s.Version != "" {
		version = s.Version
	}
	ingestService = s.Ingest
	pipelineService = s.Pipeline
	statusService = s.Status
	searchService = s.Search
	settingsService = s.Settings
	scheduler = s.Scheduler
	validateAI = s.ValidateAI
}

// errNotConfigured reports a command whose service was not injected.
func errNotConfigured(name string) error {
	return fmt.Errorf("%s service not configured", name)
}

// commandContext returns the command context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newTable returns a writer that aligns tab-separated columns on a
// terminal and passes plain TSV through otherwise.
func newTable(w io.Writer) (io.Writer, func() error) {
	if !isTerminal(w) {
		return w, func() error { return nil }
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	return tw, tw.Flush
}

// ExitCode maps an Execute error to the process exit status.
// Configuration and input errors exit with 2, everything else with 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrInvalidConfig), errors.Is(err, domain.ErrInvalidInput):
		return 2
	default:
		return 1
	}
}
