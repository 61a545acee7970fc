package cli

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ingest staged files and run the pipeline and publisher on their schedules",
	Long: `Runs in the foreground until interrupted. The staging directory is
ingested at start-up, watched for new files, and ingested again before
every scheduled run. The pipeline runs on the schedule.pipeline cron
expression (when set) and the search index is republished whenever it
falls more than publish.target_lag behind the chunks.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if scheduler == nil {
			return errNotConfigured("scheduler")
		}
		cmd.Println("Scheduler running. Press Ctrl+C to stop.")
		return scheduler.Start(commandContext(cmd))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
