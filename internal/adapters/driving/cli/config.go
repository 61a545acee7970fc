package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and change cortexdocs settings. Values are stored in the config
file and can be overridden with CORTEXDOCS_* environment variables,
for example CORTEXDOCS_AI_API_KEY for ai.api_key.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if settingsService == nil {
			return errNotConfigured("settings")
		}
		if err := settingsService.Set(args[0], args[1]); err != nil {
			return err
		}
		display := args[1]
		if args[0] == "ai.api_key" {
			display = maskAPIKey(display)
		}
		cmd.Printf("Set %s = %s\n", args[0], display)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the recognised setting keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if settingsService == nil {
			return errNotConfigured("settings")
		}
		for _, k := range settingsService.Keys() {
			cmd.Println(k)
		}
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the settings and AI provider credentials",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	s, err := settingsService.Get()
	if err != nil {
		return err
	}

	cmd.Println("Store:")
	cmd.Printf("  Data dir:        %s\n", s.Store.DataDir)
	cmd.Printf("  Namespace:       %s\n", s.Store.Namespace)
	cmd.Printf("  Staging dir:     %s\n", s.StagingDir)
	cmd.Printf("  Parse mode:      %s\n", s.ParseMode)
	cmd.Println()

	cmd.Println("Pipeline:")
	cmd.Printf("  Folder filter:   %s\n", orNone(s.Pipeline.Folder))
	cmd.Printf("  Page ceiling:    %d\n", s.Pipeline.PageCeiling)
	cmd.Printf("  Lookback pages:  %d\n", s.Pipeline.LookbackPages)
	cmd.Printf("  Summary chars:   %d\n", s.Pipeline.SummaryChars)
	cmd.Printf("  Concurrency:     %d\n", s.Pipeline.Concurrency)
	cmd.Println()

	cmd.Println("Chunker:")
	cmd.Printf("  Splitter:        %s\n", s.Chunker.Splitter)
	cmd.Printf("  Chunk size:      %d\n", s.Chunker.ChunkSize)
	cmd.Printf("  Overlap:         %d\n", s.Chunker.Overlap)
	cmd.Println()

	cmd.Println("AI:")
	if !s.AI.IsConfigured() {
		cmd.Println("  Not configured (metadata, summary and signature stages are skipped)")
	} else {
		cmd.Printf("  Provider:        %s\n", s.AI.Provider)
		cmd.Printf("  Model:           %s\n", orNone(s.AI.Model))
		cmd.Printf("  API key:         %s\n", maskAPIKey(s.AI.APIKey))
		cmd.Printf("  Requests/sec:    %g\n", s.AI.RequestsPerSecond)
	}
	cmd.Println()

	cmd.Println("Schedule:")
	cmd.Printf("  Pipeline:        %s\n", orNone(s.Schedule.Pipeline))
	cmd.Printf("  Publish lag:     %s\n", s.Publish.TargetLag)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	s, err := settingsService.Get()
	if err != nil {
		return err
	}
	cmd.Println("Settings: OK")

	if validateAI == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(commandContext(cmd), 30*time.Second)
	defer cancel()
	if err := validateAI(ctx, &s.AI); err != nil {
		return fmt.Errorf("AI provider check failed: %w", err)
	}
	cmd.Printf("AI provider %s: OK\n", s.AI.Provider)
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
