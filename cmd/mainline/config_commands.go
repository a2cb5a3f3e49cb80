package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mainline/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set the encoder api_key (or export MAINLINE_ENCODER_API_KEY) before running mainline.")
			return nil
		},
	}

	cmd.Flags().StringVar(&targetPath, "path", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the resolved configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Data dir:          %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "Log dir:           %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Output base:       %s\n", cfg.Paths.OutputBase)
			fmt.Fprintf(out, "Encoder:           %s\n", cfg.Encoder.BaseURL)
			fmt.Fprintf(out, "API key set:       %s\n", yesNo(strings.TrimSpace(cfg.Encoder.APIKey) != ""))
			fmt.Fprintf(out, "Target height:     %dp\n", cfg.Transcode.TargetHeight)
			fmt.Fprintf(out, "Max batch:         %d\n", cfg.Transcode.MaxBatchSize)
			fmt.Fprintf(out, "Max concurrent:    %d\n", cfg.Transcode.MaxConcurrentSubmissions)
			fmt.Fprintf(out, "Submit delay:      %s (+ up to %s jitter)\n", cfg.Transcode.SubmitDelay(), cfg.Transcode.SubmitJitter())
			fmt.Fprintf(out, "Batch cooldown:    %s\n", cfg.Transcode.BatchCooldown())
			fmt.Fprintf(out, "Poll interval:     %s\n", cfg.Transcode.PollInterval())
			fmt.Fprintf(out, "Poll budget:       %d\n", cfg.Transcode.MaxPollAttempts)
			fmt.Fprintf(out, "Stuck threshold:   %s\n", cfg.Transcode.StuckThreshold())
			return nil
		},
	}
}
