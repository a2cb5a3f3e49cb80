package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mainline/internal/assets"
	"mainline/internal/config"
	"mainline/internal/transcode"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run one submission pass over eligible assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(func(cfg *config.Config, store *assets.Store, orch *transcode.Orchestrator) error {
				summary, err := orch.ProcessCandidates(cmd.Context(), ctx.project())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Eligible:  %d\n", summary.Eligible)
				fmt.Fprintf(out, "Started:   %d\n", summary.Started)
				fmt.Fprintf(out, "Skipped:   %d\n", summary.Skipped)
				fmt.Fprintf(out, "Failed:    %d\n", summary.Failed)
				return nil
			})
		},
	}
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over in-flight jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(func(cfg *config.Config, store *assets.Store, orch *transcode.Orchestrator) error {
				summary, err := orch.ReconcilePending(cmd.Context(), ctx.project())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Checked:        %d\n", summary.Checked)
				fmt.Fprintf(out, "Completed:      %d\n", summary.Completed)
				fmt.Fprintf(out, "Failed:         %d\n", summary.Failed)
				fmt.Fprintf(out, "Possibly stuck: %d\n", summary.PossiblyStuck)
				fmt.Fprintf(out, "Healed:         %d\n", summary.Healed)
				if summary.RateLimitHits > 0 {
					fmt.Fprintf(out, "Rate limited:   %d\n", summary.RateLimitHits)
				}
				if summary.Remaining > 0 {
					fmt.Fprintf(out, "Remaining:      %d\n", summary.Remaining)
				}
				return nil
			})
		},
	}
}
