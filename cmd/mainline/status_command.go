package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mainline/internal/assets"
	"mainline/internal/config"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show asset lifecycle health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *assets.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}

				rows := [][]string{
					{"Total", strconv.Itoa(health.Total)},
					{"Ready", strconv.Itoa(health.Ready)},
					{"Awaiting transcode", strconv.Itoa(health.NeedsTranscoding)},
					{"Processing", strconv.Itoa(health.Processing)},
					{"Possibly stuck", strconv.Itoa(health.PossiblyStuck)},
					{"Errored", strconv.Itoa(health.Errored)},
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"State", "Count"}, rows, 2))
				fmt.Fprintf(out, "Database: %s\n", store.Path())

				if health.PossiblyStuck > 0 {
					processing, err := store.ProcessingAssets(cmd.Context(), ctx.project())
					if err != nil {
						return err
					}
					stuckRows := make([][]string, 0, health.PossiblyStuck)
					for _, asset := range processing {
						if !asset.PossiblyStuck {
							continue
						}
						age := ""
						if asset.JobSubmittedAt != nil {
							age = time.Since(*asset.JobSubmittedAt).Round(time.Second).String()
						}
						stuckRows = append(stuckRows, []string{
							strconv.FormatInt(asset.ID, 10),
							asset.ProjectID,
							asset.JobID,
							age,
						})
					}
					if len(stuckRows) > 0 {
						fmt.Fprintln(out, "\nPossibly stuck jobs (use force-fail to abandon):")
						fmt.Fprintln(out, renderTable(
							[]string{"ID", "Project", "Job", "Age"},
							stuckRows,
							1, 4,
						))
					}
				}
				return nil
			})
		},
	}
}
