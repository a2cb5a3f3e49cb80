package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mainline/internal/assets"
	"mainline/internal/config"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Inspect asset records",
	}
	assetsCmd.AddCommand(newAssetsListCommand(ctx))
	assetsCmd.AddCommand(newAssetsShowCommand(ctx))
	return assetsCmd
}

func newAssetsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *assets.Store) error {
				var statuses []assets.Status
				if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
					for _, raw := range strings.Split(trimmed, ",") {
						status, ok := assets.ParseStatus(raw)
						if !ok {
							return fmt.Errorf("unknown status %q (valid: %s)", raw, statusNames())
						}
						statuses = append(statuses, status)
					}
				}

				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if project := ctx.project(); project != "" {
					filtered := items[:0]
					for _, item := range items {
						if item.ProjectID == project {
							filtered = append(filtered, item)
						}
					}
					items = filtered
				}

				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No assets found")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.ProjectID,
						string(item.Status),
						flagMark(item.NeedsTranscoding),
						flagMark(item.PossiblyStuck),
						item.JobID,
						item.MediaLocation,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Project", "Status", "Transcode", "Stuck", "Job", "Media"},
					rows,
					1,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Comma-separated status filter (ready, processing, error)")
	return cmd
}

func newAssetsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <asset-id>",
		Short: "Show one asset in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAssetID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *assets.Store) error {
				asset, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asset == nil {
					return fmt.Errorf("asset %d not found", id)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:             %d\n", asset.ID)
				fmt.Fprintf(out, "Key:            %s\n", asset.Key)
				fmt.Fprintf(out, "Project:        %s\n", asset.ProjectID)
				fmt.Fprintf(out, "Status:         %s\n", asset.Status)
				fmt.Fprintf(out, "Needs transcode: %s\n", yesNo(asset.NeedsTranscoding))
				fmt.Fprintf(out, "Source:         %s\n", asset.SourceLocation)
				fmt.Fprintf(out, "Media:          %s\n", asset.MediaLocation)
				if asset.Format != "" || asset.Codec != "" {
					fmt.Fprintf(out, "Media info:     %s/%s %dx%d\n", asset.Format, asset.Codec, asset.Width, asset.Height)
				}
				if asset.AssignedSection != "" {
					fmt.Fprintf(out, "Section:        %s\n", asset.AssignedSection)
				}
				if asset.JobID != "" {
					fmt.Fprintf(out, "Job:            %s\n", asset.JobID)
					if asset.JobSubmittedAt != nil {
						fmt.Fprintf(out, "Submitted:      %s (%s ago)\n",
							asset.JobSubmittedAt.Format(time.RFC3339),
							time.Since(*asset.JobSubmittedAt).Round(time.Second))
					}
				}
				if asset.PossiblyStuck {
					fmt.Fprintln(out, "Possibly stuck: yes")
				}
				if asset.LastError != "" {
					fmt.Fprintf(out, "Last error:     %s\n", asset.LastError)
				}
				fmt.Fprintf(out, "Attempts:       %d\n", asset.Attempts)
				return nil
			})
		},
	}
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var (
		formatFlag string
		codecFlag  string
		widthFlag  int
		heightFlag int
	)

	cmd := &cobra.Command{
		Use:   "ingest <source-path>",
		Short: "Register an uploaded video for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := ctx.project()
			if project == "" {
				return fmt.Errorf("ingest requires --project")
			}
			return ctx.withStore(func(cfg *config.Config, store *assets.Store) error {
				asset, err := store.Ingest(cmd.Context(), assets.NewAssetParams{
					ProjectID:        project,
					SourceLocation:   args[0],
					Format:           formatFlag,
					Codec:            codecFlag,
					Width:            widthFlag,
					Height:           heightFlag,
					NeedsTranscoding: assets.RequiresTranscode(formatFlag, codecFlag),
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Ingested asset %d (key %s)\n", asset.ID, asset.Key)
				if asset.NeedsTranscoding {
					fmt.Fprintln(out, "Asset will be transcoded on the next processing pass")
				} else {
					fmt.Fprintln(out, "Asset is already browser playable")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "", "Container format of the upload (e.g. avi, mp4)")
	cmd.Flags().StringVar(&codecFlag, "codec", "", "Video codec of the upload (e.g. mpeg2, h264)")
	cmd.Flags().IntVar(&widthFlag, "width", 0, "Source width in pixels")
	cmd.Flags().IntVar(&heightFlag, "height", 0, "Source height in pixels")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [asset-id]",
		Short: "Return errored assets to the candidate pool",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if len(args) == 1 {
				parsed, err := parseAssetID(args[0])
				if err != nil {
					return err
				}
				id = parsed
			}
			return ctx.withStore(func(cfg *config.Config, store *assets.Store) error {
				count, err := store.RetryErrored(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d asset(s) to ready\n", count)
				return nil
			})
		},
	}
}

func newForceFailCommand(ctx *commandContext) *cobra.Command {
	var reasonFlag string

	cmd := &cobra.Command{
		Use:   "force-fail <asset-id>",
		Short: "Abandon an in-flight job and mark the asset errored",
		Long: "Force-fail moves a processing asset to the error state without waiting " +
			"for the encoder, typically after a possibly-stuck advisory. The asset " +
			"becomes eligible for retry afterwards.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAssetID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *assets.Store) error {
				if err := store.ForceFail(cmd.Context(), id, reasonFlag); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Asset %d marked errored\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reasonFlag, "reason", "", "Reason recorded on the asset")
	return cmd
}

func parseAssetID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid asset id %q", raw)
	}
	return id, nil
}

func statusNames() string {
	names := make([]string, 0, len(assets.AllStatuses()))
	for _, status := range assets.AllStatuses() {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}

func flagMark(value bool) string {
	if value {
		return "yes"
	}
	return ""
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
