package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mainline/internal/assets"
	"mainline/internal/encoder"
	"mainline/internal/logging"
)

// fallbackWidth is used when an asset's source dimensions are unknown and the
// real output width cannot be derived. 854x480 is the 16:9 shape most crawler
// footage ends up in.
const fallbackWidth = 854

// ReconcilePending runs one reconciliation pass over in-flight assets. Each
// asset's job is looked up against the encoding service; terminal states
// finalize the asset while non-terminal states older than the stuck threshold
// pick up an advisory flag. Status checks run sequentially and stop once the
// poll budget for the pass is spent.
func (o *Orchestrator) ReconcilePending(ctx context.Context, projectID string) (ReconcileSummary, error) {
	var summary ReconcileSummary

	pending, err := o.store.ProcessingAssets(ctx, projectID)
	if err != nil {
		return summary, fmt.Errorf("select processing assets: %w", err)
	}
	if len(pending) == 0 {
		return summary, nil
	}

	o.logger.Info("starting reconcile pass",
		logging.Int("in_flight", len(pending)),
		logging.String(logging.FieldProjectID, projectID),
	)

	budget := o.cfg.Transcode.MaxPollAttempts
	for i, asset := range pending {
		if ctx.Err() != nil {
			summary.Remaining += len(pending) - i
			break
		}
		if budget > 0 && summary.Checked >= budget {
			summary.Remaining += len(pending) - i
			break
		}
		if summary.Checked > 0 {
			o.sleep(o.cfg.Transcode.PollInterval())
		}
		o.reconcileOne(ctx, asset, &summary)
	}

	o.logger.Info("reconcile pass finished",
		logging.Int("checked", summary.Checked),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Int("possibly_stuck", summary.PossiblyStuck),
		logging.Int("healed", summary.Healed),
		logging.Int("remaining", summary.Remaining),
	)
	return summary, ctx.Err()
}

func (o *Orchestrator) reconcileOne(ctx context.Context, asset *assets.Asset, summary *ReconcileSummary) {
	logger := o.logger.With(
		logging.Int64(logging.FieldAssetID, asset.ID),
		logging.String(logging.FieldAssetKey, asset.Key),
		logging.String(logging.FieldJobID, asset.JobID),
	)

	// A processing asset without a job handle means the submitter died
	// between claim and persist. Nothing can ever finish it, so it heals to
	// the error state where retry can pick it up.
	if asset.JobID == "" {
		if err := o.store.FailTranscode(ctx, asset.ID, "processing asset has no job handle"); err != nil {
			logger.Error("heal handleless asset", logging.Error(err))
			summary.CheckErrors++
			return
		}
		logger.Warn("healed asset without job handle")
		summary.Healed++
		return
	}

	job, err := o.svc.GetJob(ctx, asset.JobID)
	summary.Checked++
	if err != nil {
		switch {
		case errors.Is(err, encoder.ErrRateLimited):
			summary.RateLimitHits++
			// The asset stays in flight for the next pass, so it is
			// leftover work like anything past the poll budget.
			summary.Remaining++
			logger.Warn("status check rate limited, backing off")
			o.sleep(o.cfg.Transcode.RateLimitBackoff())
		case errors.Is(err, encoder.ErrJobNotFound):
			if failErr := o.store.FailTranscode(ctx, asset.ID, fmt.Sprintf("encoder has no record of job %s", asset.JobID)); failErr != nil {
				logger.Error("heal unknown job", logging.Error(failErr))
				summary.CheckErrors++
				return
			}
			logger.Warn("healed asset with unknown job")
			summary.Healed++
		default:
			summary.CheckErrors++
			logger.Warn("status check failed", logging.Error(err))
		}
		return
	}

	switch job.Status {
	case encoder.StatusComplete:
		o.completeAsset(ctx, asset, job, logger, summary)
	case encoder.StatusError, encoder.StatusCanceled:
		message := job.ErrorMessage
		if message == "" {
			message = fmt.Sprintf("encoder job %s ended as %s", job.ID, job.Status)
		}
		if err := o.store.FailTranscode(ctx, asset.ID, message); err != nil {
			logger.Error("record job failure", logging.Error(err))
			summary.CheckErrors++
			return
		}
		logger.Info("job failed", logging.String("job_status", string(job.Status)))
		summary.Failed++
	default:
		if threshold := o.cfg.Transcode.StuckThreshold(); threshold > 0 && !asset.PossiblyStuck {
			if age := asset.JobAge(time.Now()); age > threshold {
				if err := o.store.MarkPossiblyStuck(ctx, asset.ID); err != nil {
					logger.Error("mark possibly stuck", logging.Error(err))
					summary.CheckErrors++
					return
				}
				logger.Warn("job outstanding past stuck threshold",
					logging.Duration("job_age", age),
					logging.Duration("threshold", threshold),
				)
				summary.PossiblyStuck++
			}
		}
	}
}

func (o *Orchestrator) completeAsset(ctx context.Context, asset *assets.Asset, job *encoder.Job, logger *slog.Logger, summary *ReconcileSummary) {
	height := asset.TargetHeight
	if height <= 0 {
		height = o.cfg.Transcode.TargetHeight
	}

	// The system's own naming convention is the source of truth for where
	// output lives; the service's self-reported URL is ignored.
	output := asset.ExpectedOutput
	if output == "" {
		output = o.resolver.Resolve(asset.ProjectID, asset.Key, height)
	}

	width := scaledWidth(asset.Width, asset.Height, height)
	if err := o.store.CompleteTranscode(ctx, asset.ID, job.ID, output, width, height); err != nil {
		logger.Error("finalize completed job", logging.Error(err))
		summary.CheckErrors++
		return
	}
	logger.Info("job completed", logging.String("output", output))
	summary.Completed++
}

// scaledWidth derives the output width from the source aspect ratio, rounded
// to the nearest even value as encoders require. Unknown source dimensions
// fall back to 16:9.
func scaledWidth(srcWidth, srcHeight, targetHeight int) int {
	if srcWidth <= 0 || srcHeight <= 0 || targetHeight <= 0 {
		return fallbackWidth
	}
	width := (srcWidth*targetHeight + srcHeight/2) / srcHeight
	if width%2 != 0 {
		width++
	}
	if width <= 0 {
		return fallbackWidth
	}
	return width
}
