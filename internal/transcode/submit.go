package transcode

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"mainline/internal/assets"
	"mainline/internal/encoder"
	"mainline/internal/logging"
)

// ProcessCandidates runs one submission pass: it selects a bounded batch of
// eligible assets, claims each one, and submits it to the encoding service.
// Submissions run in windows of at most MaxConcurrentSubmissions with
// staggered launches, and the batch never exceeds MaxBatchSize regardless of
// backlog size. Scoped to a project when projectID is non-empty.
func (o *Orchestrator) ProcessCandidates(ctx context.Context, projectID string) (ProcessSummary, error) {
	var summary ProcessSummary

	candidates, err := o.store.CandidatesForTranscode(ctx, projectID, o.cfg.Transcode.MaxBatchSize)
	if err != nil {
		return summary, fmt.Errorf("select candidates: %w", err)
	}
	summary.Eligible = len(candidates)
	if len(candidates) == 0 {
		return summary, nil
	}

	o.logger.Info("starting submission pass",
		logging.Int("candidates", len(candidates)),
		logging.String(logging.FieldProjectID, projectID),
	)

	windowSize := o.cfg.Transcode.MaxConcurrentSubmissions
	if windowSize <= 0 {
		windowSize = 1
	}

	var mu sync.Mutex
	for start := 0; start < len(candidates); start += windowSize {
		if ctx.Err() != nil {
			break
		}
		end := start + windowSize
		if end > len(candidates) {
			end = len(candidates)
		}

		var wg sync.WaitGroup
		for i, candidate := range candidates[start:end] {
			// Stagger launches so the encoder sees a trickle, not a
			// thundering herd.
			if i > 0 {
				o.sleep(o.submitStagger())
			}
			wg.Add(1)
			go func(asset *assets.Asset) {
				defer wg.Done()
				outcome := o.submitOne(ctx, asset)
				mu.Lock()
				switch outcome {
				case submitStarted:
					summary.Started++
				case submitSkipped:
					summary.Skipped++
				case submitFailed:
					summary.Failed++
				}
				mu.Unlock()
			}(candidate)
		}
		wg.Wait()

		if end < len(candidates) {
			o.sleep(o.cfg.Transcode.BatchCooldown())
		}
	}

	o.logger.Info("submission pass finished",
		logging.Int("eligible", summary.Eligible),
		logging.Int("started", summary.Started),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
	)
	return summary, ctx.Err()
}

type submitOutcome int

const (
	submitStarted submitOutcome = iota
	submitSkipped
	submitFailed
)

func (o *Orchestrator) submitOne(ctx context.Context, asset *assets.Asset) submitOutcome {
	logger := o.logger.With(
		logging.Int64(logging.FieldAssetID, asset.ID),
		logging.String(logging.FieldAssetKey, asset.Key),
		logging.String(logging.FieldProjectID, asset.ProjectID),
	)

	targetHeight := o.cfg.Transcode.TargetHeight
	claimed, err := o.store.ClaimForTranscode(ctx, asset.ID, targetHeight)
	if err != nil {
		if errors.Is(err, assets.ErrNotClaimable) {
			logger.Debug("candidate no longer claimable")
			return submitSkipped
		}
		logger.Error("claim failed", logging.Error(err))
		return submitFailed
	}

	output := o.resolver.Resolve(claimed.ProjectID, claimed.Key, targetHeight)

	submitCtx, cancel := context.WithTimeout(ctx, o.cfg.Transcode.SubmitTimeout())
	defer cancel()

	job, err := o.svc.CreateJob(submitCtx, encoder.NewJobRequest{
		SourceLocation:   claimed.SourceLocation,
		OutputLocation:   output,
		TargetHeight:     targetHeight,
		VideoBitrateKbps: o.cfg.Transcode.VideoBitrateKbps,
		AudioBitrateKbps: o.cfg.Transcode.AudioBitrateKbps,
		AssetKey:         claimed.Key,
		ProjectID:        claimed.ProjectID,
	})
	if err != nil {
		// Rate limits included: the claim already happened, and a
		// processing asset without a job handle is the one state this
		// system refuses to leave behind.
		logger.Error("job submission failed", logging.Error(err))
		if failErr := o.store.FailTranscode(ctx, claimed.ID, fmt.Sprintf("submit job: %v", err)); failErr != nil {
			logger.Error("record submission failure", logging.Error(failErr))
		}
		return submitFailed
	}

	if err := o.store.SetJobHandle(ctx, claimed.ID, job.ID, output); err != nil {
		logger.Error("persist job handle", logging.String(logging.FieldJobID, job.ID), logging.Error(err))
		if failErr := o.store.FailTranscode(ctx, claimed.ID, fmt.Sprintf("persist job handle %s: %v", job.ID, err)); failErr != nil {
			logger.Error("record handle failure", logging.Error(failErr))
		}
		return submitFailed
	}

	logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("target_height", targetHeight),
	)
	return submitStarted
}

func (o *Orchestrator) submitStagger() time.Duration {
	delay := o.cfg.Transcode.SubmitDelay()
	if jitter := o.cfg.Transcode.SubmitJitter(); jitter > 0 {
		delay += rand.N(jitter)
	}
	return delay
}
