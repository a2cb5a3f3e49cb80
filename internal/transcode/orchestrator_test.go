package transcode_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"mainline/internal/assets"
	"mainline/internal/config"
	"mainline/internal/encoder"
	"mainline/internal/logging"
	"mainline/internal/testsupport"
	"mainline/internal/transcode"
)

// fakeEncoder is an in-memory stand-in for the encoding service.
type fakeEncoder struct {
	mu      sync.Mutex
	jobs    map[string]*encoder.Job
	nextID  int
	creates int
	gets    int

	createErr  error
	getErr     error
	rateLimits int
}

func newFakeEncoder() *fakeEncoder {
	return &fakeEncoder{jobs: make(map[string]*encoder.Job)}
}

func (f *fakeEncoder) CreateJob(ctx context.Context, req encoder.NewJobRequest) (*encoder.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.rateLimits > 0 {
		f.rateLimits--
		return nil, encoder.ErrRateLimited
	}
	f.nextID++
	job := &encoder.Job{
		ID:             fmt.Sprintf("job-%d", f.nextID),
		Status:         encoder.StatusSubmitted,
		OutputLocation: req.OutputLocation,
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeEncoder) GetJob(ctx context.Context, jobID string) (*encoder.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.rateLimits > 0 {
		f.rateLimits--
		return nil, encoder.ErrRateLimited
	}
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, encoder.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeEncoder) setStatus(jobID string, status encoder.JobStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[jobID]; ok {
		job.Status = status
	}
}

type fixture struct {
	cfg   *config.Config
	store *assets.Store
	svc   *fakeEncoder
	orch  *transcode.Orchestrator
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	svc := newFakeEncoder()
	return &fixture{
		cfg:   cfg,
		store: store,
		svc:   svc,
		orch:  transcode.NewWithService(cfg, store, svc, logging.NewNop()),
	}
}

func TestProcessCandidatesSubmitsBatch(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		testsupport.SeedAsset(t, fx.store, "p-1", fmt.Sprintf("/uploads/a-%d.avi", i))
	}

	summary, err := fx.orch.ProcessCandidates(ctx, "")
	if err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}
	if summary.Eligible != 3 || summary.Started != 3 || summary.Failed != 0 || summary.Skipped != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	processing, err := fx.store.ProcessingAssets(ctx, "")
	if err != nil {
		t.Fatalf("ProcessingAssets: %v", err)
	}
	if len(processing) != 3 {
		t.Fatalf("expected 3 processing assets, got %d", len(processing))
	}
	for _, asset := range processing {
		if asset.JobID == "" {
			t.Fatalf("asset %d has no job handle", asset.ID)
		}
		if asset.ExpectedOutput == "" {
			t.Fatalf("asset %d has no expected output", asset.ID)
		}
		if asset.TargetHeight != fx.cfg.Transcode.TargetHeight {
			t.Fatalf("asset %d target height = %d", asset.ID, asset.TargetHeight)
		}
	}
}

func TestProcessCandidatesBoundsBatch(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Transcode.MaxBatchSize = 2
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		testsupport.SeedAsset(t, fx.store, "p-1", fmt.Sprintf("/uploads/b-%d.avi", i))
	}

	summary, err := fx.orch.ProcessCandidates(ctx, "")
	if err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}
	if summary.Eligible != 2 || summary.Started != 2 {
		t.Fatalf("expected batch of 2, got %+v", summary)
	}
	if fx.svc.creates != 2 {
		t.Fatalf("expected 2 encoder calls, got %d", fx.svc.creates)
	}
}

func TestProcessCandidatesEmptyPool(t *testing.T) {
	fx := newFixture(t)

	summary, err := fx.orch.ProcessCandidates(context.Background(), "")
	if err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}
	if summary.Eligible != 0 || fx.svc.creates != 0 {
		t.Fatalf("expected no work, got %+v with %d creates", summary, fx.svc.creates)
	}
}

func TestProcessCandidatesRateLimitFailsAsset(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	asset := testsupport.SeedAsset(t, fx.store, "p-1", "/uploads/limited.avi")
	fx.svc.rateLimits = 1

	summary, err := fx.orch.ProcessCandidates(ctx, "")
	if err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}
	if summary.Failed != 1 || summary.Started != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	// The claim happened before the remote call, so a rate-limited
	// submission lands in the error state rather than lingering as
	// processing without a job.
	got, err := fx.store.GetByID(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != assets.StatusError {
		t.Fatalf("expected errored asset, got %+v", got)
	}
	if got.JobID != "" {
		t.Fatal("expected no job handle")
	}

	// The external reset path makes it a candidate again.
	if _, err := fx.store.RetryErrored(ctx, asset.ID); err != nil {
		t.Fatalf("RetryErrored: %v", err)
	}
	summary, err = fx.orch.ProcessCandidates(ctx, "")
	if err != nil {
		t.Fatalf("second ProcessCandidates: %v", err)
	}
	if summary.Started != 1 {
		t.Fatalf("expected retry submission, got %+v", summary)
	}
}

func TestProcessCandidatesSubmissionFailure(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	asset := testsupport.SeedAsset(t, fx.store, "p-1", "/uploads/broken.avi")
	fx.svc.createErr = fmt.Errorf("encoder returned 500")

	summary, err := fx.orch.ProcessCandidates(ctx, "")
	if err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}
	if summary.Failed != 1 || summary.Started != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	got, err := fx.store.GetByID(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != assets.StatusError || got.LastError == "" {
		t.Fatalf("expected errored asset with message, got %+v", got)
	}
}

func TestReconcileCompletesFinishedJobs(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	asset := testsupport.SeedAsset(t, fx.store, "p-1", "/uploads/done.avi")
	if _, err := fx.orch.ProcessCandidates(ctx, ""); err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}

	claimed, err := fx.store.GetByID(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	fx.svc.setStatus(claimed.JobID, encoder.StatusComplete)

	summary, err := fx.orch.ReconcilePending(ctx, "")
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if summary.Completed != 1 || summary.Checked != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	final, err := fx.store.GetByID(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.Status != assets.StatusReady || final.NeedsTranscoding {
		t.Fatalf("expected playable ready asset, got %+v", final)
	}
	if final.MediaLocation != claimed.ExpectedOutput {
		t.Fatalf("media location %q, want %q", final.MediaLocation, claimed.ExpectedOutput)
	}
	// 720x576 source scaled to 480p, rounded to even.
	if final.Width != 600 || final.Height != 480 {
		t.Fatalf("unexpected dimensions %dx%d", final.Width, final.Height)
	}
}

func TestReconcileFailsErroredAndCanceledJobs(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	first := testsupport.SeedAsset(t, fx.store, "p-1", "/uploads/err.avi")
	second := testsupport.SeedAsset(t, fx.store, "p-1", "/uploads/cancel.avi")
	if _, err := fx.orch.ProcessCandidates(ctx, ""); err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}

	firstClaimed, _ := fx.store.GetByID(ctx, first.ID)
	secondClaimed, _ := fx.store.GetByID(ctx, second.ID)
	fx.svc.setStatus(firstClaimed.JobID, encoder.StatusError)
	fx.svc.setStatus(secondClaimed.JobID, encoder.StatusCanceled)

	summary, err := fx.orch.ReconcilePending(ctx, "")
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if summary.Failed != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	for _, id := range []int64{first.ID, second.ID} {
		got, err := fx.store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Status != assets.StatusError {
			t.Fatalf("asset %d status = %s", id, got.Status)
		}
	}
}

func TestReconcileLeavesInProgressAlone(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	asset := testsupport.SeedAsset(t, fx.store, "p-1", "/uploads/progress.avi")
	if _, err := fx.orch.ProcessCandidates(ctx, ""); err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}
	claimed, _ := fx.store.GetByID(ctx, asset.ID)
	fx.svc.setStatus(claimed.JobID, encoder.StatusProgressing)

	summary, err := fx.orch.ReconcilePending(ctx, "")
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if summary.Completed != 0 || summary.Failed != 0 || summary.PossiblyStuck != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	got, _ := fx.store.GetByID(ctx, asset.ID)
	if got.Status != assets.StatusProcessing || got.PossiblyStuck {
		t.Fatalf("expected untouched processing asset, got %+v", got)
	}
}

func TestReconcileMarksStaleJobsPossiblyStuck(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Transcode.StuckThresholdMinutes = 0
	ctx := context.Background()

	asset := testsupport.SeedAsset(t, fx.store, "p-1", "/uploads/stale.avi")
	if _, err := fx.orch.ProcessCandidates(ctx, ""); err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}
	claimed, _ := fx.store.GetByID(ctx, asset.ID)
	fx.svc.setStatus(claimed.JobID, encoder.StatusProgressing)

	// A zero threshold disables the advisory entirely.
	summary, err := fx.orch.ReconcilePending(ctx, "")
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if summary.PossiblyStuck != 0 {
		t.Fatalf("expected no advisory with disabled threshold, got %+v", summary)
	}

	// A sub-minute threshold is not expressible, so rewrite the submission
	// timestamp far into the past instead.
	fx.cfg.Transcode.StuckThresholdMinutes = 1
	testsupport.BackdateJob(t, fx.store, claimed.ID, 2*time.Minute)

	summary, err = fx.orch.ReconcilePending(ctx, "")
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if summary.PossiblyStuck != 1 {
		t.Fatalf("expected 1 advisory, got %+v", summary)
	}

	got, _ := fx.store.GetByID(ctx, asset.ID)
	if !got.PossiblyStuck || got.Status != assets.StatusProcessing || got.JobID == "" {
		t.Fatalf("expected advisory-only flag, got %+v", got)
	}

	// Repeat passes do not double-count an existing advisory.
	summary, err = fx.orch.ReconcilePending(ctx, "")
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if summary.PossiblyStuck != 0 {
		t.Fatalf("expected no new advisory, got %+v", summary)
	}
}

func TestReconcileHealsMissingJobHandle(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	asset := testsupport.SeedAsset(t, fx.store, "p-1", "/uploads/handleless.avi")
	if _, err := fx.store.ClaimForTranscode(ctx, asset.ID, 480); err != nil {
		t.Fatalf("ClaimForTranscode: %v", err)
	}

	summary, err := fx.orch.ReconcilePending(ctx, "")
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if summary.Healed != 1 || summary.Checked != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	got, _ := fx.store.GetByID(ctx, asset.ID)
	if got.Status != assets.StatusError {
		t.Fatalf("expected healed asset in error state, got %s", got.Status)
	}
}

func TestReconcileHealsUnknownJob(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	asset := testsupport.SeedAsset(t, fx.store, "p-1", "/uploads/unknown.avi")
	if _, err := fx.store.ClaimForTranscode(ctx, asset.ID, 480); err != nil {
		t.Fatalf("ClaimForTranscode: %v", err)
	}
	if err := fx.store.SetJobHandle(ctx, asset.ID, "job-vanished", ""); err != nil {
		t.Fatalf("SetJobHandle: %v", err)
	}

	summary, err := fx.orch.ReconcilePending(ctx, "")
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if summary.Healed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	got, _ := fx.store.GetByID(ctx, asset.ID)
	if got.Status != assets.StatusError {
		t.Fatalf("expected error state, got %s", got.Status)
	}
}

func TestReconcileRateLimitDoesNotAbortPass(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	first := testsupport.SeedAsset(t, fx.store, "p-1", "/uploads/rl-a.avi")
	second := testsupport.SeedAsset(t, fx.store, "p-1", "/uploads/rl-b.avi")
	if _, err := fx.orch.ProcessCandidates(ctx, ""); err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}
	secondClaimed, _ := fx.store.GetByID(ctx, second.ID)
	fx.svc.setStatus(secondClaimed.JobID, encoder.StatusComplete)

	// First lookup eats the 429, second still completes.
	fx.svc.rateLimits = 1

	summary, err := fx.orch.ReconcilePending(ctx, "")
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if summary.RateLimitHits != 1 {
		t.Fatalf("expected 1 rate limit hit, got %+v", summary)
	}
	if summary.Completed != 1 {
		t.Fatalf("expected pass to continue after 429, got %+v", summary)
	}
	if summary.Remaining != 1 {
		t.Fatalf("expected rate-limited asset counted as remaining, got %+v", summary)
	}

	firstGot, _ := fx.store.GetByID(ctx, first.ID)
	if firstGot.Status != assets.StatusProcessing {
		t.Fatalf("expected rate-limited asset unchanged, got %s", firstGot.Status)
	}
}

func TestReconcileRespectsPollBudget(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Transcode.MaxPollAttempts = 2
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		testsupport.SeedAsset(t, fx.store, "p-1", fmt.Sprintf("/uploads/budget-%d.avi", i))
	}
	if _, err := fx.orch.ProcessCandidates(ctx, ""); err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}

	summary, err := fx.orch.ReconcilePending(ctx, "")
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if summary.Checked != 2 || summary.Remaining != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestReconcileTransientCheckErrorLeavesAsset(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	asset := testsupport.SeedAsset(t, fx.store, "p-1", "/uploads/flaky.avi")
	if _, err := fx.orch.ProcessCandidates(ctx, ""); err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}
	fx.svc.getErr = fmt.Errorf("connection reset")

	summary, err := fx.orch.ReconcilePending(ctx, "")
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if summary.CheckErrors != 1 || summary.Completed != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	got, _ := fx.store.GetByID(ctx, asset.ID)
	if got.Status != assets.StatusProcessing {
		t.Fatalf("expected unchanged asset, got %s", got.Status)
	}
}
