// Package daemon runs the transcode orchestrator on a schedule and enforces
// single-instance execution through a lock file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mainline/internal/assets"
	"mainline/internal/config"
	"mainline/internal/logging"
	"mainline/internal/transcode"
)

// Daemon schedules submission and reconciliation passes.
type Daemon struct {
	cfg    *config.Config
	store  *assets.Store
	orch   *transcode.Orchestrator
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *assets.Store, orch *transcode.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || orch == nil {
		return nil, errors.New("daemon requires config, store, and orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "mainlined.lock")
	return &Daemon{
		cfg:      cfg,
		store:    store,
		orch:     orch,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// LockPath returns the lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Start acquires the instance lock and launches the scheduler loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mainline daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	d.wg.Add(2)
	go d.runLoop(runCtx, "process", d.cfg.Scheduler.ProcessEvery(), func(loopCtx context.Context) error {
		summary, err := d.orch.ProcessCandidates(loopCtx, "")
		if err != nil {
			return err
		}
		if summary.Eligible > 0 {
			d.logger.Info("submission pass",
				logging.Int("eligible", summary.Eligible),
				logging.Int("started", summary.Started),
				logging.Int("skipped", summary.Skipped),
				logging.Int("failed", summary.Failed),
			)
		}
		return nil
	})
	go d.runLoop(runCtx, "reconcile", d.cfg.Scheduler.ReconcileEvery(), func(loopCtx context.Context) error {
		summary, err := d.orch.ReconcilePending(loopCtx, "")
		if err != nil {
			return err
		}
		if summary.Checked > 0 || summary.Healed > 0 {
			d.logger.Info("reconcile pass",
				logging.Int("checked", summary.Checked),
				logging.Int("completed", summary.Completed),
				logging.Int("failed", summary.Failed),
				logging.Int("possibly_stuck", summary.PossiblyStuck),
				logging.Int("remaining", summary.Remaining),
			)
		}
		return nil
	})

	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) runLoop(ctx context.Context, name string, interval time.Duration, pass func(context.Context) error) {
	defer d.wg.Done()

	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run once immediately so a restart does not wait a full interval to
	// resume in-flight work.
	if err := pass(ctx); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error(name+" pass failed", logging.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pass(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Error(name+" pass failed", logging.Error(err))
			}
		}
	}
}

// Stop halts the scheduler loops and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases the asset store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
