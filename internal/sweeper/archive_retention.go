package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/store"
)

// ArchiveRetentionSweeperConfig holds configuration for the archive retention sweeper
type ArchiveRetentionSweeperConfig struct {
	Interval       time.Duration // Time to sleep between sweep cycles
	Retention      time.Duration // Archives older than this are deleted
	WorkerPoolSize int           // Concurrent deletions
}

// archiveRetentionSweeper implements the Sweeper interface for expired archive removal
type archiveRetentionSweeper struct {
	config    *ArchiveRetentionSweeperConfig
	store     store.ArchiveStore
	clock     adapter.Clock
	pool      pond.Pool
	running   atomic.Bool
	stopOnce  sync.Once
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewArchiveRetentionSweeper creates a new archive retention sweeper
func NewArchiveRetentionSweeper(
	config *ArchiveRetentionSweeperConfig,
	st store.ArchiveStore,
	clock adapter.Clock,
) Sweeper {
	return &archiveRetentionSweeper{
		config:    config,
		store:     st,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *archiveRetentionSweeper) Name() string {
	return "archive-retention-sweeper"
}

// Start begins the sweeper's main loop
func (s *archiveRetentionSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting archive retention sweeper",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("retention", s.config.Retention),
		zap.Int("worker_pool_size", s.config.WorkerPoolSize),
	)

	s.pool = pond.NewPool(s.config.WorkerPoolSize, pond.WithContext(ctx))
	defer s.pool.StopAndWait()

	for {
		if err := s.runSweepCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorCtx(ctx, err)
		}

		if !s.sleep(ctx, s.config.Interval) {
			logger.InfoCtx(ctx, "Archive retention sweeper stopping")
			return nil
		}
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *archiveRetentionSweeper) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping archive retention sweeper")
	s.stopOnce.Do(func() { close(s.stopChan) })

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Archive retention sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Archive retention sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSweepCycle deletes every archive past retention
func (s *archiveRetentionSweeper) runSweepCycle(ctx context.Context) error {
	startTime := s.clock.Now()

	ids, err := s.store.ListExpired(ctx, s.config.Retention)
	if err != nil {
		return fmt.Errorf("failed to list expired archives: %w", err)
	}
	if len(ids) == 0 {
		logger.DebugCtx(ctx, "No expired archives")
		return nil
	}

	var deleted, failed atomic.Int32
	group := s.pool.NewGroup()
	for _, id := range ids {
		group.Submit(func() {
			if err := s.store.Delete(ctx, id); err != nil {
				// already gone
				if errors.Is(err, domain.ErrArchiveNotFound) {
					return
				}
				failed.Add(1)
				logger.ErrorCtx(ctx, err, zap.String("id", id))
				return
			}
			deleted.Add(1)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Sweep cycle completed",
		zap.Duration("duration", s.clock.Since(startTime)),
		zap.Int("expired", len(ids)),
		zap.Int32("deleted", deleted.Load()),
		zap.Int32("failed", failed.Load()),
	)
	return nil
}

// sleep sleeps for the given duration but can be interrupted
// Returns true if sleep completed normally
func (s *archiveRetentionSweeper) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-s.clock.After(duration):
		return true
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	}
}
