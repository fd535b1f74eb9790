package sweeper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/mocks"
	"github.com/feral-file/ff-appimages/internal/sweeper"
)

// testSweeperMocks contains all the mocks needed for testing the sweeper
type testSweeperMocks struct {
	ctrl    *gomock.Controller
	store   *mocks.MockArchiveStore
	clock   *mocks.MockClock
	sweeper sweeper.Sweeper
}

func setupTestSweeper(t *testing.T) *testSweeperMocks {
	err := logger.Initialize(logger.Config{
		Debug: true,
	})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	ctrl := gomock.NewController(t)
	tm := &testSweeperMocks{
		ctrl:  ctrl,
		store: mocks.NewMockArchiveStore(ctrl),
		clock: mocks.NewMockClock(ctrl),
	}

	tm.sweeper = sweeper.NewArchiveRetentionSweeper(
		&sweeper.ArchiveRetentionSweeperConfig{
			Interval:       time.Minute,
			Retention:      time.Hour,
			WorkerPoolSize: 2,
		},
		tm.store,
		tm.clock,
	)

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Millisecond).AnyTimes()
	return tm
}

// expectSleep makes the first sleep block forever and signals when it starts
func expectSleep(tm *testSweeperMocks) <-chan struct{} {
	sleeping := make(chan struct{})
	tm.clock.EXPECT().
		After(time.Minute).
		DoAndReturn(func(time.Duration) <-chan time.Time {
			close(sleeping)
			return make(chan time.Time)
		})
	return sleeping
}

func startSweeper(t *testing.T, ctx context.Context, s sweeper.Sweeper) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()
	return done
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sweeper")
	}
}

func TestArchiveRetentionSweeper_Name(t *testing.T) {
	tm := setupTestSweeper(t)
	defer tm.ctrl.Finish()

	assert.Equal(t, "archive-retention-sweeper", tm.sweeper.Name())
}

func TestArchiveRetentionSweeper_DeletesExpired(t *testing.T) {
	tm := setupTestSweeper(t)
	defer tm.ctrl.Finish()

	ctx := context.Background()
	tm.store.EXPECT().
		ListExpired(gomock.Any(), time.Hour).
		Return([]string{"a", "b", "c"}, nil)
	tm.store.EXPECT().Delete(gomock.Any(), "a").Return(nil)
	tm.store.EXPECT().Delete(gomock.Any(), "b").Return(domain.ErrArchiveNotFound)
	tm.store.EXPECT().Delete(gomock.Any(), "c").Return(errors.New("permission denied"))
	sleeping := expectSleep(tm)

	done := startSweeper(t, ctx, tm.sweeper)
	waitFor(t, sleeping)

	require.NoError(t, tm.sweeper.Stop(ctx))
	require.NoError(t, <-done)
}

func TestArchiveRetentionSweeper_ListErrorKeepsRunning(t *testing.T) {
	tm := setupTestSweeper(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.store.EXPECT().
		ListExpired(gomock.Any(), time.Hour).
		Return(nil, errors.New("disk unavailable"))
	sleeping := expectSleep(tm)

	done := startSweeper(t, ctx, tm.sweeper)
	waitFor(t, sleeping)

	cancel()
	require.NoError(t, <-done)
}

func TestArchiveRetentionSweeper_StartTwice(t *testing.T) {
	tm := setupTestSweeper(t)
	defer tm.ctrl.Finish()

	ctx := context.Background()
	tm.store.EXPECT().ListExpired(gomock.Any(), time.Hour).Return(nil, nil)
	sleeping := expectSleep(tm)

	done := startSweeper(t, ctx, tm.sweeper)
	waitFor(t, sleeping)

	err := tm.sweeper.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	require.NoError(t, tm.sweeper.Stop(ctx))
	require.NoError(t, <-done)
}

func TestArchiveRetentionSweeper_StopWhenNotRunning(t *testing.T) {
	tm := setupTestSweeper(t)
	defer tm.ctrl.Finish()

	assert.NoError(t, tm.sweeper.Stop(context.Background()))
}
