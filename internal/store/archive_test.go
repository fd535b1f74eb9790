package store_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/mocks"
	"github.com/feral-file/ff-appimages/internal/store"
)

func init() {
	// Initialize logger for testing
	_ = logger.Initialize(logger.Config{
		Debug: true,
	})
}

func TestArchiveStore_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "archives")
	s := store.NewArchiveStore(adapter.NewFileSystem(), adapter.NewClock(), dir)

	id := uuid.New().String()
	require.NoError(t, s.Save(ctx, id, []byte("zip-bytes")))

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id+".zip", entries[0].Name())

	f, err := s.Open(ctx, id)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, []byte("zip-bytes"), data)

	require.NoError(t, s.Delete(ctx, id))

	_, err = s.Open(ctx, id)
	assert.ErrorIs(t, err, domain.ErrArchiveNotFound)
	assert.ErrorIs(t, s.Delete(ctx, id), domain.ErrArchiveNotFound)
}

func TestArchiveStore_InvalidIDs(t *testing.T) {
	ctx := context.Background()
	s := store.NewArchiveStore(adapter.NewFileSystem(), adapter.NewClock(), t.TempDir())

	ids := []string{"", "../etc/passwd", "not-a-uuid", "123"}
	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			_, err := s.Open(ctx, id)
			assert.ErrorIs(t, err, domain.ErrArchiveNotFound)
			assert.ErrorIs(t, s.Delete(ctx, id), domain.ErrArchiveNotFound)
			assert.ErrorIs(t, s.Save(ctx, id, []byte("x")), domain.ErrInvalidInput)
		})
	}
}

func TestArchiveStore_ListExpired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	dir := t.TempDir()
	mockClock := mocks.NewMockClock(ctrl)
	s := store.NewArchiveStore(adapter.NewFileSystem(), mockClock, dir)

	now := time.Now()
	oldID := uuid.New().String()
	freshID := uuid.New().String()
	require.NoError(t, s.Save(ctx, oldID, []byte("old")))
	require.NoError(t, s.Save(ctx, freshID, []byte("fresh")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.zip"), []byte("x"), 0600))

	oldTime := now.Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, oldID+".zip"), oldTime, oldTime))

	mockClock.EXPECT().
		Since(gomock.Any()).
		DoAndReturn(func(t time.Time) time.Duration { return now.Sub(t) }).
		Times(2)

	expired, err := s.ListExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{oldID}, expired)
}

func TestArchiveStore_SaveRenameFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockFS := mocks.NewMockFileSystem(ctrl)
	s := store.NewArchiveStore(mockFS, adapter.NewClock(), "archives")

	id := uuid.New().String()
	path := filepath.Join("archives", id+".zip")

	mockFS.EXPECT().MkdirAll("archives", os.FileMode(0750)).Return(nil)
	mockFS.EXPECT().WriteFile(path+".tmp", []byte("data"), os.FileMode(0600)).Return(nil)
	mockFS.EXPECT().Rename(path+".tmp", path).Return(errors.New("cross-device link"))
	mockFS.EXPECT().Remove(path + ".tmp").Return(nil)

	err := s.Save(context.Background(), id, []byte("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cross-device link")
}

func TestArchiveStore_SaveWriteFailureRemovesTmp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockFS := mocks.NewMockFileSystem(ctrl)
	s := store.NewArchiveStore(mockFS, adapter.NewClock(), "archives")

	id := uuid.New().String()
	path := filepath.Join("archives", id+".zip")

	mockFS.EXPECT().MkdirAll("archives", os.FileMode(0750)).Return(nil)
	mockFS.EXPECT().WriteFile(path+".tmp", []byte("data"), os.FileMode(0600)).Return(errors.New("no space left on device"))
	mockFS.EXPECT().Remove(path + ".tmp").Return(nil)

	err := s.Save(context.Background(), id, []byte("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write archive")
	assert.Contains(t, err.Error(), "no space left on device")
}
