package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/logger"
)

const archiveExt = ".zip"

// ArchiveStore persists generated archives by id
//
//go:generate mockgen -source=archive.go -destination=../mocks/archive_store.go -package=mocks -mock_names=ArchiveStore=MockArchiveStore
type ArchiveStore interface {
	// Save stores an archive under id, replacing nothing; the write is atomic
	Save(ctx context.Context, id string, data []byte) error

	// Open returns a reader for the archive with the given id
	Open(ctx context.Context, id string) (adapter.File, error)

	// ListExpired returns the ids of archives older than retention
	ListExpired(ctx context.Context, retention time.Duration) ([]string, error)

	// Delete removes the archive with the given id
	Delete(ctx context.Context, id string) error
}

type archiveStore struct {
	fs    adapter.FileSystem
	clock adapter.Clock
	dir   string
}

// NewArchiveStore creates a filesystem-backed archive store rooted at dir
func NewArchiveStore(fs adapter.FileSystem, clock adapter.Clock, dir string) ArchiveStore {
	return &archiveStore{
		fs:    fs,
		clock: clock,
		dir:   dir,
	}
}

// Save stores an archive under id
func (s *archiveStore) Save(ctx context.Context, id string, data []byte) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid archive id %q", domain.ErrInvalidInput, id)
	}

	if err := s.fs.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	path := s.path(parsed.String())
	tmp := path + ".tmp"
	if err := s.fs.WriteFile(tmp, data, 0600); err != nil {
		// a partial write leaves the tmp file behind, and retention only lists finished archives
		if rmErr := s.fs.Remove(tmp); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logger.WarnCtx(ctx, "Failed to remove partial archive", zap.String("path", tmp), zap.Error(rmErr))
		}
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to move archive into place: %w", err)
	}

	logger.DebugCtx(ctx, "Archive saved", zap.String("id", id), zap.Int("bytes", len(data)))
	return nil
}

// Open returns a reader for the archive with the given id
func (s *archiveStore) Open(ctx context.Context, id string) (adapter.File, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrArchiveNotFound, id)
		}
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return f, nil
}

// ListExpired returns the ids of archives older than retention
func (s *archiveStore) ListExpired(ctx context.Context, retention time.Duration) ([]string, error) {
	paths, err := s.fs.Glob(filepath.Join(s.dir, "*"+archiveExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	var expired []string
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := strings.TrimSuffix(filepath.Base(path), archiveExt)
		if _, err := uuid.Parse(id); err != nil {
			continue
		}

		info, err := s.fs.Stat(path)
		if err != nil {
			// removed concurrently
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat archive %s: %w", id, err)
		}

		if s.clock.Since(info.ModTime()) > retention {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

// Delete removes the archive with the given id
func (s *archiveStore) Delete(ctx context.Context, id string) error {
	path, err := s.resolve(id)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrArchiveNotFound, id)
		}
		return fmt.Errorf("failed to delete archive: %w", err)
	}

	logger.DebugCtx(ctx, "Archive deleted", zap.String("id", id))
	return nil
}

// resolve validates id and returns its path; ids never escape the store directory
func (s *archiveStore) resolve(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrArchiveNotFound, id)
	}
	return s.path(parsed.String()), nil
}

func (s *archiveStore) path(id string) string {
	return filepath.Join(s.dir, id+archiveExt)
}
