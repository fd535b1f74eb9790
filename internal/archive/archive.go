package archive

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
)

// ManifestName is the archive path of the icon manifest
const ManifestName = "icons.json"

// ErrDuplicateEntry is returned when two renditions map to the same archive path
var ErrDuplicateEntry = errors.New("duplicate archive entry")

// Entry is one icon of the manifest
type Entry struct {
	Src  string `json:"src"`
	Size string `json:"size"`
}

// Manifest lists every rendition in the archive
type Manifest struct {
	Icons []Entry `json:"icons"`
}

// Builder streams renditions into a zip archive and writes the manifest on Close
type Builder struct {
	zw       *zip.Writer
	json     adapter.JSON
	modified time.Time
	manifest Manifest
	paths    map[string]struct{}
	closed   bool
}

// NewBuilder creates a builder writing to w.
// Entries are stamped with the clock's current time.
func NewBuilder(w io.Writer, json adapter.JSON, clock adapter.Clock) *Builder {
	return &Builder{
		zw:       zip.NewWriter(w),
		json:     json,
		modified: clock.Now(),
		manifest: Manifest{Icons: []Entry{}},
		paths:    make(map[string]struct{}),
	}
}

// Add stores a rendition at <folder><name>.<ext> and records it in the manifest
func (b *Builder) Add(profile domain.Profile, data []byte) error {
	path := profile.ArchivePath()
	if err := b.write(path, data, zip.Store); err != nil {
		return err
	}

	b.manifest.Icons = append(b.manifest.Icons, Entry{
		Src:  profile.FileName(),
		Size: profile.Size(),
	})
	return nil
}

// Manifest returns the entries added so far
func (b *Builder) Manifest() Manifest {
	return b.manifest
}

// Close writes the manifest and finalizes the zip
func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	data, err := b.json.MarshalIndent(b.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := b.write(ManifestName, data, zip.Deflate); err != nil {
		return err
	}

	if err := b.zw.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	return nil
}

// write adds a single file. Encoded images are already compressed and are stored as-is.
func (b *Builder) write(path string, data []byte, method uint16) error {
	if b.closed && path != ManifestName {
		return errors.New("archive is closed")
	}
	if _, ok := b.paths[path]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, path)
	}
	b.paths[path] = struct{}{}

	w, err := b.zw.CreateHeader(&zip.FileHeader{
		Name:     path,
		Method:   method,
		Modified: b.modified,
	})
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", path, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", path, err)
	}
	return nil
}
