package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/logger"
)

// Kind distinguishes the two rendering pipelines
type Kind int

const (
	KindRaster Kind = iota
	KindVector
)

func (k Kind) String() string {
	if k == KindVector {
		return "vector"
	}
	return "raster"
}

const svgMimeType = "image/svg+xml"

// Source is a decoded source image, loaded once per request and shared read-only
// by every rendition.
type Source struct {
	Kind     Kind
	MimeType string

	// Raster is set for KindRaster
	Raster image.Image
	// Vector is set for KindVector
	Vector *Document
}

// Size returns the intrinsic size of the source
func (s *Source) Size() (float64, float64, error) {
	switch s.Kind {
	case KindVector:
		return s.Vector.IntrinsicSize()
	default:
		b := s.Raster.Bounds()
		return float64(b.Dx()), float64(b.Dy()), nil
	}
}

// Config holds loader limits
type Config struct {
	// MaxDecodedPixels rejects rasters larger than width*height pixels (0 = unlimited)
	MaxDecodedPixels int64
}

// Loader turns uploaded bytes into a Source
//
//go:generate mockgen -source=source.go -destination=../../mocks/source_loader.go -package=mocks -mock_names=Loader=MockSourceLoader
type Loader interface {
	// Load sniffs and decodes data. declaredType is the client supplied content type, may be empty.
	Load(ctx context.Context, data []byte, declaredType string) (*Source, error)
}

type loader struct {
	codec  adapter.ImageCodec
	config *Config
}

// NewLoader creates a new source loader
func NewLoader(codec adapter.ImageCodec, config *Config) Loader {
	if config == nil {
		config = &Config{}
	}
	return &loader{
		codec:  codec,
		config: config,
	}
}

// Load sniffs and decodes data into a Source
func (l *loader) Load(ctx context.Context, data []byte, declaredType string) (*Source, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty source image", domain.ErrInvalidInput)
	}

	mtype := mimetype.Detect(data)
	logger.DebugCtx(ctx, "Detected source type",
		zap.String("detected", mtype.String()),
		zap.String("declared", declaredType),
		zap.Int("bytes", len(data)))

	if mtype.Is(svgMimeType) || strings.Contains(strings.ToLower(declaredType), "svg") {
		doc, err := ParseDocument(data)
		if err != nil {
			return nil, err
		}
		return &Source{
			Kind:     KindVector,
			MimeType: svgMimeType,
			Vector:   doc,
		}, nil
	}

	cfg, format, err := l.codec.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported image type %s: %w", domain.ErrDecode, mtype.String(), err)
	}

	if l.config.MaxDecodedPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > l.config.MaxDecodedPixels {
		return nil, fmt.Errorf("%w: source image %dx%d exceeds %d pixels",
			domain.ErrInvalidInput, cfg.Width, cfg.Height, l.config.MaxDecodedPixels)
	}

	img, err := l.codec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDecode, format, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: source image has no pixels", domain.ErrInvalidInput)
	}

	return &Source{
		Kind:     KindRaster,
		MimeType: mtype.String(),
		Raster:   img,
	}, nil
}
