package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
)

// DefaultJPEGQuality is used when no quality is configured
const DefaultJPEGQuality = 95

// Encoder serializes rendered canvases
//
//go:generate mockgen -source=encoder.go -destination=../../mocks/media_encoder.go -package=mocks -mock_names=Encoder=MockEncoder
type Encoder interface {
	// Encode writes img to w in the given format
	Encode(w io.Writer, img image.Image, format domain.Format) error
	// EncodeBytes returns img encoded in the given format
	EncodeBytes(img image.Image, format domain.Format) ([]byte, error)
}

// Config holds configuration for the encoder
type Config struct {
	// JPEGQuality ranges from 1 to 100
	JPEGQuality int
	// Matte is the color non-opaque canvases are flattened onto before JPEG encoding (default white)
	Matte color.Color
}

type encoder struct {
	codec   adapter.ImageCodec
	quality int
	matte   color.Color
}

// NewEncoder creates a new encoder
func NewEncoder(codec adapter.ImageCodec, cfg *Config) Encoder {
	if cfg == nil {
		cfg = &Config{}
	}

	quality := cfg.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	matte := cfg.Matte
	if matte == nil {
		matte = color.White
	}

	return &encoder{
		codec:   codec,
		quality: quality,
		matte:   matte,
	}
}

// Encode writes img to w in the given format
func (e *encoder) Encode(w io.Writer, img image.Image, format domain.Format) error {
	var err error
	switch format {
	case domain.FormatJPEG:
		err = e.codec.EncodeJPEG(w, e.flatten(img), e.quality)
	default:
		err = e.codec.EncodePNG(w, img)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrEncode, format.Extension(), err)
	}
	return nil
}

// EncodeBytes returns img encoded in the given format
func (e *encoder) EncodeBytes(img image.Image, format domain.Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(&buf, img, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flatten composites img onto the matte when it has any transparency
func (e *encoder) flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	b := img.Bounds()
	flat := imaging.New(b.Dx(), b.Dy(), e.matte)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)
	return flat
}
