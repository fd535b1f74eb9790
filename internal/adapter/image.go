package adapter

import (
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register the WebP decoder for source uploads
)

// ImageCodec defines an interface for decoding and encoding raster images
//
//go:generate mockgen -source=image.go -destination=../mocks/image.go -package=mocks -mock_names=ImageCodec=MockImageCodec
type ImageCodec interface {
	// Decode decodes an image, applying any EXIF orientation
	Decode(r io.Reader) (image.Image, error)
	// DecodeConfig reads the dimensions and format name without decoding pixels
	DecodeConfig(r io.Reader) (image.Config, string, error)
	// EncodePNG encodes an image to PNG format
	EncodePNG(w io.Writer, img image.Image) error
	// EncodeJPEG encodes an image to JPEG format with specified quality
	EncodeJPEG(w io.Writer, img image.Image, quality int) error
}

// RealImageCodec implements ImageCodec using the imaging library
type RealImageCodec struct{}

// NewImageCodec creates a new real image codec
func NewImageCodec() ImageCodec {
	return &RealImageCodec{}
}

// Decode decodes an image, applying any EXIF orientation
func (c *RealImageCodec) Decode(r io.Reader) (image.Image, error) {
	return imaging.Decode(r, imaging.AutoOrientation(true))
}

// DecodeConfig reads the dimensions and format name without decoding pixels
func (c *RealImageCodec) DecodeConfig(r io.Reader) (image.Config, string, error) {
	return image.DecodeConfig(r)
}

// EncodePNG encodes an image to PNG format
func (c *RealImageCodec) EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

// EncodeJPEG encodes an image to JPEG format with specified quality
func (c *RealImageCodec) EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}
