package source_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/media/source"
	"github.com/feral-file/ff-appimages/internal/mocks"
)

func init() {
	// Initialize logger for testing
	_ = logger.Initialize(logger.Config{
		Debug: true,
	})
}

const squareSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg width="100" height="100" xmlns="http://www.w3.org/2000/svg">
  <rect width="100" height="100" fill="red"/>
</svg>`

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{G: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoader_LoadRaster(t *testing.T) {
	loader := source.NewLoader(adapter.NewImageCodec(), nil)

	src, err := loader.Load(context.Background(), pngBytes(t, 40, 20), "image/png")
	require.NoError(t, err)

	assert.Equal(t, source.KindRaster, src.Kind)
	assert.Equal(t, "image/png", src.MimeType)
	require.NotNil(t, src.Raster)
	assert.Nil(t, src.Vector)

	w, h, err := src.Size()
	require.NoError(t, err)
	assert.Equal(t, 40.0, w)
	assert.Equal(t, 20.0, h)
}

func TestLoader_LoadVector(t *testing.T) {
	tests := []struct {
		name         string
		data         string
		declaredType string
	}{
		{
			name:         "sniffed svg",
			data:         squareSVG,
			declaredType: "",
		},
		{
			name:         "declared svg without prolog",
			data:         `<svg viewBox="0 0 10 10"><rect width="10" height="10"/></svg>`,
			declaredType: "image/svg+xml",
		},
	}

	loader := source.NewLoader(adapter.NewImageCodec(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := loader.Load(context.Background(), []byte(tt.data), tt.declaredType)
			require.NoError(t, err)

			assert.Equal(t, source.KindVector, src.Kind)
			assert.Equal(t, "image/svg+xml", src.MimeType)
			require.NotNil(t, src.Vector)
			assert.Nil(t, src.Raster)
		})
	}
}

func TestLoader_LoadErrors(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		declaredType string
		expected     error
	}{
		{
			name:     "empty",
			data:     nil,
			expected: domain.ErrInvalidInput,
		},
		{
			name:     "plain text",
			data:     []byte("this is not an image"),
			expected: domain.ErrDecode,
		},
		{
			name:         "declared svg that is not xml",
			data:         []byte("\x00\x01\x02"),
			declaredType: "image/svg+xml",
			expected:     domain.ErrDecode,
		},
		{
			name:         "declared svg with another root",
			data:         []byte(`<html><body></body></html>`),
			declaredType: "image/svg+xml",
			expected:     domain.ErrDecode,
		},
	}

	loader := source.NewLoader(adapter.NewImageCodec(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := loader.Load(context.Background(), tt.data, tt.declaredType)
			require.Error(t, err)
			assert.Nil(t, src)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestLoader_MaxDecodedPixels(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCodec := mocks.NewMockImageCodec(ctrl)
	mockCodec.EXPECT().
		DecodeConfig(gomock.Any()).
		Return(image.Config{Width: 5000, Height: 5000}, "png", nil)
	// Decode must not be called for oversized sources

	loader := source.NewLoader(mockCodec, &source.Config{MaxDecodedPixels: 1000000})
	src, err := loader.Load(context.Background(), pngBytes(t, 2, 2), "")

	require.Error(t, err)
	assert.Nil(t, src)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoader_DecodeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCodec := mocks.NewMockImageCodec(ctrl)
	mockCodec.EXPECT().
		DecodeConfig(gomock.Any()).
		Return(image.Config{Width: 2, Height: 2}, "png", nil)
	mockCodec.EXPECT().
		Decode(gomock.Any()).
		Return(nil, errors.New("truncated"))

	loader := source.NewLoader(mockCodec, &source.Config{MaxDecodedPixels: 1000000})
	_, err := loader.Load(context.Background(), pngBytes(t, 2, 2), "")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.Contains(t, err.Error(), "truncated")
}
