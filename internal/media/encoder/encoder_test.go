package encoder_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/media/encoder"
	"github.com/feral-file/ff-appimages/internal/mocks"
)

func createCanvas(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestEncodeBytes_PNGRoundTrip(t *testing.T) {
	enc := encoder.NewEncoder(adapter.NewImageCodec(), nil)

	sizes := [][2]int{{1, 1}, {16, 16}, {64, 64}, {310, 150}, {150, 310}}
	for _, size := range sizes {
		canvas := createCanvas(size[0], size[1], color.NRGBA{R: 10, G: 20, B: 30, A: 128})

		data, err := enc.EncodeBytes(canvas, domain.FormatPNG)
		require.NoError(t, err)

		decoded, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, size[0], size[1]), decoded.Bounds())

		// alpha is preserved
		_, _, _, a := decoded.At(0, 0).RGBA()
		assert.Equal(t, uint32(128*257), a)
	}
}

func TestEncodeBytes_PNGIdempotent(t *testing.T) {
	enc := encoder.NewEncoder(adapter.NewImageCodec(), nil)
	canvas := createCanvas(48, 48, color.NRGBA{R: 200, A: 255})
	canvas.SetNRGBA(3, 7, color.NRGBA{G: 90, A: 40})

	first, err := enc.EncodeBytes(canvas, domain.FormatPNG)
	require.NoError(t, err)
	second, err := enc.EncodeBytes(canvas, domain.FormatPNG)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEncodeBytes_JPEGFlattensOntoMatte(t *testing.T) {
	tests := []struct {
		name     string
		matte    color.Color
		expected color.NRGBA
	}{
		{name: "default white matte", matte: nil, expected: color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{name: "black matte", matte: color.Black, expected: color.NRGBA{A: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := encoder.NewEncoder(adapter.NewImageCodec(), &encoder.Config{
				JPEGQuality: 100,
				Matte:       tt.matte,
			})

			// fully transparent canvas must come out as the matte, not black
			data, err := enc.EncodeBytes(createCanvas(32, 32, color.NRGBA{}), domain.FormatJPEG)
			require.NoError(t, err)

			decoded, err := jpeg.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 32, 32), decoded.Bounds())

			c := color.NRGBAModel.Convert(decoded.At(16, 16)).(color.NRGBA)
			assert.InDelta(t, int(tt.expected.R), int(c.R), 3)
			assert.InDelta(t, int(tt.expected.G), int(c.G), 3)
			assert.InDelta(t, int(tt.expected.B), int(c.B), 3)
		})
	}
}

func TestEncode_UsesConfiguredQuality(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCodec := mocks.NewMockImageCodec(ctrl)
	canvas := createCanvas(4, 4, color.NRGBA{R: 255, A: 255})

	mockCodec.EXPECT().
		EncodeJPEG(gomock.Any(), canvas, 80).
		Return(nil)

	enc := encoder.NewEncoder(mockCodec, &encoder.Config{JPEGQuality: 80})
	require.NoError(t, enc.Encode(&bytes.Buffer{}, canvas, domain.FormatJPEG))
}

func TestEncode_UnknownFormatDefaultsToPNG(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCodec := mocks.NewMockImageCodec(ctrl)
	canvas := createCanvas(4, 4, color.NRGBA{A: 255})

	mockCodec.EXPECT().
		EncodePNG(gomock.Any(), canvas).
		Return(nil)

	enc := encoder.NewEncoder(mockCodec, nil)
	require.NoError(t, enc.Encode(&bytes.Buffer{}, canvas, domain.ParseFormat("gif")))
}

func TestEncode_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCodec := mocks.NewMockImageCodec(ctrl)
	mockCodec.EXPECT().
		EncodePNG(gomock.Any(), gomock.Any()).
		Return(errors.New("disk full"))

	enc := encoder.NewEncoder(mockCodec, nil)
	data, err := enc.EncodeBytes(createCanvas(2, 2, color.NRGBA{}), domain.FormatPNG)

	require.Error(t, err)
	assert.Nil(t, data)
	assert.ErrorIs(t, err, domain.ErrEncode)
	assert.Contains(t, err.Error(), "disk full")
}
