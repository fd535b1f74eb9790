package transformer_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/config"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/media/encoder"
	"github.com/feral-file/ff-appimages/internal/media/rasterizer"
	"github.com/feral-file/ff-appimages/internal/media/source"
	"github.com/feral-file/ff-appimages/internal/media/transformer"
	"github.com/feral-file/ff-appimages/internal/mocks"
)

func init() {
	// Initialize logger for testing
	_ = logger.Initialize(logger.Config{
		Debug: true,
	})
}

// createDefaultConfig creates a default test configuration
func createDefaultConfig() config.TransformConfig {
	return config.TransformConfig{
		WorkerConcurrency: 1, // Use 1 for deterministic tests
		RenderTimeout:     10 * time.Second,
		JPEGQuality:       90,
		VectorBackend:     rasterizer.BackendOksvg,
		FailFast:          false,
		DefaultPadding:    0.3,
	}
}

func rasterSource(w, h int) *source.Source {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	return &source.Source{Kind: source.KindRaster, MimeType: "image/png", Raster: img}
}

func newTransformer(cfg config.TransformConfig) transformer.Transformer {
	codec := adapter.NewImageCodec()
	return transformer.NewTransformer(
		cfg,
		rasterizer.NewRasterizer(adapter.NewResvgClient(), nil),
		encoder.NewEncoder(codec, &encoder.Config{JPEGQuality: cfg.JPEGQuality}),
	)
}

var testProfiles = []domain.Profile{
	{Width: 44, Height: 44, Name: "Square44x44Logo", Folder: "images/"},
	{Width: 310, Height: 150, Name: "Wide310x150Logo", Folder: "images/"},
	{Width: 1240, Height: 600, Name: "SplashScreen", Folder: "images/", Format: "jpg"},
}

func TestNewTransformer(t *testing.T) {
	tests := []struct {
		name   string
		config config.TransformConfig
	}{
		{
			name:   "with full config",
			config: createDefaultConfig(),
		},
		{
			name:   "with zero concurrency",
			config: config.TransformConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTransformer(tt.config)
			assert.NotNil(t, tr, "NewTransformer should return a non-nil transformer")

			err := tr.Close()
			assert.NoError(t, err)
		})
	}
}

func TestTransform_Success_Raster(t *testing.T) {
	cfg := createDefaultConfig()
	cfg.WorkerConcurrency = 3
	tr := newTransformer(cfg)
	defer func() { _ = tr.Close() }()

	results, err := tr.Transform(context.Background(), &transformer.Request{
		Source:     rasterSource(100, 100),
		Profiles:   testProfiles,
		Padding:    0.2,
		Background: domain.SolidBackground(color.White),
	})
	require.NoError(t, err)
	require.Len(t, results, len(testProfiles))

	for i, result := range results {
		profile := testProfiles[i]
		assert.Equal(t, profile, result.Profile)
		assert.NoError(t, result.Err)
		require.NotEmpty(t, result.Data)

		var decoded image.Image
		if profile.OutputFormat() == domain.FormatJPEG {
			assert.Equal(t, "image/jpeg", result.ContentType)
			decoded, err = jpeg.Decode(bytes.NewReader(result.Data))
		} else {
			assert.Equal(t, "image/png", result.ContentType)
			decoded, err = png.Decode(bytes.NewReader(result.Data))
		}
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, profile.Width, profile.Height), decoded.Bounds())
	}
}

func TestTransform_Success_Vector(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRasterizer := mocks.NewMockRasterizer(ctrl)
	mockEncoder := mocks.NewMockEncoder(ctrl)

	doc, err := source.ParseDocument([]byte(`<svg width="10" height="10" xmlns="http://www.w3.org/2000/svg"></svg>`))
	require.NoError(t, err)
	src := &source.Source{Kind: source.KindVector, MimeType: "image/svg+xml", Vector: doc}

	profiles := testProfiles[:2]
	bg := domain.TransparentBackground()
	for _, p := range profiles {
		canvas := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
		mockRasterizer.EXPECT().
			Rasterize(gomock.Any(), doc, p.Spec(0.1, bg)).
			Return(canvas, nil)
		mockEncoder.EXPECT().
			EncodeBytes(canvas, domain.FormatPNG).
			Return([]byte(p.Name), nil)
	}

	tr := transformer.NewTransformer(createDefaultConfig(), mockRasterizer, mockEncoder)
	defer func() { _ = tr.Close() }()

	results, err := tr.Transform(context.Background(), &transformer.Request{
		Source:     src,
		Profiles:   profiles,
		Padding:    0.1,
		Background: bg,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []byte("Square44x44Logo"), results[0].Data)
	assert.Equal(t, []byte("Wide310x150Logo"), results[1].Data)
}

func TestTransform_PartialFailure(t *testing.T) {
	tr := newTransformer(createDefaultConfig())
	defer func() { _ = tr.Close() }()

	profiles := []domain.Profile{
		{Width: 16, Height: 16, Name: "small"},
		{Width: 0, Height: 0, Name: "broken"},
		{Width: 32, Height: 32, Name: "medium"},
	}

	results, err := tr.Transform(context.Background(), &transformer.Request{
		Source:     rasterSource(20, 20),
		Profiles:   profiles,
		Padding:    0,
		Background: domain.SampleCornerBackground(),
	})
	require.Error(t, err)
	require.Len(t, results, 3)

	var batchErr *transformer.BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 3, batchErr.Total)
	require.Len(t, batchErr.Failures, 1)
	assert.Equal(t, "broken", batchErr.Failures[0].Profile.Name)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "1 of 3 renditions failed")

	// siblings are untouched by the failure
	assert.NoError(t, results[0].Err)
	assert.NotEmpty(t, results[0].Data)
	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Data)
	assert.NoError(t, results[2].Err)
	assert.NotEmpty(t, results[2].Data)
}

func TestTransform_FailFast(t *testing.T) {
	cfg := createDefaultConfig()
	cfg.FailFast = true
	tr := newTransformer(cfg)
	defer func() { _ = tr.Close() }()

	results, err := tr.Transform(context.Background(), &transformer.Request{
		Source: rasterSource(20, 20),
		Profiles: []domain.Profile{
			{Width: 0, Height: 10, Name: "broken"},
			{Width: 16, Height: 16, Name: "skipped"},
		},
		Padding: 0.2,
	})
	require.Error(t, err)
	require.Len(t, results, 2)

	assert.ErrorIs(t, results[0].Err, domain.ErrInvalidInput)
	assert.ErrorIs(t, results[1].Err, transformer.ErrSkipped)
	assert.ErrorIs(t, results[1].Err, context.Canceled)
}

func TestTransform_CanvasTooSmall(t *testing.T) {
	tr := newTransformer(createDefaultConfig())
	defer func() { _ = tr.Close() }()

	_, err := tr.Transform(context.Background(), &transformer.Request{
		Source:   rasterSource(20, 20),
		Profiles: testProfiles[:1],
		Padding:  1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCanvasTooSmall)
}

func TestTransform_ContextCancelled(t *testing.T) {
	tr := newTransformer(createDefaultConfig())
	defer func() { _ = tr.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := tr.Transform(ctx, &transformer.Request{
		Source:   rasterSource(20, 20),
		Profiles: testProfiles[:2],
		Padding:  0.2,
	})
	require.Error(t, err)
	for _, result := range results {
		assert.ErrorIs(t, result.Err, transformer.ErrSkipped)
	}
}

func TestTransform_EncoderError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRasterizer := mocks.NewMockRasterizer(ctrl)
	mockEncoder := mocks.NewMockEncoder(ctrl)

	mockEncoder.EXPECT().
		EncodeBytes(gomock.Any(), domain.FormatPNG).
		Return(nil, domain.ErrEncode)

	tr := transformer.NewTransformer(createDefaultConfig(), mockRasterizer, mockEncoder)
	defer func() { _ = tr.Close() }()

	results, err := tr.Transform(context.Background(), &transformer.Request{
		Source:   rasterSource(20, 20),
		Profiles: testProfiles[:1],
		Padding:  0.2,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEncode)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, domain.ErrEncode)
}

func TestTransform_InvalidRequest(t *testing.T) {
	tr := newTransformer(createDefaultConfig())
	defer func() { _ = tr.Close() }()

	tests := []struct {
		name string
		req  *transformer.Request
	}{
		{name: "nil request", req: nil},
		{name: "nil source", req: &transformer.Request{Profiles: testProfiles}},
		{name: "no profiles", req: &transformer.Request{Source: rasterSource(2, 2)}},
		{name: "padding out of range", req: &transformer.Request{Source: rasterSource(2, 2), Profiles: testProfiles, Padding: -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := tr.Transform(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, results)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestRender_Idempotent(t *testing.T) {
	tr := newTransformer(createDefaultConfig())
	defer func() { _ = tr.Close() }()

	src := rasterSource(33, 77)
	spec := domain.RenditionSpec{Width: 50, Height: 20, PaddingFraction: 0.25, Background: domain.SolidBackground(color.White)}

	first, err := tr.Render(context.Background(), src, spec)
	require.NoError(t, err)
	second, err := tr.Render(context.Background(), src, spec)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second))
}
