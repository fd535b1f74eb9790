package rasterizer

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/srwiley/rasterx"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/media/geometry"
	"github.com/feral-file/ff-appimages/internal/media/source"
)

const (
	// BackendOksvg rasterizes with the pure Go oksvg/rasterx renderer
	BackendOksvg = "oksvg"
	// BackendResvg rasterizes with resvg (cgo builds only)
	BackendResvg = "resvg"
)

// Rasterizer renders SVG documents onto rendition canvases
//
//go:generate mockgen -source=rasterizer.go -destination=../../mocks/media_rasterizer.go -package=mocks -mock_names=Rasterizer=MockRasterizer
type Rasterizer interface {
	// Rasterize plans and renders doc for a single rendition spec
	Rasterize(ctx context.Context, doc *source.Document, spec domain.RenditionSpec) (*image.NRGBA, error)
}

type rasterizer struct {
	resvgClient adapter.ResvgClient
	backend     string
}

// Config holds configuration for the rasterizer
type Config struct {
	// Backend is BackendOksvg (default) or BackendResvg
	Backend string
}

// NewRasterizer creates a new SVG rasterizer instance
func NewRasterizer(resvgClient adapter.ResvgClient, cfg *Config) Rasterizer {
	if cfg == nil {
		cfg = &Config{}
	}

	backend := cfg.Backend
	if backend == "" {
		backend = BackendOksvg
	}

	return &rasterizer{
		resvgClient: resvgClient,
		backend:     backend,
	}
}

// Rasterize plans and renders doc for a single rendition spec
func (r *rasterizer) Rasterize(ctx context.Context, doc *source.Document, spec domain.RenditionSpec) (*image.NRGBA, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	w, h, err := doc.IntrinsicSize()
	if err != nil {
		return nil, err
	}

	plan, err := geometry.NewPlan(w, h, spec.Width, spec.Height, spec.PaddingFraction)
	if err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "Rasterizing SVG",
		zap.String("backend", r.backend),
		zap.Float64("intrinsicWidth", w),
		zap.Float64("intrinsicHeight", h),
		zap.Int("targetWidth", spec.Width),
		zap.Int("targetHeight", spec.Height),
		zap.Float64("scale", plan.Scale),
		zap.Stringer("limiting", plan.Limiting),
		zap.Float64("paddingX", plan.PaddingX),
		zap.Float64("paddingY", plan.PaddingY),
		zap.Float64("centeringX", plan.CenteringX()),
		zap.Float64("centeringY", plan.CenteringY()),
	)

	if r.backend == BackendResvg {
		return r.renderResvg(doc, plan, spec.Width, spec.Height, spec.Background)
	}
	return Render(doc, plan, spec.Width, spec.Height, spec.Background)
}

// renderResvg renders the content box with resvg and composites it at the plan origin
func (r *rasterizer) renderResvg(doc *source.Document, plan geometry.Plan, targetW, targetH int, bg domain.Background) (*image.NRGBA, error) {
	canvas := newCanvas(targetW, targetH, bg)

	dst := plan.DestRect()
	if dst.Empty() {
		return canvas, nil
	}

	img, err := r.resvgClient.Render(doc.Bytes(), dst.Dx())
	if err != nil {
		return nil, fmt.Errorf("failed to render SVG: %w", err)
	}

	b := img.Bounds()
	draw.Draw(canvas, image.Rectangle{Min: dst.Min, Max: dst.Min.Add(b.Size())}, img, b.Min, draw.Over)
	return canvas, nil
}

// Render draws doc onto a new targetW x targetH canvas following plan.
// The document is never mutated; the transform lives on a per-call copy of its icon.
// The sample-corner policy has no pixel to sample on a document and leaves the canvas transparent.
func Render(doc *source.Document, plan geometry.Plan, targetW, targetH int, bg domain.Background) (*image.NRGBA, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("%w: target size must be positive, got %dx%d", domain.ErrInvalidInput, targetW, targetH)
	}

	transform, err := Transform(doc, plan)
	if err != nil {
		return nil, err
	}

	rgba := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	if bg.Mode == domain.BackgroundSolid {
		draw.Draw(rgba, rgba.Bounds(), image.NewUniform(bg.Color), image.Point{}, draw.Src)
	}

	icon := doc.Icon()
	icon.Transform = transform

	scanner := rasterx.NewScannerGV(targetW, targetH, rgba, rgba.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)

	return imaging.Clone(rgba), nil
}

// Transform maps document user space to canvas pixels:
// device = (intrinsic + translation) * scale, where intrinsic is the viewBox
// fitted into the intrinsic size (xMidYMid meet).
func Transform(doc *source.Document, plan geometry.Plan) (rasterx.Matrix2D, error) {
	vb, err := doc.ViewBox()
	if err != nil {
		return rasterx.Matrix2D{}, err
	}
	iw, ih, err := doc.IntrinsicSize()
	if err != nil {
		return rasterx.Matrix2D{}, err
	}

	k := math.Min(iw/vb.W, ih/vb.H)
	ox := (iw - vb.W*k) / 2
	oy := (ih - vb.H*k) / 2
	tx, ty := plan.Translation()

	return rasterx.Identity.
		Scale(plan.Scale, plan.Scale).
		Translate(tx, ty).
		Translate(ox, oy).
		Scale(k, k).
		Translate(-vb.X, -vb.Y), nil
}

// newCanvas allocates a canvas initialised per the background policy
func newCanvas(w, h int, bg domain.Background) *image.NRGBA {
	if bg.Mode == domain.BackgroundSolid {
		return imaging.New(w, h, bg.Color)
	}
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}
