package resizer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/media/geometry"
)

// Render resamples src into a new targetW x targetH canvas following plan.
// The canvas is filled per the background policy before content is composited.
// A destination rectangle that rounds to zero pixels yields a background-only canvas.
func Render(src image.Image, plan geometry.Plan, targetW, targetH int, bg domain.Background) (*image.NRGBA, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("%w: target size must be positive, got %dx%d", domain.ErrInvalidInput, targetW, targetH)
	}

	canvas := imaging.New(targetW, targetH, Fill(src, bg))

	dst := plan.DestRect()
	if dst.Empty() {
		return canvas, nil
	}

	// Catmull-Rom weights are clamped to the source bounds, which replicates edge pixels
	scaled := imaging.Resize(src, dst.Dx(), dst.Dy(), imaging.CatmullRom)
	draw.Draw(canvas, dst, scaled, image.Point{}, draw.Over)

	return canvas, nil
}

// RenderSpec plans and renders src for a single rendition spec
func RenderSpec(src image.Image, spec domain.RenditionSpec) (*image.NRGBA, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	b := src.Bounds()
	plan, err := geometry.NewPlan(float64(b.Dx()), float64(b.Dy()), spec.Width, spec.Height, spec.PaddingFraction)
	if err != nil {
		return nil, err
	}

	return Render(src, plan, spec.Width, spec.Height, spec.Background)
}

// Fill returns the canvas color for a background policy.
// SampleCorner reads the top-left pixel of src.
func Fill(src image.Image, bg domain.Background) color.NRGBA {
	switch bg.Mode {
	case domain.BackgroundSolid:
		return bg.Color
	case domain.BackgroundSampleCorner:
		b := src.Bounds()
		if b.Empty() {
			return color.NRGBA{}
		}
		return color.NRGBAModel.Convert(src.At(b.Min.X, b.Min.Y)).(color.NRGBA)
	default:
		return color.NRGBA{}
	}
}
