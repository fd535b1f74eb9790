package geometry

import (
	"fmt"
	"image"
	"math"

	"github.com/feral-file/ff-appimages/internal/domain"
)

// Axis identifies the canvas dimension that constrains the scale factor
type Axis int

const (
	AxisWidth Axis = iota
	AxisHeight
)

func (a Axis) String() string {
	if a == AxisWidth {
		return "width"
	}
	return "height"
}

// Plan is the fit-pad-center placement of a source inside a target canvas.
// All values are in canvas pixels except Scale, which maps source units to canvas pixels.
type Plan struct {
	Scale float64

	// OriginX and OriginY are the top-left corner of the scaled content
	OriginX float64
	OriginY float64

	// PaddingX and PaddingY are the proportional margins for each axis, truncated to whole pixels.
	// Only the one on the limiting axis drives the scale.
	PaddingX float64
	PaddingY float64

	ContentWidth  float64
	ContentHeight float64

	Limiting Axis
}

// NewPlan computes the placement of a sourceW x sourceH image inside a targetW x targetH
// canvas, reserving paddingFraction of the limiting dimension as margin.
// The padding range is validated by the caller.
func NewPlan(sourceW, sourceH float64, targetW, targetH int, paddingFraction float64) (Plan, error) {
	if targetW <= 0 || targetH <= 0 {
		return Plan{}, fmt.Errorf("%w: target size must be positive, got %dx%d", domain.ErrInvalidInput, targetW, targetH)
	}
	if !positive(sourceW) || !positive(sourceH) {
		return Plan{}, fmt.Errorf("%w: source size must be positive, got %vx%v", domain.ErrInvalidInput, sourceW, sourceH)
	}

	// a full margin leaves no room for content, even where truncation would leave a pixel
	if !(paddingFraction < 1) {
		return Plan{}, fmt.Errorf("%w: %dx%d with padding %v", domain.ErrCanvasTooSmall, targetW, targetH, paddingFraction)
	}

	tw, th := float64(targetW), float64(targetH)
	displayAspect := th / tw
	sourceAspect := sourceH / sourceW

	p := Plan{
		PaddingX: wholePixels(paddingFraction * tw * 0.5),
		PaddingY: wholePixels(paddingFraction * th * 0.5),
	}

	if displayAspect > sourceAspect {
		p.Limiting = AxisWidth
		p.Scale = (tw - 2*p.PaddingX) / sourceW
	} else {
		p.Limiting = AxisHeight
		p.Scale = (th - 2*p.PaddingY) / sourceH
	}

	// NaN fails here too
	if !(p.Scale > 0) {
		return Plan{}, fmt.Errorf("%w: %dx%d with padding %v", domain.ErrCanvasTooSmall, targetW, targetH, paddingFraction)
	}

	p.ContentWidth = sourceW * p.Scale
	p.ContentHeight = sourceH * p.Scale
	p.OriginX = (tw - p.ContentWidth) / 2
	p.OriginY = (th - p.ContentHeight) / 2

	return p, nil
}

// CenteringX is the horizontal offset added on top of the padding to center the content
func (p Plan) CenteringX() float64 {
	return p.OriginX - p.PaddingX
}

// CenteringY is the vertical offset added on top of the padding to center the content
func (p Plan) CenteringY() float64 {
	return p.OriginY - p.PaddingY
}

// Translation returns the origin expressed in pre-scale source units,
// so that device = (source + translation) * Scale.
func (p Plan) Translation() (float64, float64) {
	return p.OriginX / p.Scale, p.OriginY / p.Scale
}

// DestRect returns the pixel rectangle covered by the scaled content.
// Size and origin are rounded to the nearest pixel; the rectangle may be empty.
func (p Plan) DestRect() image.Rectangle {
	x := int(math.Round(p.OriginX))
	y := int(math.Round(p.OriginY))
	w := int(math.Round(p.ContentWidth))
	h := int(math.Round(p.ContentHeight))
	return image.Rect(x, y, x+w, y+h)
}

// wholePixels truncates a margin to whole pixels, ignoring float error just below an integer
func wholePixels(v float64) float64 {
	return math.Floor(v + 1e-9)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
