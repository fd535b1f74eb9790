//go:build cgo

package adapter

import (
	"image"

	"github.com/xo/resvg"
)

// RealResvgClient implements ResvgClient using the actual resvg library
type RealResvgClient struct{}

// NewResvgClient creates a new real resvg client
func NewResvgClient() ResvgClient {
	return &RealResvgClient{}
}

// Render renders SVG data to an image using resvg with best fit scaling
func (c *RealResvgClient) Render(data []byte, width int) (image.Image, error) {
	opts := []resvg.Option{resvg.WithScaleMode(resvg.ScaleBestFit)}
	if width > 0 {
		opts = append(opts, resvg.WithWidth(width))
	}
	return resvg.Render(data, opts...)
}
