package adapter

import (
	"errors"
	"image"
)

// ErrResvgUnavailable is returned by the resvg client in builds without cgo
var ErrResvgUnavailable = errors.New("resvg backend requires a cgo build")

// ResvgClient defines an interface for SVG rendering using resvg
//
//go:generate mockgen -source=resvg.go -destination=../mocks/resvg.go -package=mocks -mock_names=ResvgClient=MockResvgClient
type ResvgClient interface {
	// Render renders SVG data to an image with specified width (0 = use SVG natural size)
	// Uses ScaleBestFit mode to maintain aspect ratio
	Render(data []byte, width int) (image.Image, error)
}
