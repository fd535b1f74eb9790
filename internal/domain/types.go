package domain

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Format represents the output raster format of a rendition
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpg"
)

// ParseFormat maps a profile format string to a Format.
// Unknown or empty strings default to PNG.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return FormatJPEG
	default:
		return FormatPNG
	}
}

// Extension returns the file extension (without dot) for the format
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// BackgroundMode selects how the canvas is initialized before content is drawn
type BackgroundMode int

const (
	BackgroundTransparent BackgroundMode = iota
	BackgroundSolid
	BackgroundSampleCorner
)

func (m BackgroundMode) String() string {
	switch m {
	case BackgroundSolid:
		return "solid"
	case BackgroundSampleCorner:
		return "sample_corner"
	default:
		return "transparent"
	}
}

// Background is the background policy of a rendition.
// Color is only meaningful for BackgroundSolid.
type Background struct {
	Mode  BackgroundMode
	Color color.NRGBA
}

// SolidBackground returns a policy that fills the canvas with c
func SolidBackground(c color.Color) Background {
	return Background{
		Mode:  BackgroundSolid,
		Color: color.NRGBAModel.Convert(c).(color.NRGBA),
	}
}

// TransparentBackground returns a policy that leaves the canvas fully transparent
func TransparentBackground() Background {
	return Background{Mode: BackgroundTransparent}
}

// SampleCornerBackground returns a policy that fills the canvas with the source's top-left pixel
func SampleCornerBackground() Background {
	return Background{Mode: BackgroundSampleCorner}
}

// RenditionSpec describes one target canvas
type RenditionSpec struct {
	Width           int
	Height          int
	PaddingFraction float64
	Background      Background
	Format          Format
}

// Validate checks the rendition before any geometry is computed
func (s RenditionSpec) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: target size must be positive, got %dx%d", ErrInvalidInput, s.Width, s.Height)
	}
	if err := ValidatePadding(s.PaddingFraction); err != nil {
		return err
	}
	return nil
}

// ValidatePadding checks that a padding fraction lies in [0,1]
func ValidatePadding(padding float64) error {
	if math.IsNaN(padding) || padding < 0 || padding > 1 {
		return fmt.Errorf("%w: padding fraction must be between 0 and 1, got %v", ErrInvalidInput, padding)
	}
	return nil
}

// Profile is one entry of a platform profile list (<platform>Images.json)
type Profile struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
	Desc   string `json:"desc,omitempty"`
	Folder string `json:"folder,omitempty"`
	Format string `json:"format,omitempty"`
}

// OutputFormat returns the parsed output format of the profile
func (p Profile) OutputFormat() Format {
	return ParseFormat(p.Format)
}

// FileName returns the rendition file name, e.g. "Square150x150Logo.scale-100.png"
func (p Profile) FileName() string {
	return p.Name + "." + p.OutputFormat().Extension()
}

// ArchivePath returns the path of the rendition inside the archive.
// Folder is used verbatim as a prefix and is expected to carry its own trailing slash.
func (p Profile) ArchivePath() string {
	return p.Folder + p.FileName()
}

// Size returns the formatted dimensions used in the manifest, e.g. "150x150"
func (p Profile) Size() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// Spec builds the rendition spec for this profile
func (p Profile) Spec(padding float64, background Background) RenditionSpec {
	return RenditionSpec{
		Width:           p.Width,
		Height:          p.Height,
		PaddingFraction: padding,
		Background:      background,
		Format:          p.OutputFormat(),
	}
}
