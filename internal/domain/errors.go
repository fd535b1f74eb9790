package domain

import "errors"

var (
	// ErrInvalidInput is returned when a caller supplies out-of-range parameters
	// (padding fraction outside [0,1], non-positive dimensions, empty source)
	ErrInvalidInput = errors.New("invalid input")

	// ErrCanvasTooSmall is returned when the computed scale factor is not positive
	ErrCanvasTooSmall = errors.New("viewing area is too small to render the image")

	// ErrNoIntrinsicSize is returned when a vector document declares neither a size nor a viewBox
	ErrNoIntrinsicSize = errors.New("vector document has no intrinsic size")

	// ErrDecode is returned when the source bytes are not a supported image
	ErrDecode = errors.New("failed to decode source image")

	// ErrEncode is returned when a rendition cannot be serialized
	ErrEncode = errors.New("failed to encode rendition")

	// ErrUnknownPlatform is returned when no profile list exists for the requested platform
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrArchiveNotFound is returned when an archive id does not resolve to a stored archive
	ErrArchiveNotFound = errors.New("archive not found")
)
