package domain

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// ParseColor parses a background color string.
// Accepted forms: "#RGB", "#RRGGBB", "#AARRGGBB" and CSS color names ("white", "navy").
func ParseColor(s string) (color.NRGBA, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	if value == "" {
		return color.NRGBA{}, fmt.Errorf("%w: empty color", ErrInvalidInput)
	}

	if c, ok := colornames.Map[value]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}

	if !strings.HasPrefix(value, "#") {
		value = "#" + value
	}

	alpha := uint8(0xff)
	if len(value) == 9 {
		a, err := strconv.ParseUint(value[1:3], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%w: invalid color %q", ErrInvalidInput, s)
		}
		alpha = uint8(a)
		value = "#" + value[3:]
	}

	c, err := colorful.Hex(value)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: invalid color %q", ErrInvalidInput, s)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// ParseBackground parses a request background value into a policy.
// An empty value returns nil so the caller can apply the per-source default.
func ParseBackground(s string) (*Background, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	switch value {
	case "":
		return nil, nil
	case "transparent", "none":
		bg := TransparentBackground()
		return &bg, nil
	}

	c, err := ParseColor(value)
	if err != nil {
		return nil, err
	}
	bg := SolidBackground(c)
	return &bg, nil
}
