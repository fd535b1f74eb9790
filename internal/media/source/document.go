package source

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"golang.org/x/net/html/charset"

	"github.com/feral-file/ff-appimages/internal/domain"
)

// ViewBox is the logical coordinate system declared by an SVG root element
type ViewBox struct {
	X, Y, W, H float64
}

// Document is a parsed, read-only SVG document.
// Renderers take copies of the icon so concurrent renditions never share a transform.
type Document struct {
	data []byte
	icon *oksvg.SvgIcon

	width, height float64 // declared size in px, 0 when absent
	viewBox       ViewBox
	hasViewBox    bool

	// root start tag location, used to normalize size attributes before parsing paths
	root        xml.StartElement
	rootStart   int64
	rootEnd     int64
	selfClosing bool
}

// unitsPerPx converts CSS absolute length units to px at 96 dpi
var unitsPerPx = map[string]float64{
	"":   1,
	"px": 1,
	"pt": 96.0 / 72.0,
	"pc": 16,
	"mm": 96.0 / 25.4,
	"cm": 96.0 / 2.54,
	"in": 96,
}

// ParseDocument parses SVG bytes into a Document
func ParseDocument(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty svg document", domain.ErrInvalidInput)
	}

	doc := &Document{data: data}
	if err := doc.probeRoot(); err != nil {
		return nil, err
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(doc.normalized()), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	doc.icon = icon

	return doc, nil
}

// probeRoot reads the size declarations of the root <svg> element
func (d *Document) probeRoot() error {
	decoder := xml.NewDecoder(bytes.NewReader(d.data))
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Strict = false

	for {
		offset := decoder.InputOffset()
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: no svg root element", domain.ErrDecode)
			}
			return fmt.Errorf("%w: %w", domain.ErrDecode, err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return fmt.Errorf("%w: root element is <%s>, not <svg>", domain.ErrDecode, start.Name.Local)
		}

		d.root = start.Copy()
		d.rootStart = offset
		d.rootEnd = decoder.InputOffset()
		if d.rootEnd <= int64(len(d.data)) {
			d.selfClosing = bytes.HasSuffix(d.data[:d.rootEnd], []byte("/>"))
		}

		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "width":
				d.width = parseLength(attr.Value)
			case "height":
				d.height = parseLength(attr.Value)
			case "viewBox":
				d.viewBox, d.hasViewBox = parseViewBox(attr.Value)
			}
		}
		return nil
	}
}

// normalized returns the document with the root width/height rewritten as plain px numbers.
// oksvg only understands unitless lengths on the root element.
func (d *Document) normalized() []byte {
	rewrite := false
	for _, attr := range d.root.Attr {
		if attr.Name.Space == "" && (attr.Name.Local == "width" || attr.Name.Local == "height") {
			if _, err := strconv.ParseFloat(strings.TrimSpace(attr.Value), 64); err != nil {
				rewrite = true
			}
		}
	}
	// offsets only map onto the raw bytes for an unprefixed root in a byte-compatible encoding
	if !rewrite || d.rootEnd > int64(len(d.data)) || !isSVGTag(d.data[d.rootStart:]) {
		return d.data
	}

	var buf bytes.Buffer
	buf.Grow(len(d.data))
	buf.Write(d.data[:d.rootStart])
	buf.WriteString("<svg")
	for _, attr := range d.root.Attr {
		var name, value string
		switch {
		case attr.Name.Space == "" && attr.Name.Local == "width":
			if d.width <= 0 {
				continue
			}
			name, value = "width", strconv.FormatFloat(d.width, 'f', -1, 64)
		case attr.Name.Space == "" && attr.Name.Local == "height":
			if d.height <= 0 {
				continue
			}
			name, value = "height", strconv.FormatFloat(d.height, 'f', -1, 64)
		case attr.Name.Space == "xmlns":
			name, value = "xmlns:"+attr.Name.Local, attr.Value
		case attr.Name.Space == "":
			name, value = attr.Name.Local, attr.Value
		default:
			// namespaced editor metadata, not used for drawing
			continue
		}
		buf.WriteString(" " + name + `="`)
		_ = xml.EscapeText(&buf, []byte(value))
		buf.WriteString(`"`)
	}
	if d.selfClosing {
		buf.WriteString("/>")
	} else {
		buf.WriteString(">")
	}
	buf.Write(d.data[d.rootEnd:])
	return buf.Bytes()
}

// IntrinsicSize returns the natural size of the document in px.
// An explicit width/height wins; a missing one is derived from the viewBox aspect ratio;
// the viewBox size is used when neither is declared.
func (d *Document) IntrinsicSize() (float64, float64, error) {
	w, h := d.width, d.height

	switch {
	case w > 0 && h > 0:
	case w > 0 && d.hasViewBox:
		h = w * d.viewBox.H / d.viewBox.W
	case h > 0 && d.hasViewBox:
		w = h * d.viewBox.W / d.viewBox.H
	case d.hasViewBox:
		w, h = d.viewBox.W, d.viewBox.H
	default:
		return 0, 0, domain.ErrNoIntrinsicSize
	}

	return w, h, nil
}

// ViewBox returns the document coordinate system.
// Without a declared viewBox the user space is the intrinsic size at the origin.
func (d *Document) ViewBox() (ViewBox, error) {
	if d.hasViewBox {
		return d.viewBox, nil
	}
	w, h, err := d.IntrinsicSize()
	if err != nil {
		return ViewBox{}, err
	}
	return ViewBox{W: w, H: h}, nil
}

// Icon returns a copy of the parsed icon that the caller may transform and draw freely.
// Paths are copied by value since drawing temporarily rewrites their matrices;
// path geometry itself is shared read-only.
func (d *Document) Icon() *oksvg.SvgIcon {
	icon := *d.icon
	icon.SVGPaths = append([]oksvg.SvgPath(nil), d.icon.SVGPaths...)
	return &icon
}

// Bytes returns the original document bytes
func (d *Document) Bytes() []byte {
	return d.data
}

// parseLength parses an absolute SVG length into px.
// Percentages, font-relative and unknown units return 0 (undeclared).
func parseLength(s string) float64 {
	value := strings.TrimSpace(s)
	i := len(value)
	for i > 0 && isUnitLetter(value[i-1]) {
		i--
	}

	factor, ok := unitsPerPx[strings.ToLower(value[i:])]
	if !ok {
		return 0
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(value[:i]), 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n * factor
}

func isSVGTag(b []byte) bool {
	if !bytes.HasPrefix(b, []byte("<svg")) || len(b) < 5 {
		return false
	}
	switch b[4] {
	case ' ', '\t', '\n', '\r', '>', '/':
		return true
	}
	return false
}

func isUnitLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '%'
}

// parseViewBox parses "min-x min-y width height" separated by whitespace and/or commas
func parseViewBox(s string) (ViewBox, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return ViewBox{}, false
	}

	var values [4]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return ViewBox{}, false
		}
		values[i] = v
	}

	vb := ViewBox{X: values[0], Y: values[1], W: values[2], H: values[3]}
	if vb.W <= 0 || vb.H <= 0 {
		return ViewBox{}, false
	}
	return vb, true
}
