package outline

import (
	"errors"
	"fmt"

	"github.com/boxesandglue/rubyfont/ot"
)

// Sentinel errors for the outline package.
var (
	// ErrUnknownEngine is returned for an engine name that is not supported.
	ErrUnknownEngine = errors.New("outline: unknown engine")

	// ErrNoOutline is returned when a glyph has no vector outline the
	// engine can draw.
	ErrNoOutline = errors.New("outline: glyph has no outline")

	// ErrGlyphRange is returned for a glyph id outside the font.
	ErrGlyphRange = errors.New("outline: glyph id out of range")

	// ErrCoordinateRange is returned when a path does not fit the 16-bit
	// coordinates of a TrueType glyph.
	ErrCoordinateRange = errors.New("outline: coordinate out of range")
)

// Engine selects the library that decodes glyph outlines.
type Engine int

const (
	// GoText decodes with github.com/go-text/typesetting. It reads glyf,
	// CFF and CFF2 outlines.
	GoText Engine = iota

	// XImage decodes with golang.org/x/image/font/sfnt.
	XImage
)

// String returns the name accepted by ParseEngine.
func (e Engine) String() string {
	switch e {
	case GoText:
		return "gotext"
	case XImage:
		return "ximage"
	default:
		return fmt.Sprintf("Engine(%d)", int(e))
	}
}

// ParseEngine returns the engine with the given name.
func ParseEngine(name string) (Engine, error) {
	switch name {
	case "gotext", "":
		return GoText, nil
	case "ximage":
		return XImage, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
}

// Font is a parsed font that can be shared between goroutines.
type Font interface {
	// UnitsPerEm returns the design units per em.
	UnitsPerEm() float64

	// NumGlyphs returns the number of glyphs.
	NumGlyphs() int

	// NewFace returns a face for use by a single goroutine.
	NewFace() Face
}

// Face looks up and draws glyphs. A Face is not safe for concurrent use.
type Face interface {
	// Lookup returns the glyph the character map assigns to r. Glyph 0
	// is reported as unmapped.
	Lookup(r rune) (ot.GlyphID, bool)

	// Advance returns the horizontal advance of gid. A font without
	// horizontal metrics reports one em.
	Advance(gid ot.GlyphID) float64

	// Draw sends the outline of gid to pen, closing every contour. On
	// error the pen keeps whatever was drawn before the failure.
	Draw(gid ot.GlyphID, pen Pen) error
}

// Open parses font index of data with the given engine. data must not be
// modified while the font is in use.
func Open(engine Engine, data []byte, index int) (Font, error) {
	src, err := ot.ParseFont(data, index)
	if err != nil {
		return nil, err
	}
	info := fontInfo{
		upem:      float64(src.UnitsPerEm()),
		numGlyphs: src.NumGlyphs(),
		hasHmtx:   src.HasTable(ot.TagHmtx) && src.HasTable(ot.TagHhea),
	}
	if info.upem == 0 {
		return nil, fmt.Errorf("outline: %w: head", ot.ErrInvalidTable)
	}

	var f Font
	switch engine {
	case GoText:
		f, err = openGoText(data, index, info)
	case XImage:
		f, err = openXImage(data, index, info)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownEngine, engine)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// fontInfo holds the values both engines read from the sfnt directly.
type fontInfo struct {
	upem      float64
	numGlyphs int
	hasHmtx   bool
}

func (i fontInfo) UnitsPerEm() float64 { return i.upem }
func (i fontInfo) NumGlyphs() int      { return i.numGlyphs }
