package outline

import (
	"errors"
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/boxesandglue/rubyfont/ot"
)

// xImageFont wraps an *sfnt.Font, which is safe for concurrent use as long
// as every goroutine brings its own sfnt.Buffer.
type xImageFont struct {
	fontInfo
	font *sfnt.Font

	// ppem of one 26.6 unit per font unit: segments and advances then
	// come back in font units.
	ppem fixed.Int26_6
}

func openXImage(data []byte, index int, info fontInfo) (*xImageFont, error) {
	var (
		f   *sfnt.Font
		err error
	)
	if ot.IsCollection(data) {
		var c *sfnt.Collection
		if c, err = sfnt.ParseCollection(data); err == nil {
			f, err = c.Font(index)
		}
	} else {
		f, err = sfnt.Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("outline: ximage: %w", err)
	}
	return &xImageFont{fontInfo: info, font: f, ppem: fixed.Int26_6(f.UnitsPerEm())}, nil
}

func (f *xImageFont) NewFace() Face {
	return &xImageFace{font: f}
}

type xImageFace struct {
	font *xImageFont
	buf  sfnt.Buffer
}

func (f *xImageFace) Lookup(r rune) (ot.GlyphID, bool) {
	gi, err := f.font.font.GlyphIndex(&f.buf, r)
	if err != nil || gi == 0 {
		return 0, false
	}
	return ot.GlyphID(gi), true
}

func (f *xImageFace) Advance(gid ot.GlyphID) float64 {
	adv, err := f.font.font.GlyphAdvance(&f.buf, sfnt.GlyphIndex(gid), f.font.ppem, font.HintingNone)
	if err != nil {
		return f.font.upem
	}
	return float64(adv)
}

func (f *xImageFace) Draw(gid ot.GlyphID, pen Pen) error {
	if int(gid) >= f.font.numGlyphs {
		return ErrGlyphRange
	}
	segs, err := f.font.font.LoadGlyph(&f.buf, sfnt.GlyphIndex(gid), f.font.ppem, nil)
	if err != nil {
		if errors.Is(err, sfnt.ErrColoredGlyph) {
			return ErrNoOutline
		}
		return fmt.Errorf("outline: ximage: glyph %d: %w", gid, err)
	}

	// x/image flips Y to point down
	cp := &contourPen{Pen: pen}
	for _, seg := range segs {
		a := seg.Args
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			cp.MoveTo(float64(a[0].X), -float64(a[0].Y))
		case sfnt.SegmentOpLineTo:
			cp.LineTo(float64(a[0].X), -float64(a[0].Y))
		case sfnt.SegmentOpQuadTo:
			cp.QuadTo(float64(a[0].X), -float64(a[0].Y), float64(a[1].X), -float64(a[1].Y))
		case sfnt.SegmentOpCubeTo:
			cp.CubeTo(float64(a[0].X), -float64(a[0].Y), float64(a[1].X), -float64(a[1].Y),
				float64(a[2].X), -float64(a[2].Y))
		}
	}
	cp.finish()
	return nil
}
