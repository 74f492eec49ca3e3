package outline

import (
	"bytes"
	"fmt"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/font/opentype/tables"

	"github.com/boxesandglue/rubyfont/ot"
)

// goTextFont wraps the thread-safe *font.Font. Faces are created per
// goroutine because font.NewFace allocates per-glyph caches.
type goTextFont struct {
	fontInfo
	font *font.Font
}

func openGoText(data []byte, index int, info fontInfo) (*goTextFont, error) {
	loaders, err := opentype.NewLoaders(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("outline: gotext: %w", err)
	}
	if index < 0 || index >= len(loaders) {
		return nil, fmt.Errorf("outline: gotext: font index %d of %d: %w", index, len(loaders), ot.ErrInvalidFont)
	}
	f, err := font.NewFont(loaders[index])
	if err != nil {
		return nil, fmt.Errorf("outline: gotext: %w", err)
	}
	return &goTextFont{fontInfo: info, font: f}, nil
}

func (f *goTextFont) NewFace() Face {
	return &goTextFace{font: f, face: font.NewFace(f.font)}
}

type goTextFace struct {
	font *goTextFont
	face *font.Face
}

func (f *goTextFace) Lookup(r rune) (ot.GlyphID, bool) {
	gid, ok := f.face.NominalGlyph(r)
	if !ok || gid == 0 || int(gid) >= f.font.numGlyphs {
		return 0, false
	}
	return ot.GlyphID(gid), true
}

func (f *goTextFace) Advance(gid ot.GlyphID) float64 {
	if !f.font.hasHmtx {
		return f.font.upem
	}
	return float64(f.face.HorizontalAdvance(font.GID(gid)))
}

func (f *goTextFace) Draw(gid ot.GlyphID, pen Pen) error {
	if int(gid) >= f.font.numGlyphs {
		return ErrGlyphRange
	}
	data, ok := f.face.GlyphDataOutline(tables.GlyphID(gid))
	if !ok {
		return ErrNoOutline
	}

	cp := &contourPen{Pen: pen}
	for _, seg := range data.Segments {
		a := seg.Args
		switch seg.Op {
		case opentype.SegmentOpMoveTo:
			cp.MoveTo(float64(a[0].X), float64(a[0].Y))
		case opentype.SegmentOpLineTo:
			cp.LineTo(float64(a[0].X), float64(a[0].Y))
		case opentype.SegmentOpQuadTo:
			cp.QuadTo(float64(a[0].X), float64(a[0].Y), float64(a[1].X), float64(a[1].Y))
		case opentype.SegmentOpCubeTo:
			cp.CubeTo(float64(a[0].X), float64(a[0].Y), float64(a[1].X), float64(a[1].Y),
				float64(a[2].X), float64(a[2].Y))
		}
	}
	cp.finish()
	return nil
}
