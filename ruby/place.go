package ruby

import (
	"strings"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"

	"github.com/boxesandglue/rubyfont"
	"github.com/boxesandglue/rubyfont/outline"
)

// heightFactor approximates the height of an annotation line as a fraction
// of its em. It sets the bottom gap in tight mode and the step between
// stacked glyphs.
const heightFactor = 0.8

// placer holds the placement logic shared by all annotators.
type placer struct {
	font outline.Font
	opts Options
}

// annotationGlyph is one drawn annotation character.
type annotationGlyph struct {
	path    *path.Data
	advance float64 // scaled
}

// collect draws every character of parts with the state's face. It returns
// false if any character is unmapped or cannot be drawn, in which case the
// whole annotation is dropped.
func (p *placer) collect(st *State, parts []string, scale float64) ([][]annotationGlyph, bool) {
	out := make([][]annotationGlyph, 0, len(parts))
	for _, part := range parts {
		glyphs := make([]annotationGlyph, 0, len(part))
		for _, r := range part {
			gid, ok := st.face.Lookup(r)
			if !ok {
				rubyfont.Logger().Debug("ruby: annotation character not in font", "char", string(r))
				return nil, false
			}
			pen := outline.NewPathPen()
			if err := st.face.Draw(gid, pen); err != nil {
				rubyfont.Logger().Debug("ruby: cannot draw annotation glyph", "char", string(r), "gid", gid, "err", err)
				return nil, false
			}
			glyphs = append(glyphs, annotationGlyph{
				path:    pen.Path,
				advance: st.face.Advance(gid) * scale,
			})
		}
		out = append(out, glyphs)
	}
	return out, true
}

// splitParts splits text on the delimiter, dropping empty parts.
func (p *placer) splitParts(text string) []string {
	if p.opts.Delimiter == "" {
		return []string{text}
	}
	var parts []string
	for _, s := range strings.Split(text, p.opts.Delimiter) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// place appends the annotation text to base.
func (p *placer) place(st *State, text string, base *path.Data, advance, upm float64) error {
	if st == nil {
		return ErrNoState
	}
	if base == nil {
		return ErrNoPath
	}
	if text == "" {
		return nil
	}

	parts := p.splitParts(text)
	if len(parts) == 0 {
		return nil
	}

	ratio := p.opts.Scale
	scale := ratio * upm / p.font.UnitsPerEm()

	glyphs, ok := p.collect(st, parts, scale)
	if !ok {
		return nil
	}

	// an empty base glyph is treated as a zero box at the origin
	bbox, _ := outline.Bounds(base)

	if p.opts.Position.Side() {
		var column []annotationGlyph
		for _, part := range glyphs {
			column = append(column, part...)
		}
		p.placeSide(base, column, scale, (bbox.LLy+bbox.URy)/2, advance, upm)
		return nil
	}

	approxHeight := upm * ratio * heightFactor
	gutter := p.opts.Gutter * upm
	offset := p.opts.BaselineOffset * upm
	spacing := p.opts.Spacing * upm

	var y float64
	if p.opts.Tight {
		if p.opts.Position == Top {
			y = bbox.URy + gutter
		} else {
			y = bbox.LLy - gutter - approxHeight
		}
	} else {
		minY, maxY, ok := p.yExtent(glyphs)
		if !ok {
			minY, maxY = 0, approxHeight/scale
		}
		if p.opts.Position == Top {
			y = st.Baseline.WidenTop(bbox.URy + gutter + offset - minY*scale)
		} else {
			y = st.Baseline.WidenBottom(bbox.LLy - gutter - offset - maxY*scale)
		}
	}

	total := spacing * float64(len(glyphs)-1)
	for _, part := range glyphs {
		for _, g := range part {
			total += g.advance
		}
	}

	x := (advance - total) / 2
	for i, part := range glyphs {
		for _, g := range part {
			outline.AppendTransformed(base, g.path, matrix.Scale(scale, scale).Translate(x, y))
			x += g.advance
		}
		if i+1 < len(glyphs) {
			x += spacing
		}
	}
	return nil
}

// yExtent returns the vertical extent of all annotation points, in
// annotation font units.
func (p *placer) yExtent(glyphs [][]annotationGlyph) (minY, maxY float64, ok bool) {
	for _, part := range glyphs {
		for _, g := range part {
			lo, hi, has := outline.YExtent(g.path)
			if !has {
				continue
			}
			if !ok {
				minY, maxY, ok = lo, hi, true
				continue
			}
			minY, maxY = min(minY, lo), max(maxY, hi)
		}
	}
	return minY, maxY, ok
}

// placeSide stacks the glyphs in one column beside the base glyph,
// centred on centerY.
func (p *placer) placeSide(base *path.Data, column []annotationGlyph, scale, centerY, advance, upm float64) {
	if len(column) == 0 {
		return
	}

	var colWidth float64
	for _, g := range column {
		colWidth = max(colWidth, g.advance)
	}
	step := upm * p.opts.Scale * heightFactor
	gutter := p.opts.Gutter * upm

	x0 := advance + gutter
	if p.opts.Position.left() {
		x0 = -(colWidth + gutter)
	}

	half := float64(len(column)-1) / 2 * step
	y, dy := centerY-half, step
	if p.opts.Position.down() {
		y, dy = centerY+half, -step
	}

	for _, g := range column {
		x := x0 + (colWidth-g.advance)/2
		outline.AppendTransformed(base, g.path, matrix.Scale(scale, scale).Translate(x, y))
		y += dy
	}
}
