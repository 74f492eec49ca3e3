// Package rewrite redraws every glyph of a font, lets ruby annotators add
// to the outlines and writes the result back as TrueType glyf/loca.
package rewrite

import (
	"errors"
	"fmt"

	"seehuhn.de/go/geom/path"

	"github.com/boxesandglue/rubyfont"
	"github.com/boxesandglue/rubyfont/ot"
	"github.com/boxesandglue/rubyfont/outline"
	"github.com/boxesandglue/rubyfont/ruby"
)

// ErrMissingTable is returned when a font lacks a table the rewrite needs.
var ErrMissingTable = errors.New("rewrite: missing required table")

var requiredTables = []ot.Tag{ot.TagHead, ot.TagHhea, ot.TagHmtx, ot.TagMaxp}

// Tables that are rebuilt or dropped instead of copied. Variation tables
// are dropped as well since the outlines are drawn at the default instance.
var replacedTables = map[ot.Tag]bool{
	ot.TagGlyf: true,
	ot.TagLoca: true,
	ot.TagCFF:  true,
	ot.TagCFF2: true,
}

// Rewriter rewrites fonts. The zero value copies every glyph unchanged
// apart from the re-encoding; a Rewriter may be used by several goroutines
// at once as long as its fields are not modified.
type Rewriter struct {
	// Annotators run in order on every glyph whose character lies in
	// their ranges. Later annotators see the geometry of earlier ones.
	Annotators []ruby.Annotator

	// Engine draws the glyphs of the font being rewritten.
	Engine outline.Engine

	// Name replaces the name table with family and full name records
	// when set.
	Name string

	// TwoPass measures every annotated glyph before emitting any, so
	// that all glyphs of a font share the final baseline.
	TwoPass bool

	// FixChecksum stores a valid head checksumAdjustment. Otherwise the
	// field is zero.
	FixChecksum bool

	// OnGlyph is called after each glyph has been emitted.
	OnGlyph func()
}

// Stats describes one rewritten font.
type Stats struct {
	Glyphs    int
	Mapped    int // glyphs with a character in the annotators' ranges
	Degraded  int // glyphs emitted empty because drawing or encoding failed
	GlyfBytes int
}

// glyphSource draws base glyphs and reports their advances.
type glyphSource struct {
	face     outline.Face
	hmtx     *ot.Hmtx
	upm      float64
	numGlyph int
}

func (s *glyphSource) advance(gid ot.GlyphID) float64 {
	if s.hmtx == nil {
		return s.upm
	}
	return float64(s.hmtx.GetAdvanceWidth(gid))
}

// draw returns the outline of gid and whether drawing succeeded.
func (s *glyphSource) draw(gid ot.GlyphID) (*path.Data, bool) {
	pen := outline.NewPathPen()
	if err := s.face.Draw(gid, pen); err != nil {
		rubyfont.Logger().Debug("rewrite: draw failed", "gid", gid, "err", err)
		return &path.Data{}, false
	}
	return pen.Path, true
}

// Rewrite rewrites font index of data and returns the new sfnt.
func (r *Rewriter) Rewrite(data []byte, index int) ([]byte, error) {
	out, _, err := r.RewriteStats(data, index)
	return out, err
}

// RewriteStats is like Rewrite and also returns statistics.
func (r *Rewriter) RewriteStats(data []byte, index int) ([]byte, Stats, error) {
	var stats Stats

	src, err := ot.ParseFont(data, index)
	if err != nil {
		return nil, stats, err
	}
	for _, tag := range requiredTables {
		if !src.HasTable(tag) {
			return nil, stats, fmt.Errorf("%w: %s", ErrMissingTable, tag)
		}
	}

	headData, _ := src.TableData(ot.TagHead)
	head, err := ot.ParseHead(headData)
	if err != nil {
		return nil, stats, fmt.Errorf("rewrite: head: %w", err)
	}
	maxpData, _ := src.TableData(ot.TagMaxp)
	if _, err := ot.ParseMaxp(maxpData); err != nil {
		return nil, stats, fmt.Errorf("rewrite: maxp: %w", err)
	}

	if src.Version() == ot.VersionCFF {
		rubyfont.Logger().Debug("rewrite: converting CFF outlines to glyf", "index", index)
	}
	if fvar, err := src.TableData(ot.TagFvar); err == nil {
		axes, err := ot.ParseFvar(fvar)
		if err != nil {
			rubyfont.Logger().Warn("rewrite: unreadable fvar", "index", index, "err", err)
		}
		rubyfont.Logger().Info("rewrite: flattening variable font", "index", index, "instance", ot.DefaultInstance(axes))
	}

	base, err := outline.Open(r.Engine, data, index)
	if err != nil {
		return nil, stats, err
	}
	gs := &glyphSource{
		face:     base.NewFace(),
		upm:      float64(head.UnitsPerEm),
		numGlyph: src.NumGlyphs(),
	}
	if gs.hmtx, err = ot.ParseHmtxFromFont(src); err != nil {
		rubyfont.Logger().Warn("rewrite: unusable hmtx, using one em advances", "err", err)
	}

	runes := r.charMap(gs.face)
	if len(r.Annotators) > 0 && len(runes) == 0 {
		rubyfont.Logger().Warn("rewrite: no annotatable glyphs", "index", index)
	}
	states := make([]*ruby.State, len(r.Annotators))
	for i, a := range r.Annotators {
		states[i] = a.NewState()
	}

	annotate := func(gid ot.GlyphID, p *path.Data) error {
		ch, ok := runes[gid]
		if !ok {
			return nil
		}
		for i, a := range r.Annotators {
			if !ruby.InRanges(ch, a.Ranges()) {
				continue
			}
			if err := a.Annotate(states[i], ch, p, gs.advance(gid), gs.upm); err != nil {
				return fmt.Errorf("rewrite: %s annotation of glyph %d: %w", a.Name(), gid, err)
			}
		}
		return nil
	}

	if r.TwoPass {
		for gid := range runes {
			p, _ := gs.draw(gid)
			if err := annotate(gid, p); err != nil {
				return nil, stats, err
			}
		}
	}

	gb := ot.NewGlyfBuilder(gs.numGlyph)
	for i := 0; i < gs.numGlyph; i++ {
		gid := ot.GlyphID(i)
		p, ok := gs.draw(gid)
		if err := annotate(gid, p); err != nil {
			return nil, stats, err
		}
		if !encode(gb, gid, p, ok) {
			stats.Degraded++
		}
		if r.OnGlyph != nil {
			r.OnGlyph()
		}
	}

	glyf, loca, locaFormat := gb.Build()
	stats.Glyphs = gb.NumGlyphs()
	stats.Mapped = len(runes)
	stats.GlyfBytes = len(glyf)

	numLong := 0
	if gs.hmtx != nil {
		numLong = gs.hmtx.NumberOfMetrics()
	}
	out, err := r.assemble(src, gb, glyf, loca, locaFormat, numLong)
	if err != nil {
		return nil, stats, err
	}
	rubyfont.Logger().Info("rewrite: font done",
		"index", index, "glyphs", stats.Glyphs, "mapped", stats.Mapped,
		"degraded", stats.Degraded, "bytes", len(out))
	return out, stats, nil
}

// charMap maps glyphs to the first character of the annotators' ranges
// that the font assigns to them.
func (r *Rewriter) charMap(face outline.Face) map[ot.GlyphID]rune {
	m := make(map[ot.GlyphID]rune)
	for _, a := range r.Annotators {
		for _, rg := range a.Ranges() {
			for ch := rg.Lo; ch <= rg.Hi; ch++ {
				gid, ok := face.Lookup(ch)
				if !ok {
					continue
				}
				if _, seen := m[gid]; !seen {
					m[gid] = ch
				}
			}
		}
	}
	return m
}

// encode appends p as the next glyph. It reports false when the glyph had
// to be emitted empty.
func encode(gb *ot.GlyfBuilder, gid ot.GlyphID, p *path.Data, drawn bool) bool {
	if !drawn && outline.IsEmpty(p) {
		gb.AddEmpty()
		return false
	}
	contours, err := outline.Contours(outline.Quadratic(p, outline.DefaultTolerance))
	if err == nil {
		err = gb.AddSimple(contours)
	}
	if err != nil {
		rubyfont.Logger().Debug("rewrite: encode failed", "gid", gid, "err", err)
		gb.AddEmpty()
		return false
	}
	return drawn
}

// assemble copies the tables of src around the rebuilt outlines. The left
// side bearings in hmtx follow the new outlines, since readers shift a
// glyph by xMin-lsb; numLong is 0 when hmtx could not be parsed.
func (r *Rewriter) assemble(src *ot.Font, gb *ot.GlyfBuilder, glyf, loca []byte, locaFormat int16, numLong int) ([]byte, error) {
	fb := ot.NewFontBuilder()
	fb.ChecksumAdjustment = r.FixChecksum

	for _, rec := range src.Tables() {
		if replacedTables[rec.Tag] || ot.VariationTables[rec.Tag] {
			continue
		}
		data, err := src.TableData(rec.Tag)
		if err != nil {
			return nil, err
		}

		switch rec.Tag {
		case ot.TagHead:
			if data, err = ot.PatchHead(data, locaFormat); err != nil {
				return nil, fmt.Errorf("rewrite: head: %w", err)
			}
		case ot.TagMaxp:
			if data, err = ot.PatchMaxp(data, gb.NumGlyphs(), gb.MaxPoints(), gb.MaxContours()); err != nil {
				return nil, fmt.Errorf("rewrite: maxp: %w", err)
			}
		case ot.TagHmtx:
			if numLong > 0 {
				data = ot.PatchLsb(data, numLong, gb.NumGlyphs(), gb.XMin)
			}
		case ot.TagName:
			if r.Name != "" {
				continue
			}
		}
		fb.AddTable(rec.Tag, data)
	}

	if r.Name != "" {
		name, err := ot.BuildNameTable(ot.DisplayNameRecords(r.Name)...)
		if err != nil {
			return nil, fmt.Errorf("rewrite: name: %w", err)
		}
		fb.AddTable(ot.TagName, name)
	}
	fb.AddTable(ot.TagGlyf, glyf)
	fb.AddTable(ot.TagLoca, loca)

	return fb.Build()
}
