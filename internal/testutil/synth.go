package testutil

import (
	"encoding/binary"

	"github.com/boxesandglue/rubyfont/ot"
)

// Glyph describes one glyph of a synthetic font.
type Glyph struct {
	Rune     rune // 0 leaves the glyph unmapped
	Advance  uint16
	Contours []ot.Contour
}

// SynthFont describes a minimal TrueType font. Glyph 0 is always a .notdef
// box; Glyphs[i] becomes glyph i+1.
type SynthFont struct {
	UnitsPerEm     uint16
	PostScriptName string
	Glyphs         []Glyph

	// Extra tables are added verbatim, e.g. to exercise pass-through.
	Extra map[ot.Tag][]byte
}

// Box returns a closed rectangular contour of on-curve points.
func Box(x0, y0, x1, y1 int16) ot.Contour {
	return ot.Contour{
		{X: x0, Y: y0, OnCurve: true},
		{X: x0, Y: y1, OnCurve: true},
		{X: x1, Y: y1, OnCurve: true},
		{X: x1, Y: y0, OnCurve: true},
	}
}

// Build serialises the font. The result parses with ot, go-text and
// x/image.
func (s SynthFont) Build() ([]byte, error) {
	upm := s.UnitsPerEm
	if upm == 0 {
		upm = 1000
	}

	glyphs := append([]Glyph{{
		Advance:  upm / 2,
		Contours: []ot.Contour{Box(50, 0, int16(upm/2-50), int16(upm*7/10))},
	}}, s.Glyphs...)

	gb := ot.NewGlyfBuilder(len(glyphs))
	cmap := make(map[rune]ot.GlyphID)
	hmtx := make([]byte, 0, 4*len(glyphs))
	var advMax uint16
	var xMin, yMin, xMax, yMax int16
	for gid, g := range glyphs {
		if err := gb.AddSimple(g.Contours); err != nil {
			return nil, err
		}
		if g.Rune != 0 {
			cmap[g.Rune] = ot.GlyphID(gid)
		}
		var lsb int16
		first := true
		for _, c := range g.Contours {
			for _, p := range c {
				if first || p.X < lsb {
					lsb = p.X
				}
				first = false
				xMin, xMax = min(xMin, p.X), max(xMax, p.X)
				yMin, yMax = min(yMin, p.Y), max(yMax, p.Y)
			}
		}
		hmtx = binary.BigEndian.AppendUint16(hmtx, g.Advance)
		hmtx = binary.BigEndian.AppendUint16(hmtx, uint16(lsb))
		advMax = max(advMax, g.Advance)
	}
	glyf, loca, locFormat := gb.Build()

	head := make([]byte, 54)
	binary.BigEndian.PutUint32(head[0:], 0x00010000)
	binary.BigEndian.PutUint32(head[4:], 0x00010000) // fontRevision
	binary.BigEndian.PutUint32(head[12:], 0x5F0F3CF5)
	binary.BigEndian.PutUint16(head[16:], 0x000B) // flags
	binary.BigEndian.PutUint16(head[18:], upm)
	binary.BigEndian.PutUint16(head[36:], uint16(xMin))
	binary.BigEndian.PutUint16(head[38:], uint16(yMin))
	binary.BigEndian.PutUint16(head[40:], uint16(xMax))
	binary.BigEndian.PutUint16(head[42:], uint16(yMax))
	binary.BigEndian.PutUint16(head[46:], 8) // lowestRecPPEM
	binary.BigEndian.PutUint16(head[48:], 2) // fontDirectionHint
	binary.BigEndian.PutUint16(head[50:], uint16(locFormat))

	hhea := make([]byte, 36)
	binary.BigEndian.PutUint32(hhea[0:], 0x00010000)
	binary.BigEndian.PutUint16(hhea[4:], uint16(upm*8/10))         // ascender
	binary.BigEndian.PutUint16(hhea[6:], uint16(-int16(upm*2/10))) // descender
	binary.BigEndian.PutUint16(hhea[10:], advMax)
	binary.BigEndian.PutUint16(hhea[18:], 1) // caretSlopeRise
	binary.BigEndian.PutUint16(hhea[34:], uint16(len(glyphs)))

	maxp := make([]byte, 32)
	binary.BigEndian.PutUint32(maxp[0:], 0x00010000)
	binary.BigEndian.PutUint16(maxp[4:], uint16(len(glyphs)))
	binary.BigEndian.PutUint16(maxp[6:], uint16(gb.MaxPoints()))
	binary.BigEndian.PutUint16(maxp[8:], uint16(gb.MaxContours()))
	binary.BigEndian.PutUint16(maxp[14:], 1) // maxZones

	post := make([]byte, 32)
	binary.BigEndian.PutUint32(post[0:], 0x00030000)

	var names []ot.NameRecord
	if s.PostScriptName != "" {
		names = append(names,
			ot.NameRecord{ID: ot.NameIDFamily, Value: s.PostScriptName},
			ot.NameRecord{ID: ot.NameIDPostScript, Value: s.PostScriptName},
		)
	}
	name, err := ot.BuildNameTable(names...)
	if err != nil {
		return nil, err
	}

	b := ot.NewFontBuilder()
	b.AddTable(ot.TagCmap, ot.BuildCmap(cmap))
	b.AddTable(ot.TagHead, head)
	b.AddTable(ot.TagHhea, hhea)
	b.AddTable(ot.TagHmtx, hmtx)
	b.AddTable(ot.TagMaxp, maxp)
	b.AddTable(ot.TagGlyf, glyf)
	b.AddTable(ot.TagLoca, loca)
	b.AddTable(ot.TagName, name)
	b.AddTable(ot.TagPost, post)
	for tag, data := range s.Extra {
		b.AddTable(tag, data)
	}
	return b.Build()
}

// MustBuild is like Build but panics on error.
func (s SynthFont) MustBuild() []byte {
	data, err := s.Build()
	if err != nil {
		panic("testutil: " + err.Error())
	}
	return data
}

// Collection concatenates standalone fonts into a TrueType collection
// without any table sharing.
func Collection(fonts ...[]byte) []byte {
	header := 12 + 4*len(fonts)
	out := make([]byte, header)
	copy(out, "ttcf")
	binary.BigEndian.PutUint32(out[4:], 0x00010000)
	binary.BigEndian.PutUint32(out[8:], uint32(len(fonts)))

	for i, f := range fonts {
		base := uint32(len(out))
		binary.BigEndian.PutUint32(out[12+4*i:], base)

		numTables := int(binary.BigEndian.Uint16(f[4:]))
		dirLen := 12 + 16*numTables
		dir := append([]byte(nil), f[:dirLen]...)
		// table offsets are absolute in a collection
		for t := 0; t < numTables; t++ {
			rec := dir[12+16*t:]
			off := binary.BigEndian.Uint32(rec[8:])
			binary.BigEndian.PutUint32(rec[8:], off+base)
		}
		out = append(out, dir...)
		out = append(out, f[dirLen:]...)
	}
	return out
}

// DropTable returns a copy of the standalone font data without tag.
func DropTable(data []byte, tag ot.Tag) []byte {
	f, err := ot.ParseFont(data, 0)
	if err != nil {
		panic("testutil: " + err.Error())
	}
	b := ot.NewFontBuilder()
	b.ChecksumAdjustment = false
	b.SetVersion(f.Version())
	for _, rec := range f.Tables() {
		if rec.Tag == tag {
			continue
		}
		table, _ := f.TableData(rec.Tag)
		b.AddTable(rec.Tag, table)
	}
	out, err := b.Build()
	if err != nil {
		panic("testutil: " + err.Error())
	}
	return out
}
