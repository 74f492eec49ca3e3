package rewrite

import (
	"encoding/binary"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/sfnt"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"

	"github.com/boxesandglue/rubyfont/internal/testutil"
	"github.com/boxesandglue/rubyfont/ot"
	"github.com/boxesandglue/rubyfont/outline"
	"github.com/boxesandglue/rubyfont/ruby"
)

// glyph ids of baseFont
const (
	gidYi    = 1 // 一, short
	gidZhong = 2 // 中, tall
	gidA     = 3
	gidSpace = 4
	gidKa    = 5
)

func baseFont() []byte {
	return testutil.SynthFont{
		UnitsPerEm:     1000,
		PostScriptName: "Base-Regular",
		Glyphs: []testutil.Glyph{
			{Rune: '一', Advance: 1000, Contours: []ot.Contour{testutil.Box(100, 0, 900, 300)}},
			{Rune: '中', Advance: 1000, Contours: []ot.Contour{testutil.Box(100, 0, 900, 800)}},
			{Rune: 'A', Advance: 600, Contours: []ot.Contour{testutil.Box(50, 0, 550, 700)}},
			{Rune: ' ', Advance: 250},
			{Rune: 'か', Advance: 1000, Contours: []ot.Contour{testutil.Box(100, 0, 900, 700)}},
		},
	}.MustBuild()
}

func annotationFont(t *testing.T) outline.Font {
	t.Helper()
	sf := testutil.SynthFont{UnitsPerEm: 1000}
	for _, r := range "zhōngyīka" {
		sf.Glyphs = append(sf.Glyphs, testutil.Glyph{
			Rune:     r,
			Advance:  500,
			Contours: []ot.Contour{testutil.Box(0, 0, 400, 500)},
		})
	}
	f, err := outline.Open(outline.GoText, sf.MustBuild(), 0)
	require.NoError(t, err)
	return f
}

// glyphParts draws gid of data and returns the bounds of every contour.
func glyphParts(t *testing.T, data []byte, gid ot.GlyphID) []rect.Rect {
	t.Helper()
	f, err := outline.Open(outline.GoText, data, 0)
	require.NoError(t, err)
	pen := outline.NewPathPen()
	require.NoError(t, f.NewFace().Draw(gid, pen))

	var out []rect.Rect
	k := 0
	var cur *path.Data
	flush := func() {
		if cur != nil {
			r, ok := outline.Bounds(cur)
			require.True(t, ok)
			out = append(out, r)
		}
	}
	for _, cmd := range pen.Path.Cmds {
		if cmd == path.CmdMoveTo {
			flush()
			cur = &path.Data{}
		}
		n := 0
		switch cmd {
		case path.CmdMoveTo, path.CmdLineTo:
			n = 1
		case path.CmdQuadTo:
			n = 2
		case path.CmdCubeTo:
			n = 3
		}
		cur.Cmds = append(cur.Cmds, cmd)
		cur.Coords = append(cur.Coords, pen.Path.Coords[k:k+n]...)
		k += n
	}
	flush()
	return out
}

func TestRewriteKeepsGlyphs(t *testing.T) {
	data := baseFont()
	var r Rewriter
	out, stats, err := r.RewriteStats(data, 0)
	require.NoError(t, err)

	src, err := ot.ParseFont(data, 0)
	require.NoError(t, err)
	dst, err := ot.ParseFont(out, 0)
	require.NoError(t, err)
	assert.Equal(t, src.NumGlyphs(), dst.NumGlyphs())
	assert.Equal(t, src.NumGlyphs(), stats.Glyphs)
	assert.Zero(t, stats.Degraded)
	assert.Zero(t, stats.Mapped)

	for gid := ot.GlyphID(0); int(gid) < src.NumGlyphs(); gid++ {
		if gid == gidSpace {
			continue
		}
		assert.Equal(t, glyphParts(t, data, gid), glyphParts(t, out, gid), "glyph %d", gid)
	}
	assert.Empty(t, glyphParts(t, out, gidSpace))

	// every table except the outlines and head/maxp is copied verbatim
	for _, rec := range src.Tables() {
		switch rec.Tag {
		case ot.TagGlyf, ot.TagLoca, ot.TagHead, ot.TagMaxp:
			continue
		}
		a, _ := src.TableData(rec.Tag)
		b, err := dst.TableData(rec.Tag)
		require.NoError(t, err, rec.Tag.String())
		assert.Equal(t, a, b, rec.Tag.String())
	}

	if _, err := sfnt.Parse(out); err != nil {
		t.Errorf("x/image cannot parse the output: %v", err)
	}
}

func TestRewriteGoRegular(t *testing.T) {
	data := testutil.GoRegular()
	var r Rewriter
	out, err := r.Rewrite(data, 0)
	require.NoError(t, err)

	src, _ := ot.ParseFont(data, 0)
	dst, err := ot.ParseFont(out, 0)
	require.NoError(t, err)
	assert.Equal(t, src.NumGlyphs(), dst.NumGlyphs())
	t.Logf("glyf %d bytes in, output font %d bytes", len(mustTable(t, src, ot.TagGlyf)), len(out))

	f, err := outline.Open(outline.GoText, out, 0)
	require.NoError(t, err)
	gid, ok := f.NewFace().Lookup('g')
	require.True(t, ok)
	before := glyphParts(t, data, gid)
	after := glyphParts(t, out, gid)
	require.Len(t, after, len(before))
	for i := range before {
		assert.InDelta(t, before[i].LLy, after[i].LLy, 1)
		assert.InDelta(t, before[i].URx, after[i].URx, 1)
	}
}

func TestRewriteAnnotates(t *testing.T) {
	data := baseFont()
	r := Rewriter{Annotators: []ruby.Annotator{ruby.NewPinyin(annotationFont(t), ruby.DefaultOptions())}}
	out, stats, err := r.RewriteStats(data, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Mapped)

	zhong := glyphParts(t, out, gidZhong)
	require.Len(t, zhong, 6, "base plus zhōng")
	assert.Equal(t, rect.Rect{LLx: 100, LLy: 0, URx: 900, URy: 800}, zhong[0])
	for _, r := range zhong[1:] {
		assert.GreaterOrEqual(t, r.LLy, 800.0)
	}

	// 一 comes first, before the taller 中 widened the baseline
	yi := glyphParts(t, out, gidYi)
	require.Len(t, yi, 3)
	assert.Equal(t, 300.0, yi[1].LLy)

	assert.Len(t, glyphParts(t, out, gidA), 1)
	assert.Len(t, glyphParts(t, out, gidKa), 1)

	dst, _ := ot.ParseFont(out, 0)
	maxp, err := ot.ParseMaxp(mustTable(t, dst, ot.TagMaxp))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, int(maxp.MaxPoints), 24)
	assert.GreaterOrEqual(t, int(maxp.MaxContours), 6)
}

func TestRewriteTwoPass(t *testing.T) {
	r := Rewriter{
		Annotators: []ruby.Annotator{ruby.NewPinyin(annotationFont(t), ruby.DefaultOptions())},
		TwoPass:    true,
	}
	out, err := r.Rewrite(baseFont(), 0)
	require.NoError(t, err)

	yi := glyphParts(t, out, gidYi)
	zhong := glyphParts(t, out, gidZhong)
	require.Len(t, yi, 3)
	require.Len(t, zhong, 6)
	assert.Equal(t, 800.0, yi[1].LLy)
	assert.Equal(t, 800.0, zhong[1].LLy)
}

func TestRewriteComposesAnnotators(t *testing.T) {
	ann := annotationFont(t)
	r := Rewriter{Annotators: []ruby.Annotator{
		ruby.NewPinyin(ann, ruby.DefaultOptions()),
		ruby.NewRomaji(ann, ruby.DefaultOptions()),
	}}
	out, stats, err := r.RewriteStats(baseFont(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Mapped)

	assert.Len(t, glyphParts(t, out, gidZhong), 6, "romaji leaves Han alone")
	assert.Len(t, glyphParts(t, out, gidKa), 3, "base plus ka")
}

func TestRewriteDegradesUnencodable(t *testing.T) {
	opts := ruby.DefaultOptions()
	opts.Scale = 80 // annotations far outside the 16-bit coordinate range
	r := Rewriter{Annotators: []ruby.Annotator{ruby.NewPinyin(annotationFont(t), opts)}}
	out, stats, err := r.RewriteStats(baseFont(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Degraded)
	assert.Empty(t, glyphParts(t, out, gidZhong))
	assert.Len(t, glyphParts(t, out, gidA), 1)
}

func TestRewriteOnGlyph(t *testing.T) {
	n := 0
	r := Rewriter{OnGlyph: func() { n++ }}
	_, err := r.Rewrite(baseFont(), 0)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestRewriteMissingTables(t *testing.T) {
	for _, tag := range []ot.Tag{ot.TagHead, ot.TagHhea, ot.TagHmtx, ot.TagMaxp} {
		var r Rewriter
		_, err := r.Rewrite(testutil.DropTable(baseFont(), tag), 0)
		if !errors.Is(err, ErrMissingTable) {
			t.Errorf("without %s: err = %v, want ErrMissingTable", tag, err)
		}
	}

	var r Rewriter
	if _, err := r.Rewrite([]byte("not a font"), 0); !errors.Is(err, ot.ErrInvalidFont) {
		t.Errorf("err = %v, want ErrInvalidFont", err)
	}
}

func TestRewriteHead(t *testing.T) {
	var r Rewriter
	out, err := r.Rewrite(baseFont(), 0)
	require.NoError(t, err)
	f, _ := ot.ParseFont(out, 0)
	head := mustTable(t, f, ot.TagHead)
	assert.Zero(t, binary.BigEndian.Uint32(head[8:]), "checksumAdjustment")
	assert.Zero(t, binary.BigEndian.Uint16(head[50:]), "short loca")

	r.FixChecksum = true
	out, err = r.Rewrite(baseFont(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xB1B0AFBA), ot.CalcChecksum(out))
}

func TestRewriteName(t *testing.T) {
	r := Rewriter{Name: "Base Ruby"}
	out, err := r.Rewrite(baseFont(), 0)
	require.NoError(t, err)

	f, err := sfnt.Parse(out)
	require.NoError(t, err)
	for _, id := range []sfnt.NameID{sfnt.NameIDFamily, sfnt.NameIDFull} {
		name, err := f.Name(nil, id)
		require.NoError(t, err)
		assert.Equal(t, "Base Ruby", name)
	}
	if _, err := f.Name(nil, sfnt.NameIDPostScript); err == nil {
		t.Error("the replacement name table should hold only family and full name")
	}
}

func TestRewriteCollectionMember(t *testing.T) {
	ttc := testutil.Collection(testutil.GoMono(), baseFont())
	r := Rewriter{Annotators: []ruby.Annotator{ruby.NewPinyin(annotationFont(t), ruby.DefaultOptions())}}
	out, err := r.Rewrite(ttc, 1)
	require.NoError(t, err)
	assert.False(t, ot.IsCollection(out))
	assert.Len(t, glyphParts(t, out, gidZhong), 6)
}

func TestRewriteCFF(t *testing.T) {
	file := testutil.FindTestFont("SourceHanSans-Regular.otf")
	if file == "" {
		t.Skip("no CFF CJK test font")
	}
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var r Rewriter
	out, err := r.Rewrite(data, 0)
	require.NoError(t, err)
	f, err := ot.ParseFont(out, 0)
	require.NoError(t, err)
	assert.Equal(t, ot.VersionTrueType, f.Version())
	assert.False(t, f.HasTable(ot.TagCFF))
	assert.True(t, f.HasTable(ot.TagGlyf))
}

func TestRewriteDropsVariationTables(t *testing.T) {
	sf := testutil.SynthFont{
		Glyphs: []testutil.Glyph{{Rune: 'A', Advance: 600, Contours: []ot.Contour{testutil.Box(50, 0, 550, 700)}}},
		Extra: map[ot.Tag][]byte{
			ot.TagSTAT: []byte("style attributes"),
			ot.TagCvar: []byte("cvt variations"),
			ot.TagGasp: {0, 1, 0, 1, 0xFF, 0xFF, 0, 0x0F},
		},
	}
	var r Rewriter
	out, err := r.Rewrite(sf.MustBuild(), 0)
	require.NoError(t, err)
	f, err := ot.ParseFont(out, 0)
	require.NoError(t, err)
	assert.False(t, f.HasTable(ot.TagSTAT))
	assert.False(t, f.HasTable(ot.TagCvar))
	assert.True(t, f.HasTable(ot.TagGasp), "other tables are copied")
}

// replaceGlyphs rebuilds glyf and loca of data with the given glyph
// records swapped in.
func replaceGlyphs(t *testing.T, data []byte, records map[ot.GlyphID][]byte) []byte {
	t.Helper()
	src, err := ot.ParseFont(data, 0)
	require.NoError(t, err)
	glyf, err := ot.ParseGlyfFromFont(src)
	require.NoError(t, err)

	gb := ot.NewGlyfBuilder(src.NumGlyphs())
	for g := 0; g < src.NumGlyphs(); g++ {
		gid := ot.GlyphID(g)
		b, replaced := records[gid]
		if !replaced {
			b = glyf.GetGlyphBytes(gid)
		}
		if len(b) == 0 {
			gb.AddEmpty()
		} else {
			gb.AddRaw(b)
		}
	}
	glyfData, loca, format := gb.Build()

	fb := ot.NewFontBuilder()
	fb.ChecksumAdjustment = false
	for _, rec := range src.Tables() {
		table, _ := src.TableData(rec.Tag)
		fb.AddTable(rec.Tag, table)
	}
	head, err := ot.PatchHead(mustTable(t, src, ot.TagHead), format)
	require.NoError(t, err)
	fb.AddTable(ot.TagHead, head)
	fb.AddTable(ot.TagGlyf, glyfData)
	fb.AddTable(ot.TagLoca, loca)
	out, err := fb.Build()
	require.NoError(t, err)
	return out
}

// truncatedGlyph announces a four-point contour but stops before its flags.
func truncatedGlyph() []byte {
	b := make([]byte, 10)
	binary.BigEndian.PutUint16(b, 1)           // numberOfContours
	b = binary.BigEndian.AppendUint16(b, 3)    // endPtsOfContours[0]
	return binary.BigEndian.AppendUint16(b, 0) // instructionLength
}

// glyphBounds draws gid of data with engine and returns its bounding box.
func glyphBounds(t *testing.T, engine outline.Engine, data []byte, gid ot.GlyphID) rect.Rect {
	t.Helper()
	f, err := outline.Open(engine, data, 0)
	require.NoError(t, err)
	pen := outline.NewPathPen()
	require.NoError(t, f.NewFace().Draw(gid, pen))
	r, ok := outline.Bounds(pen.Path)
	require.True(t, ok, "glyph %d is empty", gid)
	return r
}

func TestRewriteLeftSideBearing(t *testing.T) {
	opts := ruby.DefaultOptions()
	opts.Position = ruby.LeftDown
	r := Rewriter{Annotators: []ruby.Annotator{ruby.NewPinyin(annotationFont(t), opts)}}
	out, err := r.Rewrite(baseFont(), 0)
	require.NoError(t, err)

	dst, err := ot.ParseFont(out, 0)
	require.NoError(t, err)
	glyf, err := ot.ParseGlyfFromFont(dst)
	require.NoError(t, err)
	hmtx, err := ot.ParseHmtxFromFont(dst)
	require.NoError(t, err)

	record := glyf.GetGlyphBytes(gidZhong)
	require.GreaterOrEqual(t, len(record), 10)
	xMin := int16(binary.BigEndian.Uint16(record[2:]))
	if xMin >= 0 {
		t.Fatalf("xMin = %d, the column should reach left of the origin", xMin)
	}
	assert.Equal(t, xMin, hmtx.GetLsb(gidZhong))
	assert.Equal(t, uint16(1000), hmtx.GetAdvanceWidth(gidZhong))

	// both engines see the base glyph where it was
	zhong := glyphParts(t, out, gidZhong)
	require.Len(t, zhong, 6)
	assert.Equal(t, rect.Rect{LLx: 100, LLy: 0, URx: 900, URy: 800}, zhong[0])
	assert.Equal(t, glyphBounds(t, outline.GoText, out, gidZhong), glyphBounds(t, outline.XImage, out, gidZhong))
	assert.Equal(t, float64(xMin), glyphBounds(t, outline.GoText, out, gidZhong).LLx)

	// unannotated glyphs keep their bearings
	assert.Equal(t, int16(50), hmtx.GetLsb(gidA))
}

func TestRewriteDrawFailure(t *testing.T) {
	data := replaceGlyphs(t, baseFont(), map[ot.GlyphID][]byte{
		gidZhong: truncatedGlyph(),
		gidA:     truncatedGlyph(),
	})
	r := Rewriter{
		Annotators: []ruby.Annotator{ruby.NewPinyin(annotationFont(t), ruby.DefaultOptions())},
		Engine:     outline.XImage,
	}
	out, stats, err := r.RewriteStats(data, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Degraded)

	dst, err := ot.ParseFont(out, 0)
	require.NoError(t, err)
	glyf, err := ot.ParseGlyfFromFont(dst)
	require.NoError(t, err)

	// the annotation alone is still encoded
	assert.NotEmpty(t, glyf.GetGlyphBytes(gidZhong))
	assert.Len(t, glyphParts(t, out, gidZhong), 5, "zhōng without its base")

	// nothing was drawn and nothing added: an empty glyph
	assert.Empty(t, glyf.GetGlyphBytes(gidA))

	// a glyph that is legitimately empty is not a failure
	assert.Empty(t, glyf.GetGlyphBytes(gidSpace))
	assert.Len(t, glyphParts(t, out, gidYi), 3)
}

func TestRewriteNeverShrinksGlyphs(t *testing.T) {
	positions := []ruby.Position{ruby.Top, ruby.Bottom, ruby.LeftDown, ruby.LeftUp, ruby.RightDown, ruby.RightUp}
	data := baseFont()
	for _, pos := range positions {
		for _, tight := range []bool{false, true} {
			opts := ruby.DefaultOptions()
			opts.Position = pos
			opts.Tight = tight
			r := Rewriter{Annotators: []ruby.Annotator{ruby.NewPinyin(annotationFont(t), opts)}}
			out, err := r.Rewrite(data, 0)
			require.NoError(t, err)

			for _, gid := range []ot.GlyphID{gidYi, gidZhong} {
				before := glyphBounds(t, outline.GoText, data, gid)
				after := glyphBounds(t, outline.GoText, out, gid)
				area := func(r rect.Rect) float64 { return (r.URx - r.LLx) * (r.URy - r.LLy) }
				if area(after) < area(before) {
					t.Errorf("%s tight=%v glyph %d: area %g < %g", pos, tight, gid, area(after), area(before))
				}
				if after.LLx > before.LLx || after.LLy > before.LLy || after.URx < before.URx || after.URy < before.URy {
					t.Errorf("%s tight=%v glyph %d: %v does not contain %v", pos, tight, gid, after, before)
				}
			}
		}
	}
}

func mustTable(t *testing.T, f *ot.Font, tag ot.Tag) []byte {
	t.Helper()
	data, err := f.TableData(tag)
	require.NoError(t, err)
	return data
}
