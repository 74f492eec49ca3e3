package subset

import (
	"encoding/binary"
	"fmt"

	"github.com/boxesandglue/rubyfont"
	"github.com/boxesandglue/rubyfont/ot"
)

// Layout tables address glyphs by id and are only valid when ids are kept.
var layoutTables = []ot.Tag{
	ot.TagGDEF,
	ot.TagGSUB,
	ot.TagGPOS,
	ot.MakeTag('B', 'A', 'S', 'E'),
	ot.MakeTag('J', 'S', 'T', 'F'),
	ot.MakeTag('M', 'A', 'T', 'H'),
	ot.MakeTag('k', 'e', 'r', 'n'),
	ot.TagVORG,
}

// Per-glyph device tables that go stale when glyphs are removed.
var droppedTables = map[ot.Tag]bool{
	ot.TagHdmx: true,
	ot.TagLTSH: true,
	ot.TagVDMX: true,
}

// handled lists the tables Execute rebuilds or copies itself.
var handled = map[ot.Tag]bool{
	ot.TagHead: true, ot.TagMaxp: true, ot.TagHhea: true, ot.TagHmtx: true,
	ot.TagVhea: true, ot.TagVmtx: true, ot.TagGlyf: true, ot.TagLoca: true,
	ot.TagCmap: true, ot.TagPost: true, ot.TagOS2: true, ot.TagName: true,
	ot.TagGasp: true, ot.TagCvt: true, ot.TagFpgm: true, ot.TagPrep: true,
	ot.TagCFF: true, ot.TagCFF2: true,
}

const (
	postVersion3  = 0x00030000
	postHeaderLen = 32
	hheaMetrics   = 34 // numberOfHMetrics, numOfLongVerMetrics in vhea
)

// Execute performs the subsetting operation and returns the new font data.
func (p *Plan) Execute() ([]byte, error) {
	builder := ot.NewFontBuilder()
	builder.ChecksumAdjustment = false
	builder.SetVersion(p.source.Version())

	// glyf first: head and maxp depend on it
	gb, err := p.subsetGlyf()
	if err != nil {
		return nil, err
	}
	glyf, loca, locaFormat := gb.Build()
	builder.AddTable(ot.TagGlyf, glyf)
	builder.AddTable(ot.TagLoca, loca)

	if err := p.subsetHead(builder, locaFormat); err != nil {
		return nil, err
	}
	if err := p.subsetMaxp(builder, gb); err != nil {
		return nil, err
	}
	if err := p.subsetMetrics(builder, ot.TagHhea, ot.TagHmtx, p.hmtx); err != nil {
		return nil, err
	}
	if p.vmtx != nil {
		if err := p.subsetMetrics(builder, ot.TagVhea, ot.TagVmtx, p.vmtx); err != nil {
			return nil, err
		}
	}

	if len(p.unicodeMap) > 0 && !p.input.ShouldDropTable(ot.TagCmap) {
		builder.AddTable(ot.TagCmap, ot.BuildCmap(p.unicodeMap))
	}
	p.subsetPost(builder)

	// Copy or subset optional tables
	p.handleOptionalTables(builder)

	out, err := builder.Build()
	if err != nil {
		return nil, err
	}
	rubyfont.Logger().Info("subset: font done",
		"glyphs", p.numOutputGlyphs, "codepoints", len(p.unicodeMap), "bytes", len(out))
	return out, nil
}

// subsetGlyf copies the retained glyphs in output order.
func (p *Plan) subsetGlyf() (*ot.GlyfBuilder, error) {
	if p.glyf == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingTable, ot.TagGlyf)
	}

	gb := ot.NewGlyfBuilder(p.numOutputGlyphs)
	for newGID := 0; newGID < p.numOutputGlyphs; newGID++ {
		oldGID, ok := p.reverseMap[ot.GlyphID(newGID)]
		if !ok {
			// Empty glyph slot (only happens with FlagRetainGIDs)
			gb.AddEmpty()
			continue
		}
		data := p.glyf.GetGlyphBytes(oldGID)
		if len(data) == 0 {
			gb.AddEmpty()
			continue
		}
		gb.AddRaw(ot.RemapComposite(data, p.glyphMap))
	}
	return gb, nil
}

// subsetHead subsets the head table.
func (p *Plan) subsetHead(builder *ot.FontBuilder, locaFormat int16) error {
	data, err := p.source.TableData(ot.TagHead)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMissingTable, ot.TagHead)
	}
	head, err := ot.PatchHead(data, locaFormat)
	if err != nil {
		return fmt.Errorf("subset: head: %w", err)
	}
	builder.AddTable(ot.TagHead, head)
	return nil
}

// subsetMaxp subsets the maxp table.
func (p *Plan) subsetMaxp(builder *ot.FontBuilder, gb *ot.GlyfBuilder) error {
	data, err := p.source.TableData(ot.TagMaxp)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMissingTable, ot.TagMaxp)
	}
	maxp, err := ot.PatchMaxp(data, gb.NumGlyphs(), gb.MaxPoints(), gb.MaxContours())
	if err != nil {
		return fmt.Errorf("subset: maxp: %w", err)
	}
	builder.AddTable(ot.TagMaxp, maxp)
	return nil
}

// subsetMetrics writes a header with one long metric per output glyph and
// the matching metrics table. hhea/hmtx and vhea/vmtx share the layout.
func (p *Plan) subsetMetrics(builder *ot.FontBuilder, headerTag, metricsTag ot.Tag, mtx *ot.Hmtx) error {
	data, err := p.source.TableData(headerTag)
	if err != nil || len(data) < hheaMetrics+2 {
		return fmt.Errorf("%w: %s", ErrMissingTable, headerTag)
	}

	header := make([]byte, len(data))
	copy(header, data)
	binary.BigEndian.PutUint16(header[hheaMetrics:], uint16(p.numOutputGlyphs))

	metrics := make([]byte, p.numOutputGlyphs*4)
	for newGID := 0; newGID < p.numOutputGlyphs; newGID++ {
		oldGID, ok := p.reverseMap[ot.GlyphID(newGID)]
		if !ok {
			continue
		}
		advance, lsb := mtx.GetMetrics(oldGID)
		off := newGID * 4
		binary.BigEndian.PutUint16(metrics[off:], advance)
		binary.BigEndian.PutUint16(metrics[off+2:], uint16(lsb))
	}

	builder.AddTable(headerTag, header)
	builder.AddTable(metricsTag, metrics)
	return nil
}

// subsetPost keeps the post header only. Version 3.0 carries no glyph
// names, which would otherwise need renumbering.
func (p *Plan) subsetPost(builder *ot.FontBuilder) {
	if p.input.ShouldDropTable(ot.TagPost) {
		return
	}
	data, err := p.source.TableData(ot.TagPost)
	if err != nil || len(data) < postHeaderLen {
		return
	}
	post := make([]byte, postHeaderLen)
	copy(post, data)
	binary.BigEndian.PutUint32(post, postVersion3)
	builder.AddTable(ot.TagPost, post)
}

// handleOptionalTables copies or drops optional tables.
func (p *Plan) handleOptionalTables(builder *ot.FontBuilder) {
	copyTable := func(tag ot.Tag) {
		if p.input.ShouldDropTable(tag) || builder.HasTable(tag) {
			return
		}
		if data, err := p.source.TableData(tag); err == nil {
			builder.AddTable(tag, data)
		}
	}

	// Hinting tables - copied by default unless FlagNoHinting is set.
	if p.input.Flags&FlagNoHinting == 0 {
		for _, tag := range []ot.Tag{ot.TagCvt, ot.TagFpgm, ot.TagPrep} {
			copyTable(tag)
		}
	}

	for _, tag := range []ot.Tag{ot.TagOS2, ot.TagName, ot.TagGasp} {
		copyTable(tag)
	}

	retain := p.input.Flags&FlagRetainGIDs != 0
	layout := make(map[ot.Tag]bool, len(layoutTables))
	for _, tag := range layoutTables {
		layout[tag] = true
		if retain {
			copyTable(tag)
		}
	}

	// Everything else only when asked for
	for _, rec := range p.source.Tables() {
		tag := rec.Tag
		if handled[tag] || droppedTables[tag] || layout[tag] {
			continue
		}
		if p.input.ShouldPassThrough(tag) || p.input.Flags&FlagPassUnrecognized != 0 {
			copyTable(tag)
		} else {
			rubyfont.Logger().Debug("subset: dropping table", "tag", tag.String())
		}
	}
}

// Subset is a convenience function that subsets a font for given codepoints.
func Subset(font *ot.Font, cmap Cmap, codepoints []rune) ([]byte, error) {
	input := NewInput()
	input.AddUnicodes(codepoints...)

	plan, err := CreatePlan(font, cmap, input)
	if err != nil {
		return nil, err
	}

	return plan.Execute()
}

// SubsetString is a convenience function that subsets a font for a string.
func SubsetString(font *ot.Font, cmap Cmap, text string) ([]byte, error) {
	input := NewInput()
	input.AddString(text)

	plan, err := CreatePlan(font, cmap, input)
	if err != nil {
		return nil, err
	}

	return plan.Execute()
}
