package subset

import (
	"fmt"
	"maps"
	"slices"

	"github.com/boxesandglue/rubyfont/ot"
)

// Cmap maps characters to glyphs. outline.Face satisfies it.
type Cmap interface {
	Lookup(r rune) (ot.GlyphID, bool)
}

// Plan holds the computed glyph mapping and metadata for subsetting.
type Plan struct {
	source *ot.Font
	input  *Input
	cmap   Cmap

	// glyphMap maps old glyph IDs to new glyph IDs.
	glyphMap map[ot.GlyphID]ot.GlyphID

	// reverseMap maps new glyph IDs to old glyph IDs.
	reverseMap map[ot.GlyphID]ot.GlyphID

	// sourceMap and unicodeMap map codepoints to old and new glyph IDs.
	sourceMap  map[rune]ot.GlyphID
	unicodeMap map[rune]ot.GlyphID

	// glyphSet contains all old glyph IDs to retain.
	glyphSet map[ot.GlyphID]bool

	// numOutputGlyphs is the number of glyphs in the output font.
	numOutputGlyphs int

	// Parsed tables (cached for subsetting)
	hmtx *ot.Hmtx
	vmtx *ot.Hmtx
	glyf *ot.Glyf
}

// CreatePlan creates a subset plan from a font and input configuration.
// cmap resolves the requested codepoints; it may be nil when only explicit
// glyphs are requested.
func CreatePlan(font *ot.Font, cmap Cmap, input *Input) (*Plan, error) {
	p := &Plan{
		source:     font,
		input:      input,
		cmap:       cmap,
		glyphMap:   make(map[ot.GlyphID]ot.GlyphID),
		reverseMap: make(map[ot.GlyphID]ot.GlyphID),
		sourceMap:  make(map[rune]ot.GlyphID),
		unicodeMap: make(map[rune]ot.GlyphID),
		glyphSet:   make(map[ot.GlyphID]bool),
	}

	if err := p.parseTables(); err != nil {
		return nil, err
	}
	if err := p.computeGlyphClosure(); err != nil {
		return nil, err
	}
	p.createGlyphMapping()

	return p, nil
}

// parseTables parses the font tables needed for subsetting.
func (p *Plan) parseTables() error {
	for _, tag := range []ot.Tag{ot.TagHead, ot.TagMaxp, ot.TagHhea, ot.TagHmtx, ot.TagGlyf, ot.TagLoca} {
		if !p.source.HasTable(tag) {
			return fmt.Errorf("%w: %s", ErrMissingTable, tag)
		}
	}

	var err error
	if p.hmtx, err = ot.ParseHmtxFromFont(p.source); err != nil {
		return fmt.Errorf("subset: hmtx: %w", err)
	}
	if p.glyf, err = ot.ParseGlyfFromFont(p.source); err != nil {
		return fmt.Errorf("subset: glyf: %w", err)
	}

	// vmtx is optional; a broken one is dropped with vhea
	if p.source.HasTable(ot.TagVhea) && p.source.HasTable(ot.TagVmtx) {
		p.vmtx, _ = ot.ParseVmtxFromFont(p.source)
	}
	return nil
}

// computeGlyphClosure collects .notdef, the glyphs of the requested
// characters, the explicit glyphs and all composite components.
func (p *Plan) computeGlyphClosure() error {
	p.glyphSet[0] = true

	if p.cmap != nil {
		for cp := range p.input.Runes() {
			if _, done := p.sourceMap[cp]; done {
				continue
			}
			if gid, ok := p.cmap.Lookup(cp); ok && gid != 0 {
				p.sourceMap[cp] = gid
				p.glyphSet[gid] = true
			}
		}
	}

	numGlyphs := p.source.NumGlyphs()
	for gid := range p.input.glyphs {
		if int(gid) >= numGlyphs {
			return fmt.Errorf("%w: glyph %d of %d", ErrInvalidGlyph, gid, numGlyphs)
		}
		p.glyphSet[gid] = true
	}

	// components may be composites themselves
	queue := make([]ot.GlyphID, 0, len(p.glyphSet))
	for gid := range p.glyphSet {
		queue = append(queue, gid)
	}
	for len(queue) > 0 {
		gid := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for _, comp := range p.glyf.Components(gid) {
			if !p.glyphSet[comp] {
				p.glyphSet[comp] = true
				queue = append(queue, comp)
			}
		}
	}
	return nil
}

// createGlyphMapping assigns output ids, either the source ids or dense
// ids in source order, and maps the requested characters to them.
func (p *Plan) createGlyphMapping() {
	gids := slices.Sorted(maps.Keys(p.glyphSet))
	retain := p.input.Flags&FlagRetainGIDs != 0
	for i, oldGID := range gids {
		newGID := ot.GlyphID(i)
		if retain {
			newGID = oldGID
		}
		p.glyphMap[oldGID] = newGID
		p.reverseMap[newGID] = oldGID
	}
	if retain {
		p.numOutputGlyphs = int(gids[len(gids)-1]) + 1
	} else {
		p.numOutputGlyphs = len(gids)
	}

	for cp, oldGID := range p.sourceMap {
		p.unicodeMap[cp] = p.glyphMap[oldGID]
	}
}

// NumOutputGlyphs returns the number of glyphs in the output font.
func (p *Plan) NumOutputGlyphs() int {
	return p.numOutputGlyphs
}

// MapGlyph maps an old glyph ID to a new glyph ID.
// Returns (0, false) if the glyph is not in the subset.
func (p *Plan) MapGlyph(oldGID ot.GlyphID) (ot.GlyphID, bool) {
	newGID, ok := p.glyphMap[oldGID]
	return newGID, ok
}

// OldGlyph returns the old glyph ID for a new glyph ID.
func (p *Plan) OldGlyph(newGID ot.GlyphID) (ot.GlyphID, bool) {
	oldGID, ok := p.reverseMap[newGID]
	return oldGID, ok
}

// GlyphSet returns the set of old glyph IDs to retain.
func (p *Plan) GlyphSet() map[ot.GlyphID]bool {
	return p.glyphSet
}

// UnicodeMap returns the codepoints of the output font and their new
// glyph IDs.
func (p *Plan) UnicodeMap() map[rune]ot.GlyphID {
	return p.unicodeMap
}
