// Package subset reduces a TrueType font to the glyphs needed for a set of
// characters.
package subset

import (
	"iter"

	"github.com/boxesandglue/rubyfont/ot"
)

// Flags controls various subsetting options.
type Flags uint32

const (
	// FlagNoHinting removes hinting instructions.
	FlagNoHinting Flags = 1 << iota

	// FlagRetainGIDs keeps original glyph IDs (pads with empty glyphs).
	// Tables that refer to glyph ids, such as GSUB and GPOS, are then
	// kept as they are.
	FlagRetainGIDs

	// FlagPassUnrecognized keeps unrecognized tables.
	FlagPassUnrecognized
)

type tablePolicy uint8

const (
	policyDefault tablePolicy = iota
	policyDrop
	policyPass
)

type runeRange struct{ lo, hi rune }

// Input selects the characters, glyphs and tables of a subset. Character
// ranges are kept as ranges, so asking for a whole Unicode block is cheap.
type Input struct {
	Flags Flags

	ranges []runeRange
	glyphs map[ot.GlyphID]bool
	tables map[ot.Tag]tablePolicy
}

// NewInput returns an empty input.
func NewInput() *Input {
	return &Input{
		glyphs: make(map[ot.GlyphID]bool),
		tables: make(map[ot.Tag]tablePolicy),
	}
}

// AddUnicode requests a single character.
func (i *Input) AddUnicode(cp rune) {
	i.AddUnicodeRange(cp, cp)
}

// AddUnicodes requests several characters.
func (i *Input) AddUnicodes(cps ...rune) {
	for _, cp := range cps {
		i.AddUnicode(cp)
	}
}

// AddUnicodeRange requests the characters start through end. An empty
// range is ignored.
func (i *Input) AddUnicodeRange(start, end rune) {
	if start > end {
		return
	}
	i.ranges = append(i.ranges, runeRange{start, end})
}

// AddString requests every character of s.
func (i *Input) AddString(s string) {
	for _, cp := range s {
		i.AddUnicode(cp)
	}
}

// AddGlyph requests a glyph id regardless of the cmap.
func (i *Input) AddGlyph(gid ot.GlyphID) {
	i.glyphs[gid] = true
}

// AddGlyphs requests several glyph ids.
func (i *Input) AddGlyphs(gids ...ot.GlyphID) {
	for _, gid := range gids {
		i.AddGlyph(gid)
	}
}

// DropTable excludes tag from the output. It wins over PassThroughTable.
func (i *Input) DropTable(tag ot.Tag) {
	i.tables[tag] = policyDrop
}

// PassThroughTable copies an otherwise unrecognized table unchanged.
func (i *Input) PassThroughTable(tag ot.Tag) {
	if i.tables[tag] != policyDrop {
		i.tables[tag] = policyPass
	}
}

// Runes yields every requested character. A character in several ranges
// is yielded more than once.
func (i *Input) Runes() iter.Seq[rune] {
	return func(yield func(rune) bool) {
		for _, rg := range i.ranges {
			for cp := rg.lo; cp <= rg.hi; cp++ {
				if !yield(cp) {
					return
				}
			}
		}
	}
}

// ShouldDropTable reports whether tag is excluded.
func (i *Input) ShouldDropTable(tag ot.Tag) bool {
	return i.tables[tag] == policyDrop
}

// ShouldPassThrough reports whether tag is copied unchanged.
func (i *Input) ShouldPassThrough(tag ot.Tag) bool {
	return i.tables[tag] == policyPass
}
