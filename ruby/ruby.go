// Package ruby places phonetic annotations (pinyin, romaji) around base
// glyphs by appending scaled annotation-font outlines to the base glyph's
// path.
//
// An Annotator is configured once and shared. Everything that changes while
// a font is processed lives in a State, which the caller creates per font
// with NewState and passes to every Annotate call for that font.
package ruby

import (
	"errors"
	"fmt"

	"seehuhn.de/go/geom/path"

	"github.com/boxesandglue/rubyfont/outline"
)

// Sentinel errors for the ruby package.
var (
	// ErrNoState is returned when Annotate is called without a State.
	ErrNoState = errors.New("ruby: nil state")

	// ErrNoPath is returned when Annotate is called without a base path.
	ErrNoPath = errors.New("ruby: nil base path")

	// ErrUnknownPosition is returned by ParsePosition.
	ErrUnknownPosition = errors.New("ruby: unknown position")

	// ErrUnknownKind is returned by New for an annotator name it does not
	// know.
	ErrUnknownKind = errors.New("ruby: unknown annotation kind")
)

// Annotator appends annotation geometry for one kind of phonetic text.
type Annotator interface {
	// Name identifies the annotator, e.g. "pinyin".
	Name() string

	// Ranges returns the base characters the annotator may annotate.
	Ranges() []Range

	// NewState returns fresh per-font state.
	NewState() *State

	// Annotate appends the annotation for ch to base. advance is the base
	// glyph's advance and upm the base font's units per em. A character
	// without annotation is a silent no-op; an error is returned only for
	// misuse.
	Annotate(st *State, ch rune, base *path.Data, advance, upm float64) error
}

// New returns the annotator registered under kind ("pinyin" or "romaji").
func New(kind string, font outline.Font, opts Options) (Annotator, error) {
	switch kind {
	case "pinyin":
		return NewPinyin(font, opts), nil
	case "romaji":
		return NewRomaji(font, opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Position is where an annotation goes relative to its base glyph.
type Position int

const (
	// Top centres the annotation above the glyph.
	Top Position = iota
	// Bottom centres the annotation below the glyph.
	Bottom
	// LeftDown stacks the annotation left of the glyph, reading downwards.
	LeftDown
	// LeftUp stacks the annotation left of the glyph, reading upwards.
	LeftUp
	// RightDown stacks the annotation right of the glyph, reading downwards.
	RightDown
	// RightUp stacks the annotation right of the glyph, reading upwards.
	RightUp
)

var positionNames = [...]string{
	Top:       "top",
	Bottom:    "bottom",
	LeftDown:  "left-down",
	LeftUp:    "left-up",
	RightDown: "right-down",
	RightUp:   "right-up",
}

// String returns the name accepted by ParsePosition.
func (p Position) String() string {
	if p >= 0 && int(p) < len(positionNames) {
		return positionNames[p]
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

// ParsePosition returns the position with the given name.
func ParsePosition(s string) (Position, error) {
	for i, name := range positionNames {
		if s == name {
			return Position(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPosition, s)
}

// Side reports whether p stacks the annotation in a column beside the
// glyph.
func (p Position) Side() bool {
	return p >= LeftDown && p <= RightUp
}

func (p Position) left() bool { return p == LeftDown || p == LeftUp }
func (p Position) down() bool { return p == LeftDown || p == RightDown }

// Range is an inclusive range of Unicode code points.
type Range struct {
	Lo, Hi rune
}

// Contains reports whether r lies in the range.
func (rg Range) Contains(r rune) bool {
	return r >= rg.Lo && r <= rg.Hi
}

// Annotatable ranges.
var (
	CJK      = Range{0x4E00, 0x9FFF}
	Hiragana = Range{0x3040, 0x309F}
	Katakana = Range{0x30A0, 0x30FF}
)

// InRanges reports whether r lies in any of the ranges.
func InRanges(r rune, ranges []Range) bool {
	for _, rg := range ranges {
		if rg.Contains(r) {
			return true
		}
	}
	return false
}

// Options configure the placement shared by all annotators.
type Options struct {
	// Scale is the annotation size as a fraction of the base font's em.
	Scale float64

	// Gutter is the gap between glyph and annotation, in em.
	Gutter float64

	// BaselineOffset moves the consistent baseline further away from the
	// glyph, in em. It is ignored in tight mode.
	BaselineOffset float64

	Position Position

	// Tight places every annotation against its own glyph instead of a
	// baseline shared by all glyphs of a font.
	Tight bool

	// Delimiter splits the annotation text into parts separated by
	// Spacing. Empty means a single part.
	Delimiter string

	// Spacing is the gap between parts, in em.
	Spacing float64
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{Scale: 0.4, Position: Top}
}
