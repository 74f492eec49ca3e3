package ot

import (
	"encoding/binary"
	"math"
)

// Glyf represents the parsed glyf table (glyph data).
type Glyf struct {
	data []byte
	loca *Loca
}

// Loca represents the parsed loca table (index to location).
type Loca struct {
	offsets   []uint32 // Glyph offsets into glyf table
	numGlyphs int
	isShort   bool // true for short format (16-bit offsets)
}

// ParseLoca parses the loca table.
// indexToLocFormat: 0 = short (16-bit), 1 = long (32-bit)
func ParseLoca(data []byte, numGlyphs int, indexToLocFormat int16) (*Loca, error) {
	l := &Loca{
		numGlyphs: numGlyphs,
		isShort:   indexToLocFormat == 0,
	}

	// loca has numGlyphs+1 entries
	numEntries := numGlyphs + 1

	if l.isShort {
		// Short format: 16-bit offsets (actual offset = value * 2)
		if len(data) < numEntries*2 {
			return nil, ErrInvalidOffset
		}
		l.offsets = make([]uint32, numEntries)
		for i := 0; i < numEntries; i++ {
			l.offsets[i] = uint32(binary.BigEndian.Uint16(data[i*2:])) * 2
		}
	} else {
		if len(data) < numEntries*4 {
			return nil, ErrInvalidOffset
		}
		l.offsets = make([]uint32, numEntries)
		for i := 0; i < numEntries; i++ {
			l.offsets[i] = binary.BigEndian.Uint32(data[i*4:])
		}
	}

	return l, nil
}

// GetOffset returns the offset and length for a glyph.
func (l *Loca) GetOffset(gid GlyphID) (offset, length uint32, ok bool) {
	idx := int(gid)
	if idx >= l.numGlyphs {
		return 0, 0, false
	}
	start := l.offsets[idx]
	end := l.offsets[idx+1]
	if end < start {
		return 0, 0, false
	}
	return start, end - start, true
}

// IsShort returns true if using short (16-bit) format.
func (l *Loca) IsShort() bool {
	return l.isShort
}

// GetGlyphBytes returns the raw bytes for a glyph, or nil for an empty or
// out of range glyph.
func (g *Glyf) GetGlyphBytes(gid GlyphID) []byte {
	offset, length, ok := g.loca.GetOffset(gid)
	if !ok || length == 0 {
		return nil
	}
	if int(offset)+int(length) > len(g.data) {
		return nil
	}
	return g.data[offset : offset+length]
}

// composite glyph flags
const (
	argAreWords    = 0x0001
	weHaveAScale   = 0x0008
	moreComponents = 0x0020
	weHaveXYScale  = 0x0040
	weHave2x2      = 0x0080
)

// walkComponents calls fn with the offset of every component glyph index
// of a composite glyph. Simple and malformed glyphs yield nothing.
func walkComponents(data []byte, fn func(off int)) {
	if len(data) < 10 || int16(binary.BigEndian.Uint16(data)) >= 0 {
		return
	}
	off := 10
	for off+4 <= len(data) {
		flags := binary.BigEndian.Uint16(data[off:])
		fn(off + 2)
		off += 4
		if flags&argAreWords != 0 {
			off += 4
		} else {
			off += 2
		}
		switch {
		case flags&weHaveAScale != 0:
			off += 2
		case flags&weHaveXYScale != 0:
			off += 4
		case flags&weHave2x2 != 0:
			off += 8
		}
		if flags&moreComponents == 0 {
			return
		}
	}
}

// Components returns the glyphs a composite glyph refers to.
func (g *Glyf) Components(gid GlyphID) []GlyphID {
	data := g.GetGlyphBytes(gid)
	var out []GlyphID
	walkComponents(data, func(off int) {
		out = append(out, binary.BigEndian.Uint16(data[off:]))
	})
	return out
}

// RemapComposite returns data with the component glyph ids of a composite
// glyph replaced through glyphMap. Other glyphs are returned unchanged.
func RemapComposite(data []byte, glyphMap map[GlyphID]GlyphID) []byte {
	var out []byte
	walkComponents(data, func(off int) {
		if out == nil {
			out = append([]byte(nil), data...)
		}
		if gid, ok := glyphMap[binary.BigEndian.Uint16(data[off:])]; ok {
			binary.BigEndian.PutUint16(out[off:], gid)
		}
	})
	if out == nil {
		return data
	}
	return out
}

// BuildLoca builds a loca table from glyph offsets.
// If useShort is true, uses 16-bit format (offsets must be even and < 131072).
func BuildLoca(offsets []uint32, useShort bool) []byte {
	if useShort {
		data := make([]byte, len(offsets)*2)
		for i, off := range offsets {
			binary.BigEndian.PutUint16(data[i*2:], uint16(off/2))
		}
		return data
	}

	data := make([]byte, len(offsets)*4)
	for i, off := range offsets {
		binary.BigEndian.PutUint32(data[i*4:], off)
	}
	return data
}

// ParseGlyfFromFont parses both glyf and loca tables from a font.
func ParseGlyfFromFont(font *Font) (*Glyf, error) {
	numGlyphs := font.NumGlyphs()

	headData, err := font.TableData(TagHead)
	if err != nil {
		return nil, err
	}
	head, err := ParseHead(headData)
	if err != nil {
		return nil, err
	}

	locaData, err := font.TableData(TagLoca)
	if err != nil {
		return nil, err
	}
	loca, err := ParseLoca(locaData, numGlyphs, head.IndexToLocFormat)
	if err != nil {
		return nil, err
	}

	glyfData, err := font.TableData(TagGlyf)
	if err != nil {
		return nil, err
	}

	return &Glyf{data: glyfData, loca: loca}, nil
}

// Point is one point of a simple glyph contour in font units.
type Point struct {
	X, Y    int16
	OnCurve bool
}

// Contour is one closed outline of a simple glyph. The closing segment
// back to the first point is implicit.
type Contour []Point

// simple glyph flags
const (
	flagOnCurve      = 0x01
	flagXShort       = 0x02
	flagYShort       = 0x04
	flagRepeat       = 0x08
	flagXSameOrPlus  = 0x10
	flagYSameOrPlus  = 0x20
	maxGlyphContours = math.MaxInt16
)

// EncodeSimpleGlyph encodes contours as a simple glyph without
// instructions. Empty contours are skipped; a glyph without points
// encodes to nil.
func EncodeSimpleGlyph(contours []Contour) ([]byte, error) {
	var numPoints, numContours int
	for _, c := range contours {
		if len(c) > 0 {
			numPoints += len(c)
			numContours++
		}
	}
	if numPoints == 0 {
		return nil, nil
	}
	if numContours > maxGlyphContours || numPoints > math.MaxUint16 {
		return nil, ErrGlyphOverflow
	}

	xMin, yMin := int16(math.MaxInt16), int16(math.MaxInt16)
	xMax, yMax := int16(math.MinInt16), int16(math.MinInt16)
	for _, c := range contours {
		for _, pt := range c {
			xMin, xMax = min(xMin, pt.X), max(xMax, pt.X)
			yMin, yMax = min(yMin, pt.Y), max(yMax, pt.Y)
		}
	}

	out := make([]byte, 10, 10+numContours*2+2+numPoints*5)
	binary.BigEndian.PutUint16(out[0:], uint16(numContours))
	binary.BigEndian.PutUint16(out[2:], uint16(xMin))
	binary.BigEndian.PutUint16(out[4:], uint16(yMin))
	binary.BigEndian.PutUint16(out[6:], uint16(xMax))
	binary.BigEndian.PutUint16(out[8:], uint16(yMax))

	end := -1
	for _, c := range contours {
		if len(c) == 0 {
			continue
		}
		end += len(c)
		out = binary.BigEndian.AppendUint16(out, uint16(end))
	}
	out = binary.BigEndian.AppendUint16(out, 0) // instructionLength

	flags := make([]byte, 0, numPoints)
	var xs, ys []byte
	var prevX, prevY int32
	for _, c := range contours {
		for _, pt := range c {
			dx := int32(pt.X) - prevX
			dy := int32(pt.Y) - prevY
			prevX, prevY = int32(pt.X), int32(pt.Y)
			if dx < math.MinInt16 || dx > math.MaxInt16 || dy < math.MinInt16 || dy > math.MaxInt16 {
				return nil, ErrGlyphOverflow
			}

			var f byte
			if pt.OnCurve {
				f |= flagOnCurve
			}
			f, xs = appendCoord(f, xs, dx, flagXShort, flagXSameOrPlus)
			f, ys = appendCoord(f, ys, dy, flagYShort, flagYSameOrPlus)
			flags = append(flags, f)
		}
	}

	out = appendFlags(out, flags)
	out = append(out, xs...)
	out = append(out, ys...)
	return out, nil
}

func appendCoord(f byte, buf []byte, d int32, short, sameOrPlus byte) (byte, []byte) {
	switch {
	case d == 0:
		return f | sameOrPlus, buf
	case d > -256 && d < 256:
		f |= short
		if d > 0 {
			f |= sameOrPlus
		} else {
			d = -d
		}
		return f, append(buf, byte(d))
	default:
		return f, binary.BigEndian.AppendUint16(buf, uint16(int16(d)))
	}
}

// appendFlags writes flags using the repeat flag for runs.
func appendFlags(out, flags []byte) []byte {
	for i := 0; i < len(flags); {
		f := flags[i]
		run := 1
		for i+run < len(flags) && flags[i+run] == f && run < 256 {
			run++
		}
		if run > 1 {
			out = append(out, f|flagRepeat, byte(run-1))
		} else {
			out = append(out, f)
		}
		i += run
	}
	return out
}

// GlyfBuilder accumulates glyphs in glyph id order and produces glyf and
// loca tables.
type GlyfBuilder struct {
	data        []byte
	offsets     []uint32
	maxPoints   int
	maxContours int
}

// NewGlyfBuilder creates a builder sized for numGlyphs glyphs.
func NewGlyfBuilder(numGlyphs int) *GlyfBuilder {
	return &GlyfBuilder{offsets: make([]uint32, 0, numGlyphs+1)}
}

// AddEmpty appends a glyph without outline.
func (b *GlyfBuilder) AddEmpty() {
	b.offsets = append(b.offsets, uint32(len(b.data)))
}

// AddRaw appends already encoded glyph data.
func (b *GlyfBuilder) AddRaw(data []byte) {
	b.offsets = append(b.offsets, uint32(len(b.data)))
	b.data = append(b.data, data...)
	// loca short offsets address 2-byte units
	if len(b.data)%2 != 0 {
		b.data = append(b.data, 0)
	}
}

// AddSimple encodes contours and appends them as the next glyph. On error
// nothing is appended.
func (b *GlyfBuilder) AddSimple(contours []Contour) error {
	data, err := EncodeSimpleGlyph(contours)
	if err != nil {
		return err
	}
	points, n := 0, 0
	for _, c := range contours {
		if len(c) > 0 {
			points += len(c)
			n++
		}
	}
	b.maxPoints = max(b.maxPoints, points)
	b.maxContours = max(b.maxContours, n)
	b.AddRaw(data)
	return nil
}

// NumGlyphs returns the number of glyphs added so far.
func (b *GlyfBuilder) NumGlyphs() int {
	return len(b.offsets)
}

// XMin returns the xMin field of the header of glyph gid, or false when
// the glyph has no outline.
func (b *GlyfBuilder) XMin(gid GlyphID) (int16, bool) {
	if int(gid) >= len(b.offsets) {
		return 0, false
	}
	start := b.offsets[gid]
	end := uint32(len(b.data))
	if int(gid)+1 < len(b.offsets) {
		end = b.offsets[gid+1]
	}
	if end < start+10 {
		return 0, false
	}
	return int16(binary.BigEndian.Uint16(b.data[start+2:])), true
}

// MaxPoints returns the largest point count of the simple glyphs added.
func (b *GlyfBuilder) MaxPoints() int {
	return b.maxPoints
}

// MaxContours returns the largest contour count of the simple glyphs added.
func (b *GlyfBuilder) MaxContours() int {
	return b.maxContours
}

// Build returns the glyf and loca tables and the indexToLocFormat value
// for head. The short loca format is used whenever the data fits.
func (b *GlyfBuilder) Build() (glyf, loca []byte, indexToLocFormat int16) {
	offsets := append(b.offsets[:len(b.offsets):len(b.offsets)], uint32(len(b.data)))
	if len(b.data) <= 0x1FFFE {
		return b.data, BuildLoca(offsets, true), 0
	}
	return b.data, BuildLoca(offsets, false), 1
}
