package ot

import "encoding/binary"

// Hmtx represents the horizontal metrics table. The vertical metrics
// table vmtx has the same layout and is parsed into the same type.
type Hmtx struct {
	// hMetrics contains advanceWidth and lsb for glyphs 0..numberOfHMetrics-1
	hMetrics []LongHorMetric
	// leftSideBearings for glyphs numberOfHMetrics..numGlyphs-1
	// (these glyphs share the last advanceWidth)
	leftSideBearings []int16
	// lastAdvanceWidth is cached for glyphs >= numberOfHMetrics
	lastAdvanceWidth uint16
}

// LongHorMetric contains the advance width and left side bearing for a glyph.
type LongHorMetric struct {
	AdvanceWidth uint16
	Lsb          int16 // Left side bearing
}

// ParseHmtx parses the hmtx table.
// It requires numberOfHMetrics from hhea and numGlyphs from maxp.
func ParseHmtx(data []byte, numberOfHMetrics, numGlyphs int) (*Hmtx, error) {
	if numberOfHMetrics <= 0 || numberOfHMetrics > numGlyphs {
		return nil, ErrInvalidTable
	}

	// The long metrics are mandatory; some fonts truncate the trailing
	// left side bearings, which then read as zero.
	if len(data) < numberOfHMetrics*4 {
		return nil, ErrInvalidTable
	}

	h := &Hmtx{
		hMetrics:         make([]LongHorMetric, numberOfHMetrics),
		leftSideBearings: make([]int16, numGlyphs-numberOfHMetrics),
	}

	off := 0
	for i := 0; i < numberOfHMetrics; i++ {
		h.hMetrics[i].AdvanceWidth = binary.BigEndian.Uint16(data[off:])
		h.hMetrics[i].Lsb = int16(binary.BigEndian.Uint16(data[off+2:]))
		off += 4
	}

	h.lastAdvanceWidth = h.hMetrics[numberOfHMetrics-1].AdvanceWidth

	for i := 0; i < numGlyphs-numberOfHMetrics && off+2 <= len(data); i++ {
		h.leftSideBearings[i] = int16(binary.BigEndian.Uint16(data[off:]))
		off += 2
	}

	return h, nil
}

// GetAdvanceWidth returns the advance width for a glyph.
func (h *Hmtx) GetAdvanceWidth(glyph GlyphID) uint16 {
	if int(glyph) < len(h.hMetrics) {
		return h.hMetrics[glyph].AdvanceWidth
	}
	// Glyphs beyond numberOfHMetrics use the last advance width
	return h.lastAdvanceWidth
}

// GetLsb returns the left side bearing for a glyph.
func (h *Hmtx) GetLsb(glyph GlyphID) int16 {
	if int(glyph) < len(h.hMetrics) {
		return h.hMetrics[glyph].Lsb
	}
	// Check in leftSideBearings array
	idx := int(glyph) - len(h.hMetrics)
	if idx >= 0 && idx < len(h.leftSideBearings) {
		return h.leftSideBearings[idx]
	}
	return 0
}

// GetMetrics returns both advance width and lsb for a glyph.
func (h *Hmtx) GetMetrics(glyph GlyphID) (advanceWidth uint16, lsb int16) {
	return h.GetAdvanceWidth(glyph), h.GetLsb(glyph)
}

// PatchLsb returns a copy of the hmtx table data with the left side
// bearing of every glyph replaced for which lsb reports one. Entries past
// the end of a truncated table are left out.
func PatchLsb(data []byte, numberOfHMetrics, numGlyphs int, lsb func(GlyphID) (int16, bool)) []byte {
	out := append([]byte(nil), data...)
	for gid := 0; gid < numGlyphs; gid++ {
		v, ok := lsb(GlyphID(gid))
		if !ok {
			continue
		}
		off := 4*gid + 2
		if gid >= numberOfHMetrics {
			off = 4*numberOfHMetrics + 2*(gid-numberOfHMetrics)
		}
		if off+2 > len(out) {
			break
		}
		binary.BigEndian.PutUint16(out[off:], uint16(v))
	}
	return out
}

// NumberOfMetrics returns the number of long metric records.
func (h *Hmtx) NumberOfMetrics() int {
	return len(h.hMetrics)
}

// Hhea represents the horizontal header table.
type Hhea struct {
	Version             uint32
	Ascender            int16
	Descender           int16
	LineGap             int16
	AdvanceWidthMax     uint16
	MinLeftSideBearing  int16
	MinRightSideBearing int16
	XMaxExtent          int16
	CaretSlopeRise      int16
	CaretSlopeRun       int16
	CaretOffset         int16
	MetricDataFormat    int16
	NumberOfHMetrics    uint16
}

// ParseHhea parses the hhea (horizontal header) table.
func ParseHhea(data []byte) (*Hhea, error) {
	if len(data) < 36 {
		return nil, ErrInvalidTable
	}

	h := &Hhea{
		Version:             binary.BigEndian.Uint32(data[0:]),
		Ascender:            int16(binary.BigEndian.Uint16(data[4:])),
		Descender:           int16(binary.BigEndian.Uint16(data[6:])),
		LineGap:             int16(binary.BigEndian.Uint16(data[8:])),
		AdvanceWidthMax:     binary.BigEndian.Uint16(data[10:]),
		MinLeftSideBearing:  int16(binary.BigEndian.Uint16(data[12:])),
		MinRightSideBearing: int16(binary.BigEndian.Uint16(data[14:])),
		XMaxExtent:          int16(binary.BigEndian.Uint16(data[16:])),
		CaretSlopeRise:      int16(binary.BigEndian.Uint16(data[18:])),
		CaretSlopeRun:       int16(binary.BigEndian.Uint16(data[20:])),
		CaretOffset:         int16(binary.BigEndian.Uint16(data[22:])),
		// 24-30: reserved (4 int16)
		MetricDataFormat: int16(binary.BigEndian.Uint16(data[32:])),
		NumberOfHMetrics: binary.BigEndian.Uint16(data[34:]),
	}

	return h, nil
}

// ParseHmtxFromFont is a convenience function that parses hmtx from a font,
// automatically reading hhea and maxp for required values.
func ParseHmtxFromFont(font *Font) (*Hmtx, error) {
	return parseMetricsFromFont(font, TagHhea, TagHmtx)
}

// ParseVmtxFromFont parses vmtx using vhea, whose numOfLongVerMetrics sits
// at the same offset as numberOfHMetrics in hhea.
func ParseVmtxFromFont(font *Font) (*Hmtx, error) {
	return parseMetricsFromFont(font, TagVhea, TagVmtx)
}

func parseMetricsFromFont(font *Font, headerTag, metricsTag Tag) (*Hmtx, error) {
	headerData, err := font.TableData(headerTag)
	if err != nil {
		return nil, err
	}
	header, err := ParseHhea(headerData)
	if err != nil {
		return nil, err
	}

	numGlyphs := font.NumGlyphs()
	if numGlyphs == 0 {
		return nil, ErrInvalidTable
	}

	data, err := font.TableData(metricsTag)
	if err != nil {
		return nil, err
	}

	numLong := int(header.NumberOfHMetrics)
	if numLong > numGlyphs {
		numLong = numGlyphs
	}
	return ParseHmtx(data, numLong, numGlyphs)
}
