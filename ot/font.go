package ot

import "encoding/binary"

// Font is one sfnt font, either a standalone file or a member of a
// collection. Table data is borrowed from the byte slice it was parsed from.
type Font struct {
	data    []byte
	version uint32
	index   int
	records []TableRecord
	byTag   map[Tag]int
}

// TableRecord is one entry of a table directory.
type TableRecord struct {
	Tag      Tag
	Checksum uint32
	Offset   uint32
	Length   uint32
}

// GlyphID represents a glyph index.
type GlyphID = uint16

// IsCollection reports whether data starts with a TrueType collection header.
func IsCollection(data []byte) bool {
	return len(data) >= 12 && binary.BigEndian.Uint32(data) == collectionTag
}

// ParseFont parses an OpenType font from data.
// For TrueType Collections (.ttc), use index to select a font.
func ParseFont(data []byte, index int) (*Font, error) {
	if len(data) < 12 {
		return nil, ErrInvalidFont
	}

	if IsCollection(data) {
		offsets, err := collectionOffsets(data)
		if err != nil {
			return nil, err
		}
		if index < 0 || index >= len(offsets) {
			return nil, ErrInvalidFont
		}
		return parseOffsetTable(data, int(offsets[index]), index)
	}

	// Single font
	if index != 0 {
		return nil, ErrInvalidFont
	}

	return parseOffsetTable(data, 0, -1)
}

// ParseCollection parses every font of data. A standalone font yields a
// slice of length one.
func ParseCollection(data []byte) ([]*Font, error) {
	if !IsCollection(data) {
		f, err := ParseFont(data, 0)
		if err != nil {
			return nil, err
		}
		return []*Font{f}, nil
	}

	offsets, err := collectionOffsets(data)
	if err != nil {
		return nil, err
	}
	fonts := make([]*Font, len(offsets))
	for i, off := range offsets {
		if fonts[i], err = parseOffsetTable(data, int(off), i); err != nil {
			return nil, err
		}
	}
	return fonts, nil
}

func collectionOffsets(data []byte) ([]uint32, error) {
	p := NewParser(data)
	p.Skip(4) // 'ttcf'

	if _, err := p.U32(); err != nil { // version
		return nil, ErrInvalidFont
	}

	numFonts, err := p.U32()
	if err != nil || numFonts == 0 {
		return nil, ErrInvalidFont
	}
	if int(numFonts) > (len(data)-12)/4 {
		return nil, ErrInvalidFont
	}

	offsets := make([]uint32, numFonts)
	for i := range offsets {
		if offsets[i], err = p.U32(); err != nil {
			return nil, ErrInvalidFont
		}
	}
	return offsets, nil
}

func parseOffsetTable(data []byte, offset, index int) (*Font, error) {
	if offset < 0 || offset+12 > len(data) {
		return nil, ErrInvalidFont
	}

	p := NewParser(data)
	p.SetOffset(offset)

	sfntVersion, _ := p.U32()
	if sfntVersion != VersionTrueType &&
		sfntVersion != VersionCFF &&
		sfntVersion != versionTrue &&
		sfntVersion != versionTyp1 {
		return nil, ErrInvalidFont
	}

	numTables, _ := p.U16()
	p.Skip(6) // searchRange, entrySelector, rangeShift

	if offset+12+int(numTables)*16 > len(data) {
		return nil, ErrInvalidFont
	}

	font := &Font{
		data:    data,
		version: sfntVersion,
		index:   index,
		records: make([]TableRecord, 0, numTables),
		byTag:   make(map[Tag]int, numTables),
	}

	for i := 0; i < int(numTables); i++ {
		var rec TableRecord
		rec.Tag, _ = p.Tag()
		rec.Checksum, _ = p.U32()
		rec.Offset, _ = p.U32()
		rec.Length, _ = p.U32()

		if uint64(rec.Offset)+uint64(rec.Length) > uint64(len(data)) {
			return nil, ErrInvalidFont
		}
		if _, dup := font.byTag[rec.Tag]; dup {
			continue
		}
		font.byTag[rec.Tag] = len(font.records)
		font.records = append(font.records, rec)
	}

	return font, nil
}

// Version returns the sfnt version of the font.
func (f *Font) Version() uint32 {
	return f.version
}

// Index returns the position of the font within its collection, or -1
// for a standalone font.
func (f *Font) Index() int {
	return f.index
}

// Tables returns the table records in directory order.
func (f *Font) Tables() []TableRecord {
	return f.records
}

// HasTable returns true if the font has the given table.
func (f *Font) HasTable(tag Tag) bool {
	_, ok := f.byTag[tag]
	return ok
}

// TableData returns the raw data for a table.
func (f *Font) TableData(tag Tag) ([]byte, error) {
	i, ok := f.byTag[tag]
	if !ok {
		return nil, ErrTableNotFound
	}
	rec := f.records[i]
	return f.data[rec.Offset : rec.Offset+rec.Length], nil
}

// NumGlyphs returns the number of glyphs in the font.
// Returns 0 if maxp table is missing or invalid.
func (f *Font) NumGlyphs() int {
	data, err := f.TableData(TagMaxp)
	if err != nil || len(data) < 6 {
		return 0
	}
	return int(binary.BigEndian.Uint16(data[4:]))
}

// UnitsPerEm returns the head unitsPerEm value, or 0 if head is missing.
func (f *Font) UnitsPerEm() uint16 {
	data, err := f.TableData(TagHead)
	if err != nil || len(data) < 20 {
		return 0
	}
	return binary.BigEndian.Uint16(data[18:])
}
