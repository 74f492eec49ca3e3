package ot

import (
	"encoding/binary"
	"errors"
	"sort"
)

// ErrNoTables is returned when building a font with no tables.
var ErrNoTables = errors.New("ot: no tables to build")

// FontBuilder assembles a standalone sfnt from raw tables.
type FontBuilder struct {
	tables  map[Tag][]byte
	version uint32

	// ChecksumAdjustment makes Build store the whole-font checksum
	// adjustment in head. When false the field is written as found.
	ChecksumAdjustment bool
}

// NewFontBuilder creates a new FontBuilder for a TrueType-flavoured font.
func NewFontBuilder() *FontBuilder {
	return &FontBuilder{
		tables:             make(map[Tag][]byte),
		version:            VersionTrueType,
		ChecksumAdjustment: true,
	}
}

// SetVersion sets the sfnt version written to the offset table.
func (b *FontBuilder) SetVersion(v uint32) {
	b.version = v
}

// AddTable adds or replaces a table in the font.
func (b *FontBuilder) AddTable(tag Tag, data []byte) {
	b.tables[tag] = data
}

// HasTable returns true if the table exists.
func (b *FontBuilder) HasTable(tag Tag) bool {
	_, ok := b.tables[tag]
	return ok
}

// Table returns the data added for tag.
func (b *FontBuilder) Table(tag Tag) ([]byte, bool) {
	data, ok := b.tables[tag]
	return data, ok
}

// Build produces the final font binary.
func (b *FontBuilder) Build() ([]byte, error) {
	if len(b.tables) == 0 {
		return nil, ErrNoTables
	}

	tags := make([]Tag, 0, len(b.tables))
	for tag := range b.tables {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	size := 12 + 16*len(tags)
	for _, tag := range tags {
		size += pad4(len(b.tables[tag]))
	}

	out := make([]byte, 12+16*len(tags), size)
	searchRange, entrySelector, rangeShift := SearchParams(len(tags))
	binary.BigEndian.PutUint32(out[0:], b.version)
	binary.BigEndian.PutUint16(out[4:], uint16(len(tags)))
	binary.BigEndian.PutUint16(out[6:], searchRange)
	binary.BigEndian.PutUint16(out[8:], entrySelector)
	binary.BigEndian.PutUint16(out[10:], rangeShift)

	headOffset := -1
	for i, tag := range tags {
		data := b.tables[tag]
		if tag == TagHead {
			headOffset = len(out)
		}
		rec := out[12+16*i:]
		binary.BigEndian.PutUint32(rec[0:], uint32(tag))
		binary.BigEndian.PutUint32(rec[4:], CalcChecksum(data))
		binary.BigEndian.PutUint32(rec[8:], uint32(len(out)))
		binary.BigEndian.PutUint32(rec[12:], uint32(len(data)))
		out = append(out, data...)
		out = append(out, make([]byte, pad4(len(data))-len(data))...)
	}

	// checksumAdjustment = 0xB1B0AFBA - checksum of the whole font with
	// the field itself set to zero
	if b.ChecksumAdjustment && headOffset >= 0 && len(b.tables[TagHead]) >= headChecksumAdjustmentOffset+4 {
		field := out[headOffset+headChecksumAdjustmentOffset:]
		binary.BigEndian.PutUint32(field, 0)
		binary.BigEndian.PutUint32(field, 0xB1B0AFBA-CalcChecksum(out))
	}

	return out, nil
}

func pad4(n int) int {
	return (n + 3) &^ 3
}

// SearchParams calculates the binary search fields of an offset table
// holding numTables records.
func SearchParams(numTables int) (searchRange, entrySelector, rangeShift uint16) {
	// Find largest power of 2 <= numTables
	entrySelector = 0
	power := 1
	for power*2 <= numTables {
		power *= 2
		entrySelector++
	}
	searchRange = uint16(power * 16)
	rangeShift = uint16(numTables*16) - searchRange
	return
}

// CalcChecksum calculates the OpenType table checksum.
func CalcChecksum(data []byte) uint32 {
	var sum uint32
	// Process in 4-byte chunks
	length := len(data)
	for i := 0; i+4 <= length; i += 4 {
		sum += binary.BigEndian.Uint32(data[i:])
	}
	// Handle remaining bytes (if any)
	remaining := length % 4
	if remaining > 0 {
		var last uint32
		offset := length - remaining
		for i := 0; i < remaining; i++ {
			last |= uint32(data[offset+i]) << (24 - i*8)
		}
		sum += last
	}
	return sum
}
