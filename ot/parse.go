// Package ot reads and writes the sfnt container used by TrueType and
// OpenType fonts: table directories, collections, and the handful of tables
// that rubyfont has to rebuild (head, maxp, hhea/hmtx, glyf/loca, name).
package ot

import (
	"encoding/binary"
	"errors"
)

// Common errors
var (
	ErrInvalidFont   = errors.New("ot: invalid font data")
	ErrTableNotFound = errors.New("ot: table not found")
	ErrInvalidTable  = errors.New("ot: invalid table data")
	ErrInvalidOffset = errors.New("ot: offset out of bounds")
	ErrGlyphOverflow = errors.New("ot: glyph coordinates out of range")
)

// Tag is a 4-byte OpenType tag.
type Tag uint32

// MakeTag creates a Tag from 4 bytes.
func MakeTag(a, b, c, d byte) Tag {
	return Tag(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

// String returns the tag as a 4-character string.
func (t Tag) String() string {
	return string([]byte{
		byte(t >> 24),
		byte(t >> 16),
		byte(t >> 8),
		byte(t),
	})
}

// Common OpenType tags
var (
	TagCmap = MakeTag('c', 'm', 'a', 'p')
	TagHead = MakeTag('h', 'e', 'a', 'd')
	TagHhea = MakeTag('h', 'h', 'e', 'a')
	TagHmtx = MakeTag('h', 'm', 't', 'x')
	TagMaxp = MakeTag('m', 'a', 'x', 'p')
	TagName = MakeTag('n', 'a', 'm', 'e')
	TagOS2  = MakeTag('O', 'S', '/', '2')
	TagPost = MakeTag('p', 'o', 's', 't')
	TagGlyf = MakeTag('g', 'l', 'y', 'f')
	TagLoca = MakeTag('l', 'o', 'c', 'a')
	TagCFF  = MakeTag('C', 'F', 'F', ' ')
	TagCFF2 = MakeTag('C', 'F', 'F', '2')
	TagVORG = MakeTag('V', 'O', 'R', 'G')
	TagGDEF = MakeTag('G', 'D', 'E', 'F')
	TagGSUB = MakeTag('G', 'S', 'U', 'B')
	TagGPOS = MakeTag('G', 'P', 'O', 'S')
	TagCvt  = MakeTag('c', 'v', 't', ' ')
	TagFpgm = MakeTag('f', 'p', 'g', 'm')
	TagPrep = MakeTag('p', 'r', 'e', 'p')
	TagGasp = MakeTag('g', 'a', 's', 'p')
	TagVhea = MakeTag('v', 'h', 'e', 'a')
	TagVmtx = MakeTag('v', 'm', 't', 'x')
	TagHdmx = MakeTag('h', 'd', 'm', 'x')
	TagLTSH = MakeTag('L', 'T', 'S', 'H')
	TagVDMX = MakeTag('V', 'D', 'M', 'X')
)

// sfnt versions
const (
	VersionTrueType uint32 = 0x00010000
	VersionCFF      uint32 = 0x4F54544F // 'OTTO'
	versionTrue     uint32 = 0x74727565 // 'true'
	versionTyp1     uint32 = 0x74797031 // 'typ1'
	collectionTag   uint32 = 0x74746366 // 'ttcf'
)

// Parser provides methods for reading binary OpenType data.
type Parser struct {
	data []byte
	off  int
}

// NewParser creates a parser for the given data.
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// Offset returns the current offset.
func (p *Parser) Offset() int {
	return p.off
}

// SetOffset sets the current offset.
func (p *Parser) SetOffset(off int) error {
	if off < 0 || off > len(p.data) {
		return ErrInvalidOffset
	}
	p.off = off
	return nil
}

// Skip advances the offset by n bytes.
func (p *Parser) Skip(n int) error {
	if p.off+n > len(p.data) {
		return ErrInvalidOffset
	}
	p.off += n
	return nil
}

// U16 reads a big-endian uint16 and advances.
func (p *Parser) U16() (uint16, error) {
	if p.off+2 > len(p.data) {
		return 0, ErrInvalidOffset
	}
	v := binary.BigEndian.Uint16(p.data[p.off:])
	p.off += 2
	return v, nil
}

// U32 reads a big-endian uint32 and advances.
func (p *Parser) U32() (uint32, error) {
	if p.off+4 > len(p.data) {
		return 0, ErrInvalidOffset
	}
	v := binary.BigEndian.Uint32(p.data[p.off:])
	p.off += 4
	return v, nil
}

// Tag reads a 4-byte tag and advances.
func (p *Parser) Tag() (Tag, error) {
	v, err := p.U32()
	return Tag(v), err
}
