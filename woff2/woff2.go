// Package woff2 wraps sfnt fonts in WOFF2 containers.
//
// Every table is stored with the null transform, so the brotli stream holds
// the tables exactly as they appear in the font.
package woff2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/andybalholm/brotli"

	"github.com/boxesandglue/rubyfont"
	"github.com/boxesandglue/rubyfont/ot"
)

var (
	// ErrCollection is returned for TrueType collections, which Encode
	// does not support. Split them first.
	ErrCollection = errors.New("woff2: collections are not supported")

	// ErrTooLarge is returned when the font exceeds the 32-bit sizes of
	// the container header.
	ErrTooLarge = errors.New("woff2: font too large")
)

// Signature starts every WOFF2 file.
const Signature = "wOF2"

const (
	headerSize = 48

	// transform version of the null transform for glyf and loca; 0
	// means null for every other table
	nullTransformGlyf = 3
	customTag         = 63
)

// knownTags are the tags with a 6-bit index in the table directory.
var knownTags = []string{
	"cmap", "head", "hhea", "hmtx",
	"maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca",
	"prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern",
	"LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS",
	"GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL",
	"SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar",
	"fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar",
	"mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat",
	"Gloc", "Feat", "Sill",
}

var tagIndex = func() map[ot.Tag]byte {
	m := make(map[ot.Tag]byte, len(knownTags))
	for i, s := range knownTags {
		m[ot.MakeTag(s[0], s[1], s[2], s[3])] = byte(i)
	}
	return m
}()

// Encode returns the WOFF2 encoding of a single sfnt font.
func Encode(sfnt []byte) ([]byte, error) {
	if ot.IsCollection(sfnt) {
		return nil, ErrCollection
	}
	font, err := ot.ParseFont(sfnt, 0)
	if err != nil {
		return nil, err
	}
	records := font.Tables()

	var dir, stream []byte
	totalSfntSize := uint64(12 + 16*len(records))
	for _, rec := range records {
		data, err := font.TableData(rec.Tag)
		if err != nil {
			return nil, err
		}

		var version byte
		if rec.Tag == ot.TagGlyf || rec.Tag == ot.TagLoca {
			version = nullTransformGlyf
		}
		if idx, ok := tagIndex[rec.Tag]; ok {
			dir = append(dir, version<<6|idx)
		} else {
			dir = append(dir, version<<6|customTag)
			dir = binary.BigEndian.AppendUint32(dir, uint32(rec.Tag))
		}
		dir = AppendUIntBase128(dir, uint32(len(data)))

		stream = append(stream, data...)
		totalSfntSize += uint64(len(data)+3) &^ 3
	}

	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.BestCompression)
	if _, err := w.Write(stream); err != nil {
		return nil, fmt.Errorf("woff2: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("woff2: compress: %w", err)
	}
	compressed := buf.Bytes()

	length := uint64(headerSize+len(dir)+len(compressed)+3) &^ 3
	if length > 0xFFFFFFFF || totalSfntSize > 0xFFFFFFFF {
		return nil, ErrTooLarge
	}

	out := make([]byte, headerSize, length)
	copy(out, Signature)
	binary.BigEndian.PutUint32(out[4:], font.Version()) // flavor
	binary.BigEndian.PutUint32(out[8:], uint32(length))
	binary.BigEndian.PutUint16(out[12:], uint16(len(records)))
	binary.BigEndian.PutUint32(out[16:], uint32(totalSfntSize))
	binary.BigEndian.PutUint32(out[20:], uint32(len(compressed)))
	binary.BigEndian.PutUint16(out[24:], 1) // majorVersion
	// minorVersion, metadata and private block stay zero

	out = append(out, dir...)
	out = append(out, compressed...)
	out = out[:length]

	rubyfont.Logger().Info("woff2: font encoded",
		"tables", len(records), "sfnt", len(sfnt), "bytes", len(out))
	return out, nil
}

// AppendUIntBase128 appends v in the variable-length encoding of the WOFF2
// table directory: big-endian groups of 7 bits, the high bit set on all but
// the last byte, no leading zero groups.
func AppendUIntBase128(b []byte, v uint32) []byte {
	n := 1
	for rest := v >> 7; rest != 0; rest >>= 7 {
		n++
	}
	for i := n - 1; i >= 0; i-- {
		c := byte(v>>(7*uint(i))) & 0x7F
		if i > 0 {
			c |= 0x80
		}
		b = append(b, c)
	}
	return b
}
