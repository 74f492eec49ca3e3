// Package ttc writes TrueType collections from independently built fonts,
// storing identical outline tables only once.
package ttc

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/boxesandglue/rubyfont"
	"github.com/boxesandglue/rubyfont/ot"
)

var (
	// ErrNoFonts is returned when Build is called without fonts.
	ErrNoFonts = errors.New("ttc: no fonts")

	// ErrTooLarge is returned when the collection would need offsets
	// beyond 32 bits.
	ErrTooLarge = errors.New("ttc: collection exceeds 4 GiB")
)

// Shared lists the tags whose tables may be stored once for several fonts.
// Other tables are always written per font, even when identical.
var Shared = map[ot.Tag]bool{
	ot.TagGlyf: true,
	ot.TagCFF:  true,
	ot.TagLoca: true,
}

// Stats describes a built collection.
type Stats struct {
	Fonts        int
	Tables       int // table records over all fonts
	SharedTables int // records that reuse an earlier table
	SavedBytes   int
}

const (
	headerSize = 12
	recordSize = 16
)

// Build returns a collection holding fonts in the given order.
func Build(fonts []*ot.Font) ([]byte, error) {
	out, _, err := BuildStats(fonts)
	return out, err
}

type tableKey struct {
	tag  ot.Tag
	data string
}

// BuildStats is like Build and also reports how much was shared.
//
// The layout is the collection header, one table directory per font and a
// single data block. Directory offsets are first written relative to the
// data block and made absolute once its position is known. Checksums are
// taken from the source records as they are.
func BuildStats(fonts []*ot.Font) ([]byte, Stats, error) {
	stats := Stats{Fonts: len(fonts)}
	if len(fonts) == 0 {
		return nil, stats, ErrNoFonts
	}

	dirSize := headerSize + 4*len(fonts)
	for _, f := range fonts {
		dirSize += headerSize + recordSize*len(f.Tables())
	}

	out := make([]byte, headerSize+4*len(fonts), dirSize)
	copy(out, "ttcf")
	binary.BigEndian.PutUint16(out[4:], 1) // majorVersion
	binary.BigEndian.PutUint16(out[6:], 0) // minorVersion
	binary.BigEndian.PutUint32(out[8:], uint32(len(fonts)))

	var block []byte
	seen := make(map[tableKey]uint32)
	fontOffsets := make([]int, len(fonts))

	for i, f := range fonts {
		fontOffsets[i] = len(out)
		records := f.Tables()
		searchRange, entrySelector, rangeShift := ot.SearchParams(len(records))

		out = binary.BigEndian.AppendUint32(out, f.Version())
		out = binary.BigEndian.AppendUint16(out, uint16(len(records)))
		out = binary.BigEndian.AppendUint16(out, searchRange)
		out = binary.BigEndian.AppendUint16(out, entrySelector)
		out = binary.BigEndian.AppendUint16(out, rangeShift)

		for _, rec := range records {
			data, err := f.TableData(rec.Tag)
			if err != nil {
				return nil, stats, err
			}
			stats.Tables++

			var key tableKey
			off, shared := uint32(0), false
			if Shared[rec.Tag] {
				key = tableKey{rec.Tag, string(data)}
				off, shared = seen[key]
			}
			if shared {
				stats.SharedTables++
				stats.SavedBytes += len(data)
				rubyfont.Logger().Debug("ttc: sharing table", "font", i, "tag", rec.Tag.String(), "bytes", len(data))
			} else {
				for len(block)%4 != 0 {
					block = append(block, 0)
				}
				if uint64(len(block)) > math.MaxUint32 {
					return nil, stats, ErrTooLarge
				}
				off = uint32(len(block))
				if Shared[rec.Tag] {
					seen[key] = off
				}
				block = append(block, data...)
			}

			out = binary.BigEndian.AppendUint32(out, uint32(rec.Tag))
			out = binary.BigEndian.AppendUint32(out, rec.Checksum)
			out = binary.BigEndian.AppendUint32(out, off)
			out = binary.BigEndian.AppendUint32(out, uint32(len(data)))
		}
	}

	blockStart := len(out)
	if uint64(blockStart)+uint64(len(block)) > math.MaxUint32 {
		return nil, stats, ErrTooLarge
	}

	for i, off := range fontOffsets {
		binary.BigEndian.PutUint32(out[headerSize+4*i:], uint32(off))

		numTables := int(binary.BigEndian.Uint16(out[off+4:]))
		for t := 0; t < numTables; t++ {
			field := out[off+headerSize+recordSize*t+8:]
			binary.BigEndian.PutUint32(field, binary.BigEndian.Uint32(field)+uint32(blockStart))
		}
	}

	out = append(out, block...)
	rubyfont.Logger().Info("ttc: collection built",
		"fonts", stats.Fonts, "tables", stats.Tables, "shared", stats.SharedTables,
		"saved", stats.SavedBytes, "bytes", len(out))
	return out, stats, nil
}
