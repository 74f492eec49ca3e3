package ot

import (
	"encoding/binary"
	"sort"

	"golang.org/x/text/encoding/unicode"
)

// Name IDs.
const (
	NameIDFamily     = 1
	NameIDSubfamily  = 2
	NameIDFullName   = 4
	NameIDPostScript = 6
)

const (
	platformWindows    = 3
	encodingUnicodeBMP = 1
	languageEnglishUS  = 0x0409
)

// NameRecord is one Windows English (US) name string.
type NameRecord struct {
	ID    uint16
	Value string
}

// BuildNameTable returns a format 0 name table holding the records as
// Windows Unicode BMP strings.
func BuildNameTable(records ...NameRecord) ([]byte, error) {
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()

	sorted := make([]NameRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	headerLen := 6 + 12*len(sorted)
	out := make([]byte, headerLen)
	binary.BigEndian.PutUint16(out[0:], 0) // format
	binary.BigEndian.PutUint16(out[2:], uint16(len(sorted)))
	binary.BigEndian.PutUint16(out[4:], uint16(headerLen))

	var strs []byte
	for i, r := range sorted {
		s, err := enc.String(r.Value)
		if err != nil {
			return nil, err
		}
		if len(s) > 0xFFFF || len(strs) > 0xFFFF {
			return nil, ErrInvalidTable
		}
		rec := out[6+12*i:]
		binary.BigEndian.PutUint16(rec[0:], platformWindows)
		binary.BigEndian.PutUint16(rec[2:], encodingUnicodeBMP)
		binary.BigEndian.PutUint16(rec[4:], languageEnglishUS)
		binary.BigEndian.PutUint16(rec[6:], r.ID)
		binary.BigEndian.PutUint16(rec[8:], uint16(len(s)))
		binary.BigEndian.PutUint16(rec[10:], uint16(len(strs)))
		strs = append(strs, s...)
	}
	return append(out, strs...), nil
}

// DisplayNameRecords returns the family and full name records used when a
// rewritten font is renamed.
func DisplayNameRecords(displayName string) []NameRecord {
	return []NameRecord{
		{ID: NameIDFamily, Value: displayName},
		{ID: NameIDFullName, Value: displayName},
	}
}
