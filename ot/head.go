package ot

import "encoding/binary"

// Head holds the fields of the head table that rubyfont reads.
type Head struct {
	UnitsPerEm       uint16
	XMin, YMin       int16
	XMax, YMax       int16
	IndexToLocFormat int16
}

const (
	headChecksumAdjustmentOffset = 8
	headIndexToLocFormatOffset   = 50
	headMinLength                = 54
)

// ParseHead parses the head table.
func ParseHead(data []byte) (*Head, error) {
	if len(data) < headMinLength {
		return nil, ErrInvalidTable
	}
	return &Head{
		UnitsPerEm:       binary.BigEndian.Uint16(data[18:]),
		XMin:             int16(binary.BigEndian.Uint16(data[36:])),
		YMin:             int16(binary.BigEndian.Uint16(data[38:])),
		XMax:             int16(binary.BigEndian.Uint16(data[40:])),
		YMax:             int16(binary.BigEndian.Uint16(data[42:])),
		IndexToLocFormat: int16(binary.BigEndian.Uint16(data[headIndexToLocFormatOffset:])),
	}, nil
}

// PatchHead returns a copy of the head table with indexToLocFormat set and
// checksumAdjustment cleared.
func PatchHead(data []byte, indexToLocFormat int16) ([]byte, error) {
	if len(data) < headMinLength {
		return nil, ErrInvalidTable
	}
	out := make([]byte, len(data))
	copy(out, data)
	binary.BigEndian.PutUint32(out[headChecksumAdjustmentOffset:], 0)
	binary.BigEndian.PutUint16(out[headIndexToLocFormatOffset:], uint16(indexToLocFormat))
	return out, nil
}

// Maxp holds the maxp fields rubyfont updates.
type Maxp struct {
	Version     uint32
	NumGlyphs   uint16
	MaxPoints   uint16
	MaxContours uint16
}

const (
	maxpVersion05 = 0x00005000
	maxpVersion10 = 0x00010000
	maxpV10Length = 32
)

// ParseMaxp parses the maxp table, version 0.5 or 1.0.
func ParseMaxp(data []byte) (*Maxp, error) {
	if len(data) < 6 {
		return nil, ErrInvalidTable
	}
	m := &Maxp{
		Version:   binary.BigEndian.Uint32(data),
		NumGlyphs: binary.BigEndian.Uint16(data[4:]),
	}
	if m.Version == maxpVersion10 && len(data) >= maxpV10Length {
		m.MaxPoints = binary.BigEndian.Uint16(data[6:])
		m.MaxContours = binary.BigEndian.Uint16(data[8:])
	}
	return m, nil
}

// PatchMaxp returns a version 1.0 maxp table describing numGlyphs
// TrueType glyphs. maxPoints and maxContours are raised to at least the
// given values; a version 0.5 table is upgraded with the remaining limits
// set for fonts without instructions.
func PatchMaxp(data []byte, numGlyphs, maxPoints, maxContours int) ([]byte, error) {
	m, err := ParseMaxp(data)
	if err != nil {
		return nil, err
	}

	var out []byte
	if m.Version == maxpVersion10 && len(data) >= maxpV10Length {
		out = make([]byte, len(data))
		copy(out, data)
	} else {
		out = make([]byte, maxpV10Length)
		binary.BigEndian.PutUint32(out, maxpVersion10)
		binary.BigEndian.PutUint16(out[14:], 1) // maxZones
	}

	binary.BigEndian.PutUint16(out[4:], uint16(numGlyphs))
	binary.BigEndian.PutUint16(out[6:], uint16(max(int(m.MaxPoints), min(maxPoints, 0xFFFF))))
	binary.BigEndian.PutUint16(out[8:], uint16(max(int(m.MaxContours), min(maxContours, 0xFFFF))))
	return out, nil
}
