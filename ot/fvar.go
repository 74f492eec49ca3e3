package ot

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Variation table tags.
var (
	TagFvar = MakeTag('f', 'v', 'a', 'r')
	TagAvar = MakeTag('a', 'v', 'a', 'r')
	TagGvar = MakeTag('g', 'v', 'a', 'r')
	TagCvar = MakeTag('c', 'v', 'a', 'r')
	TagHvar = MakeTag('H', 'V', 'A', 'R')
	TagVvar = MakeTag('V', 'V', 'A', 'R')
	TagMvar = MakeTag('M', 'V', 'A', 'R')
	TagSTAT = MakeTag('S', 'T', 'A', 'T')
)

// VariationTables are the tables that describe a variable font. Once the
// outlines are redrawn at the default instance none of them applies.
var VariationTables = map[Tag]bool{
	TagFvar: true,
	TagAvar: true,
	TagGvar: true,
	TagCvar: true,
	TagHvar: true,
	TagVvar: true,
	TagMvar: true,
	TagSTAT: true,
}

const fvarAxisSize = 20

// Axis describes a variation axis.
type Axis struct {
	Tag          Tag
	MinValue     float32
	DefaultValue float32
	MaxValue     float32
	Hidden       bool
}

func (a Axis) String() string {
	return fmt.Sprintf("%s=%g", a.Tag, a.DefaultValue)
}

// ParseFvar parses the axis records of an fvar table. Named instances are
// not read.
func ParseFvar(data []byte) ([]Axis, error) {
	if len(data) < 16 {
		return nil, ErrInvalidTable
	}

	// Check version (must be 1.0)
	if binary.BigEndian.Uint16(data[0:]) != 1 || binary.BigEndian.Uint16(data[2:]) != 0 {
		return nil, ErrInvalidTable
	}

	axisOffset := int(binary.BigEndian.Uint16(data[4:]))
	axisCount := int(binary.BigEndian.Uint16(data[8:]))
	if binary.BigEndian.Uint16(data[10:]) != fvarAxisSize {
		return nil, ErrInvalidTable
	}
	if axisOffset+axisCount*fvarAxisSize > len(data) {
		return nil, ErrInvalidOffset
	}

	axes := make([]Axis, axisCount)
	for i := range axes {
		rec := data[axisOffset+i*fvarAxisSize:]
		axes[i] = Axis{
			Tag:          Tag(binary.BigEndian.Uint32(rec)),
			MinValue:     fixed1616ToFloat(binary.BigEndian.Uint32(rec[4:])),
			DefaultValue: fixed1616ToFloat(binary.BigEndian.Uint32(rec[8:])),
			MaxValue:     fixed1616ToFloat(binary.BigEndian.Uint32(rec[12:])),
			Hidden:       binary.BigEndian.Uint16(rec[16:])&0x0001 != 0,
		}
	}
	return axes, nil
}

// DefaultInstance formats the default location of axes, e.g.
// "wght=400 wdth=100".
func DefaultInstance(axes []Axis) string {
	parts := make([]string, len(axes))
	for i, a := range axes {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

func fixed1616ToFloat(v uint32) float32 {
	return float32(int32(v)) / 65536
}
