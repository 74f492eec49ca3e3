package ot

import (
	"encoding/binary"
	"sort"
)

// cmapMapping is one rune to glyph assignment.
type cmapMapping struct {
	cp  rune
	gid GlyphID
}

// BuildCmap builds a cmap table for the given mappings. A format 4
// subtable (3,1) covers the BMP; when supplementary-plane runes are present
// a format 12 subtable (3,10) with every mapping is added.
func BuildCmap(runes map[rune]GlyphID) []byte {
	mappings := make([]cmapMapping, 0, len(runes))
	needsFormat12 := false
	for cp, gid := range runes {
		mappings = append(mappings, cmapMapping{cp, gid})
		if cp > 0xFFFF {
			needsFormat12 = true
		}
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].cp < mappings[j].cp })

	type subtable struct {
		encodingID uint16
		data       []byte
	}
	subtables := []subtable{{1, buildCmapFormat4(mappings)}}
	if needsFormat12 {
		subtables = append(subtables, subtable{10, buildCmapFormat12(mappings)})
	}

	out := make([]byte, 4+8*len(subtables))
	binary.BigEndian.PutUint16(out[0:], 0) // version
	binary.BigEndian.PutUint16(out[2:], uint16(len(subtables)))
	for i, st := range subtables {
		rec := out[4+8*i:]
		binary.BigEndian.PutUint16(rec[0:], platformWindows)
		binary.BigEndian.PutUint16(rec[2:], st.encodingID)
		binary.BigEndian.PutUint32(rec[4:], uint32(len(out)))
		out = append(out, st.data...)
	}
	return out
}

// buildCmapFormat4 builds a format 4 subtable from sorted mappings,
// ignoring runes outside the BMP. Consecutive runs with a constant
// glyph delta share one segment.
func buildCmapFormat4(mappings []cmapMapping) []byte {
	type segment struct {
		start, end uint16
		delta      int16
	}

	var segments []segment
	for i := 0; i < len(mappings); {
		first := mappings[i]
		if first.cp > 0xFFFF {
			break
		}
		delta := int(first.gid) - int(first.cp)
		last := first
		j := i + 1
		for ; j < len(mappings); j++ {
			next := mappings[j]
			if next.cp > 0xFFFE || next.cp != last.cp+1 || int(next.gid)-int(next.cp) != delta {
				break
			}
			last = next
		}
		if first.cp == 0xFFFF {
			break
		}
		segments = append(segments, segment{uint16(first.cp), uint16(last.cp), int16(delta)})
		i = j
	}
	// required terminating segment
	segments = append(segments, segment{0xFFFF, 0xFFFF, 1})

	segCountX2 := len(segments) * 2
	searchRange, entrySelector := 2, 0
	for searchRange*2 <= segCountX2 {
		searchRange *= 2
		entrySelector++
	}

	length := 16 + len(segments)*8
	out := make([]byte, 14, length)
	binary.BigEndian.PutUint16(out[0:], 4)
	binary.BigEndian.PutUint16(out[2:], uint16(length))
	binary.BigEndian.PutUint16(out[4:], 0) // language
	binary.BigEndian.PutUint16(out[6:], uint16(segCountX2))
	binary.BigEndian.PutUint16(out[8:], uint16(searchRange))
	binary.BigEndian.PutUint16(out[10:], uint16(entrySelector))
	binary.BigEndian.PutUint16(out[12:], uint16(segCountX2-searchRange))

	for _, seg := range segments {
		out = binary.BigEndian.AppendUint16(out, seg.end)
	}
	out = binary.BigEndian.AppendUint16(out, 0) // reservedPad
	for _, seg := range segments {
		out = binary.BigEndian.AppendUint16(out, seg.start)
	}
	for _, seg := range segments {
		out = binary.BigEndian.AppendUint16(out, uint16(seg.delta))
	}
	for range segments {
		out = binary.BigEndian.AppendUint16(out, 0) // idRangeOffset
	}
	return out
}

// buildCmapFormat12 builds a format 12 subtable from sorted mappings.
func buildCmapFormat12(mappings []cmapMapping) []byte {
	type group struct {
		startChar, endChar, startGlyph uint32
	}

	var groups []group
	for i := 0; i < len(mappings); {
		first := mappings[i]
		last := first
		j := i + 1
		for ; j < len(mappings); j++ {
			next := mappings[j]
			if next.cp != last.cp+1 || uint32(next.gid) != uint32(first.gid)+uint32(j-i) {
				break
			}
			last = next
		}
		groups = append(groups, group{uint32(first.cp), uint32(last.cp), uint32(first.gid)})
		i = j
	}

	length := 16 + len(groups)*12
	out := make([]byte, 16, length)
	binary.BigEndian.PutUint16(out[0:], 12)
	binary.BigEndian.PutUint32(out[4:], uint32(length))
	binary.BigEndian.PutUint32(out[12:], uint32(len(groups)))
	for _, g := range groups {
		out = binary.BigEndian.AppendUint32(out, g.startChar)
		out = binary.BigEndian.AppendUint32(out, g.endChar)
		out = binary.BigEndian.AppendUint32(out, g.startGlyph)
	}
	return out
}
