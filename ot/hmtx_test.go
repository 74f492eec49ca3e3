package ot

import (
	"encoding/binary"
	"testing"
)

func buildHmtx(metrics [][2]int, lsbs ...int16) []byte {
	var data []byte
	for _, m := range metrics {
		data = binary.BigEndian.AppendUint16(data, uint16(m[0]))
		data = binary.BigEndian.AppendUint16(data, uint16(int16(m[1])))
	}
	for _, l := range lsbs {
		data = binary.BigEndian.AppendUint16(data, uint16(l))
	}
	return data
}

func TestParseHmtx(t *testing.T) {
	data := buildHmtx([][2]int{{500, 10}, {600, -20}}, 30, 40)

	hmtx, err := ParseHmtx(data, 2, 4)
	if err != nil {
		t.Fatalf("ParseHmtx: %v", err)
	}

	tests := []struct {
		glyph GlyphID
		adv   uint16
		lsb   int16
	}{
		{0, 500, 10},
		{1, 600, -20},
		{2, 600, 30}, // beyond numberOfHMetrics: last advance
		{3, 600, 40},
	}
	for _, tt := range tests {
		adv, lsb := hmtx.GetMetrics(tt.glyph)
		if adv != tt.adv || lsb != tt.lsb {
			t.Errorf("glyph %d: got (%d, %d), want (%d, %d)", tt.glyph, adv, lsb, tt.adv, tt.lsb)
		}
	}
	if hmtx.NumberOfMetrics() != 2 {
		t.Errorf("NumberOfMetrics = %d, want 2", hmtx.NumberOfMetrics())
	}
}

func TestParseHmtxTruncatedBearings(t *testing.T) {
	data := buildHmtx([][2]int{{500, 10}})

	hmtx, err := ParseHmtx(data, 1, 3)
	if err != nil {
		t.Fatalf("ParseHmtx: %v", err)
	}
	if got := hmtx.GetLsb(2); got != 0 {
		t.Errorf("missing lsb = %d, want 0", got)
	}
	if got := hmtx.GetAdvanceWidth(2); got != 500 {
		t.Errorf("advance = %d, want 500", got)
	}
}

func TestParseHmtxInvalid(t *testing.T) {
	data := buildHmtx([][2]int{{500, 10}, {600, 0}})

	if _, err := ParseHmtx(data, 0, 2); err == nil {
		t.Error("expected error for zero numberOfHMetrics")
	}
	if _, err := ParseHmtx(data, 3, 2); err == nil {
		t.Error("expected error when numberOfHMetrics exceeds numGlyphs")
	}
	if _, err := ParseHmtx(data[:6], 2, 2); err == nil {
		t.Error("expected error for truncated long metrics")
	}
}

func TestParseHhea(t *testing.T) {
	data := make([]byte, 36)
	binary.BigEndian.PutUint32(data[0:], 0x00010000)
	binary.BigEndian.PutUint16(data[4:], 800)
	binary.BigEndian.PutUint16(data[6:], uint16(0xFF38)) // -200
	binary.BigEndian.PutUint16(data[34:], 7)

	hhea, err := ParseHhea(data)
	if err != nil {
		t.Fatalf("ParseHhea: %v", err)
	}
	if hhea.Ascender != 800 || hhea.Descender != -200 {
		t.Errorf("ascender/descender = %d/%d", hhea.Ascender, hhea.Descender)
	}
	if hhea.NumberOfHMetrics != 7 {
		t.Errorf("NumberOfHMetrics = %d, want 7", hhea.NumberOfHMetrics)
	}

	if _, err := ParseHhea(data[:20]); err == nil {
		t.Error("expected error for short hhea")
	}
}

func TestPatchLsb(t *testing.T) {
	data := buildHmtx([][2]int{{500, 10}, {600, -20}}, 30, 40)
	lsbs := map[GlyphID]int16{0: -5, 3: 7}
	out := PatchLsb(data, 2, 4, func(gid GlyphID) (int16, bool) {
		v, ok := lsbs[gid]
		return v, ok
	})

	hmtx, err := ParseHmtx(out, 2, 4)
	if err != nil {
		t.Fatalf("ParseHmtx: %v", err)
	}
	want := []LongHorMetric{{500, -5}, {600, -20}, {600, 30}, {600, 7}}
	for gid, w := range want {
		adv, lsb := hmtx.GetMetrics(GlyphID(gid))
		if adv != w.AdvanceWidth || lsb != w.Lsb {
			t.Errorf("glyph %d: got (%d, %d), want (%d, %d)", gid, adv, lsb, w.AdvanceWidth, w.Lsb)
		}
	}
	if binary.BigEndian.Uint16(data[2:]) != 10 {
		t.Error("PatchLsb modified its input")
	}

	// trailing bearings missing from the table stay missing
	short := buildHmtx([][2]int{{500, 10}})
	if got := PatchLsb(short, 1, 3, func(GlyphID) (int16, bool) { return 1, true }); len(got) != len(short) {
		t.Errorf("len = %d, want %d", len(got), len(short))
	}
}
