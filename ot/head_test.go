package ot

import (
	"encoding/binary"
	"testing"
)

func TestPatchHead(t *testing.T) {
	head := make([]byte, 54)
	binary.BigEndian.PutUint32(head[8:], 0xDEADBEEF)
	binary.BigEndian.PutUint16(head[18:], 2048)

	out, err := PatchHead(head, 1)
	if err != nil {
		t.Fatalf("PatchHead: %v", err)
	}
	if binary.BigEndian.Uint32(head[8:]) != 0xDEADBEEF {
		t.Error("PatchHead modified its input")
	}
	if v := binary.BigEndian.Uint32(out[8:]); v != 0 {
		t.Errorf("checksumAdjustment = %#x, want 0", v)
	}

	h, err := ParseHead(out)
	if err != nil {
		t.Fatalf("ParseHead: %v", err)
	}
	if h.IndexToLocFormat != 1 || h.UnitsPerEm != 2048 {
		t.Errorf("head = %+v", h)
	}

	if _, err := PatchHead(head[:40], 0); err == nil {
		t.Error("expected error for truncated head")
	}
}

func TestPatchMaxpUpgradesVersion05(t *testing.T) {
	maxp := make([]byte, 6)
	binary.BigEndian.PutUint32(maxp, 0x00005000)
	binary.BigEndian.PutUint16(maxp[4:], 12)

	out, err := PatchMaxp(maxp, 12, 40, 3)
	if err != nil {
		t.Fatalf("PatchMaxp: %v", err)
	}
	if len(out) != 32 {
		t.Fatalf("len = %d, want 32", len(out))
	}
	m, err := ParseMaxp(out)
	if err != nil {
		t.Fatalf("ParseMaxp: %v", err)
	}
	if m.Version != 0x00010000 || m.NumGlyphs != 12 || m.MaxPoints != 40 || m.MaxContours != 3 {
		t.Errorf("maxp = %+v", m)
	}
	if zones := binary.BigEndian.Uint16(out[14:]); zones != 1 {
		t.Errorf("maxZones = %d, want 1", zones)
	}
}

func TestPatchMaxpKeepsLargerMaxima(t *testing.T) {
	maxp := make([]byte, 32)
	binary.BigEndian.PutUint32(maxp, 0x00010000)
	binary.BigEndian.PutUint16(maxp[4:], 5)
	binary.BigEndian.PutUint16(maxp[6:], 100)
	binary.BigEndian.PutUint16(maxp[8:], 2)
	binary.BigEndian.PutUint16(maxp[20:], 64) // maxStackElements

	out, err := PatchMaxp(maxp, 5, 50, 9)
	if err != nil {
		t.Fatalf("PatchMaxp: %v", err)
	}
	m, _ := ParseMaxp(out)
	if m.MaxPoints != 100 || m.MaxContours != 9 {
		t.Errorf("maxPoints/maxContours = %d/%d, want 100/9", m.MaxPoints, m.MaxContours)
	}
	if v := binary.BigEndian.Uint16(out[20:]); v != 64 {
		t.Errorf("maxStackElements = %d, want 64 (copied)", v)
	}
}
