package ot

import (
	"encoding/binary"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

func TestBuildNameTable(t *testing.T) {
	data, err := BuildNameTable(
		NameRecord{ID: NameIDPostScript, Value: "Ruby-Regular"},
		NameRecord{ID: NameIDFamily, Value: "Ruby 中文"},
	)
	if err != nil {
		t.Fatalf("BuildNameTable: %v", err)
	}

	count := int(binary.BigEndian.Uint16(data[2:]))
	storage := int(binary.BigEndian.Uint16(data[4:]))
	if count != 2 || storage != 6+12*2 {
		t.Fatalf("count=%d storage=%d", count, storage)
	}

	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	want := map[uint16]string{NameIDFamily: "Ruby 中文", NameIDPostScript: "Ruby-Regular"}
	var prevID uint16
	for i := 0; i < count; i++ {
		rec := data[6+12*i:]
		if p := binary.BigEndian.Uint16(rec); p != platformWindows {
			t.Errorf("record %d platform = %d", i, p)
		}
		id := binary.BigEndian.Uint16(rec[6:])
		if id < prevID {
			t.Errorf("records not sorted by name id")
		}
		prevID = id
		length := int(binary.BigEndian.Uint16(rec[8:]))
		off := int(binary.BigEndian.Uint16(rec[10:]))
		s, err := dec.Bytes(data[storage+off : storage+off+length])
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if string(s) != want[id] {
			t.Errorf("name %d = %q, want %q", id, s, want[id])
		}
	}
}

func TestDisplayNameRecords(t *testing.T) {
	recs := DisplayNameRecords("Ruby Sans")
	if len(recs) != 2 || recs[0].ID != NameIDFamily || recs[1].ID != NameIDFullName {
		t.Fatalf("records = %+v", recs)
	}
	for _, r := range recs {
		if r.Value != "Ruby Sans" {
			t.Errorf("record %d value = %q", r.ID, r.Value)
		}
	}
}
