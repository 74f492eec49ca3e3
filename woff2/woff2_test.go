package woff2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxesandglue/rubyfont/internal/testutil"
	"github.com/boxesandglue/rubyfont/ot"
)

type entry struct {
	tag     ot.Tag
	version byte
	length  uint32
}

func readBase128(t *testing.T, b []byte) (uint32, int) {
	t.Helper()
	var v uint32
	for i := 0; i < 5 && i < len(b); i++ {
		v = v<<7 | uint32(b[i]&0x7F)
		if b[i]&0x80 == 0 {
			return v, i + 1
		}
	}
	t.Fatalf("bad UIntBase128 % x", b[:min(5, len(b))])
	return 0, 0
}

// decode reads the directory and decompressed table stream of a WOFF2 file.
func decode(t *testing.T, data []byte) ([]entry, []byte) {
	t.Helper()
	require.GreaterOrEqual(t, len(data), headerSize)
	numTables := int(binary.BigEndian.Uint16(data[12:]))
	compressedSize := int(binary.BigEndian.Uint32(data[20:]))

	var entries []entry
	off := headerSize
	for i := 0; i < numTables; i++ {
		flags := data[off]
		off++
		e := entry{version: flags >> 6}
		if idx := flags & 0x3F; idx == customTag {
			e.tag = ot.Tag(binary.BigEndian.Uint32(data[off:]))
			off += 4
		} else {
			s := knownTags[idx]
			e.tag = ot.MakeTag(s[0], s[1], s[2], s[3])
		}
		v, n := readBase128(t, data[off:])
		e.length = v
		off += n
		entries = append(entries, e)
	}

	r := brotli.NewReader(bytes.NewReader(data[off : off+compressedSize]))
	stream, err := io.ReadAll(r)
	require.NoError(t, err)
	return entries, stream
}

func TestEncode(t *testing.T) {
	zzzz := ot.MakeTag('z', 'z', 'z', 'z')
	sfnt := testutil.SynthFont{
		PostScriptName: "Woff-Regular",
		Glyphs: []testutil.Glyph{
			{Rune: 'A', Advance: 600, Contours: []ot.Contour{testutil.Box(50, 0, 550, 700)}},
		},
		Extra: map[ot.Tag][]byte{zzzz: []byte("custom")},
	}.MustBuild()
	font, err := ot.ParseFont(sfnt, 0)
	require.NoError(t, err)

	out, err := Encode(sfnt)
	require.NoError(t, err)

	assert.Equal(t, Signature, string(out[:4]))
	assert.Equal(t, ot.VersionTrueType, binary.BigEndian.Uint32(out[4:]), "flavor")
	assert.Equal(t, uint32(len(out)), binary.BigEndian.Uint32(out[8:]))
	assert.Zero(t, len(out)%4)
	assert.Equal(t, len(font.Tables()), int(binary.BigEndian.Uint16(out[12:])))
	assert.Equal(t, uint16(1), binary.BigEndian.Uint16(out[24:]))

	entries, stream := decode(t, out)
	var want []byte
	var sfntSize uint32 = 12 + 16*uint32(len(entries))
	for i, rec := range font.Tables() {
		data, _ := font.TableData(rec.Tag)
		want = append(want, data...)
		sfntSize += (uint32(len(data)) + 3) &^ 3

		e := entries[i]
		assert.Equal(t, rec.Tag, e.tag)
		assert.Equal(t, uint32(len(data)), e.length, rec.Tag.String())
		switch rec.Tag {
		case ot.TagGlyf, ot.TagLoca:
			assert.Equal(t, byte(3), e.version, "%s null transform", rec.Tag)
		default:
			assert.Zero(t, e.version, rec.Tag.String())
		}
	}
	assert.True(t, bytes.Equal(want, stream), "stream holds the tables in directory order")
	assert.Equal(t, sfntSize, binary.BigEndian.Uint32(out[16:]), "totalSfntSize")
}

func TestEncodeGoRegular(t *testing.T) {
	sfnt := testutil.GoRegular()
	out, err := Encode(sfnt)
	require.NoError(t, err)
	t.Logf("Go Regular: %d -> %d bytes", len(sfnt), len(out))
	if len(out) >= len(sfnt) {
		t.Errorf("WOFF2 is not smaller: %d >= %d", len(out), len(sfnt))
	}
}

func TestEncodeRejects(t *testing.T) {
	ttc := testutil.Collection(testutil.GoRegular(), testutil.GoMono())
	if _, err := Encode(ttc); !errors.Is(err, ErrCollection) {
		t.Errorf("collection: err = %v, want ErrCollection", err)
	}
	if _, err := Encode([]byte("definitely not a font")); !errors.Is(err, ot.ErrInvalidFont) {
		t.Errorf("garbage: err = %v, want ErrInvalidFont", err)
	}
}

func TestUIntBase128(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{63, []byte{0x3F}},
		{127, []byte{0x7F}},
		{128, []byte{0x81, 0x00}},
		{16383, []byte{0xFF, 0x7F}},
		{16384, []byte{0x81, 0x80, 0x00}},
		{0xFFFFFFFF, []byte{0x8F, 0xFF, 0xFF, 0xFF, 0x7F}},
	}
	for _, tt := range tests {
		got := AppendUIntBase128(nil, tt.v)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("AppendUIntBase128(%d) = % x, want % x", tt.v, got, tt.want)
		}
		if v, n := readBase128(t, got); v != tt.v || n != len(got) {
			t.Errorf("round trip of %d gave %d (%d bytes)", tt.v, v, n)
		}
	}
}
