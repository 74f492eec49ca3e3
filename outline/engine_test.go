package outline

import (
	"errors"
	"testing"

	"seehuhn.de/go/geom/path"

	"github.com/boxesandglue/rubyfont/internal/testutil"
	"github.com/boxesandglue/rubyfont/ot"
)

var engines = []Engine{GoText, XImage}

func TestParseEngine(t *testing.T) {
	for _, e := range engines {
		got, err := ParseEngine(e.String())
		if err != nil || got != e {
			t.Errorf("ParseEngine(%q) = %v, %v", e.String(), got, err)
		}
	}
	if _, err := ParseEngine("freetype"); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("err = %v, want ErrUnknownEngine", err)
	}
}

func TestEnginesDrawGoRegular(t *testing.T) {
	data := testutil.GoRegular()
	src, err := ot.ParseFont(data, 0)
	if err != nil {
		t.Fatalf("ParseFont: %v", err)
	}
	hmtx, err := ot.ParseHmtxFromFont(src)
	if err != nil {
		t.Fatalf("ParseHmtxFromFont: %v", err)
	}

	for _, e := range engines {
		t.Run(e.String(), func(t *testing.T) {
			f, err := Open(e, data, 0)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if f.UnitsPerEm() != 2048 {
				t.Errorf("UnitsPerEm = %v", f.UnitsPerEm())
			}
			face := f.NewFace()

			gid, ok := face.Lookup('H')
			if !ok {
				t.Fatal("'H' not mapped")
			}
			if adv := face.Advance(gid); adv != float64(hmtx.GetAdvanceWidth(gid)) {
				t.Errorf("Advance = %v, want %d", adv, hmtx.GetAdvanceWidth(gid))
			}

			pen := NewPathPen()
			if err := face.Draw(gid, pen); err != nil {
				t.Fatalf("Draw: %v", err)
			}
			closes := 0
			for _, cmd := range pen.Path.Cmds {
				if cmd == path.CmdClose {
					closes++
				}
			}
			if closes == 0 || pen.Path.Cmds[len(pen.Path.Cmds)-1] != path.CmdClose {
				t.Errorf("contours not closed: %v", pen.Path.Cmds)
			}

			r, ok := Bounds(pen.Path)
			if !ok || r.URy <= 0 || r.LLy < -1 {
				t.Errorf("'H' bounds %+v look upside down", r)
			}

			space, _ := face.Lookup(' ')
			pen.Reset()
			if err := face.Draw(space, pen); err != nil {
				t.Errorf("Draw(space): %v", err)
			}
			if !IsEmpty(pen.Path) {
				t.Error("space should draw an empty path")
			}

			if err := face.Draw(ot.GlyphID(f.NumGlyphs()), NewPathPen()); !errors.Is(err, ErrGlyphRange) {
				t.Errorf("Draw(out of range) err = %v", err)
			}
			if _, ok := face.Lookup(0x4E2D); ok {
				t.Error("Go Regular should not map U+4E2D")
			}
		})
	}
}

func TestEnginesAgree(t *testing.T) {
	data := testutil.GoRegular()
	gt, err := Open(GoText, data, 0)
	if err != nil {
		t.Fatal(err)
	}
	xi, err := Open(XImage, data, 0)
	if err != nil {
		t.Fatal(err)
	}
	a, b := gt.NewFace(), xi.NewFace()

	for _, r := range "agQ&8" {
		gid, _ := a.Lookup(r)
		pa, pb := NewPathPen(), NewPathPen()
		if err := a.Draw(gid, pa); err != nil {
			t.Fatal(err)
		}
		if err := b.Draw(gid, pb); err != nil {
			t.Fatal(err)
		}
		ra, _ := Bounds(pa.Path)
		rb, _ := Bounds(pb.Path)
		// x/image rounds implied on-curve midpoints to whole units
		const tol = 1.0
		if abs(ra.LLx-rb.LLx) > tol || abs(ra.LLy-rb.LLy) > tol || abs(ra.URx-rb.URx) > tol || abs(ra.URy-rb.URy) > tol {
			t.Errorf("%q: gotext bounds %+v, ximage bounds %+v", r, ra, rb)
		}
	}
}

func TestOpenCollectionMember(t *testing.T) {
	ttc := testutil.Collection(testutil.GoRegular(), testutil.GoMono())
	for _, e := range engines {
		f, err := Open(e, ttc, 1)
		if err != nil {
			t.Fatalf("%v: Open(ttc, 1): %v", e, err)
		}
		face := f.NewFace()
		m, _ := face.Lookup('m')
		i, _ := face.Lookup('i')
		if face.Advance(m) != face.Advance(i) {
			t.Errorf("%v: member 1 should be the monospaced font", e)
		}
	}
	if _, err := Open(GoText, ttc, 2); err == nil {
		t.Error("expected error for font index 2")
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
