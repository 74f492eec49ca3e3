package ruby

import (
	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/unicode/norm"
	"seehuhn.de/go/geom/path"

	"github.com/boxesandglue/rubyfont/outline"
)

// Pinyin annotates Han characters with their tone-marked pinyin reading.
type Pinyin struct {
	placer
	args pinyin.Args
}

// NewPinyin returns a pinyin annotator drawing with font.
func NewPinyin(font outline.Font, opts Options) *Pinyin {
	args := pinyin.NewArgs()
	args.Style = pinyin.Tone
	return &Pinyin{
		placer: placer{font: font, opts: opts},
		args:   args,
	}
}

// Name implements Annotator.
func (p *Pinyin) Name() string { return "pinyin" }

// Ranges implements Annotator.
func (p *Pinyin) Ranges() []Range { return []Range{CJK} }

// NewState implements Annotator.
func (p *Pinyin) NewState() *State { return newState(p.font) }

// Text returns the first pinyin reading of ch, or "" if there is none.
func (p *Pinyin) Text(ch rune) string {
	if !CJK.Contains(ch) {
		return ""
	}
	readings := pinyin.SinglePinyin(ch, p.args)
	if len(readings) == 0 {
		return ""
	}
	return norm.NFC.String(readings[0])
}

// Annotate implements Annotator.
func (p *Pinyin) Annotate(st *State, ch rune, base *path.Data, advance, upm float64) error {
	return p.place(st, p.Text(ch), base, advance, upm)
}
