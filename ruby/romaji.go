package ruby

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
	"seehuhn.de/go/geom/path"

	"github.com/boxesandglue/rubyfont/outline"
)

// unidecode spells a few syllables the Nihon-shiki way.
var hepburn = map[string]string{
	"zi": "ji",
	"di": "ji",
	"du": "zu",
	"hu": "fu",
}

// Romanize returns the Hepburn romanisation of a single kana. Characters
// that are not kana are returned unchanged; the prolonged sound mark
// becomes "-" and a small tsu, which only lengthens the next consonant,
// becomes "".
func Romanize(ch rune) string {
	switch ch {
	case 'ー':
		return "-"
	case 'っ', 'ッ':
		return ""
	}
	if !Hiragana.Contains(ch) && !Katakana.Contains(ch) {
		return string(ch)
	}
	s := strings.ToLower(strings.TrimSpace(unidecode.Unidecode(string(ch))))
	// marks such as the middle dot have no reading
	if s == "" || strings.Trim(s, "abcdefghijklmnopqrstuvwxyz") != "" {
		return string(ch)
	}
	if h, ok := hepburn[s]; ok {
		return h
	}
	return s
}

// Romaji annotates kana with their Hepburn romanisation. Han characters are
// covered by its ranges but never receive a reading.
type Romaji struct {
	placer
}

// NewRomaji returns a romaji annotator drawing with font.
func NewRomaji(font outline.Font, opts Options) *Romaji {
	return &Romaji{placer{font: font, opts: opts}}
}

// Name implements Annotator.
func (r *Romaji) Name() string { return "romaji" }

// Ranges implements Annotator.
func (r *Romaji) Ranges() []Range { return []Range{CJK, Hiragana, Katakana} }

// NewState implements Annotator.
func (r *Romaji) NewState() *State { return newState(r.font) }

// Text returns the romaji for ch, or "" when ch has none.
func (r *Romaji) Text(ch rune) string {
	s := Romanize(ch)
	if s == "" || s == string(ch) || s == "-" {
		return ""
	}
	return s
}

// Annotate implements Annotator.
func (r *Romaji) Annotate(st *State, ch rune, base *path.Data, advance, upm float64) error {
	return r.place(st, r.Text(ch), base, advance, upm)
}

