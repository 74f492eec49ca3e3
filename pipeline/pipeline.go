// Package pipeline turns one input font file into output files: it
// rewrites every font of the file in parallel, optionally subsets them,
// and writes a single font, a collection, or one file per collection
// member, optionally WOFF2 compressed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/sync/errgroup"

	"github.com/boxesandglue/rubyfont"
	"github.com/boxesandglue/rubyfont/ot"
	"github.com/boxesandglue/rubyfont/outline"
	"github.com/boxesandglue/rubyfont/rewrite"
	"github.com/boxesandglue/rubyfont/ruby"
	"github.com/boxesandglue/rubyfont/subset"
	"github.com/boxesandglue/rubyfont/ttc"
	"github.com/boxesandglue/rubyfont/woff2"
)

// ErrWOFF2Collection is returned when WOFF2 output is requested for a
// collection that is not split into single fonts.
var ErrWOFF2Collection = errors.New("pipeline: WOFF2 output of a collection requires split mode")

// Config configures a run. The zero value rewrites without annotations and
// writes the same container type it read.
type Config struct {
	// Rewriter is applied to every font. Its OnGlyph, if set, is called
	// from several goroutines at once.
	Rewriter rewrite.Rewriter

	// Subset keeps only the glyphs of the annotators' ranges.
	Subset bool

	// Split writes the members of a collection as separate files.
	Split bool

	// WOFF2 compresses every output file.
	WOFF2 bool

	// Workers limits the fonts processed at once; 0 means GOMAXPROCS.
	Workers int

	// AnnotatorsFor, if set, returns the annotators for the font at index
	// of the input and replaces Rewriter.Annotators for that font. It is
	// called from several goroutines at once.
	AnnotatorsFor func(index int) ([]ruby.Annotator, error)
}

// File is one output of a run. Name is empty for the single output of a
// run that is not split.
type File struct {
	Name string
	Data []byte
}

// Progress counts finished work. All fields are updated atomically and may
// be read while the run is in progress.
type Progress struct {
	FontsDone   atomic.Int64
	FontsTotal  atomic.Int64
	GlyphsDone  atomic.Int64
	GlyphsTotal atomic.Int64
}

// Fraction returns the share of glyphs done, between 0 and 1.
func (p *Progress) Fraction() float64 {
	total := p.GlyphsTotal.Load()
	if total == 0 {
		return 0
	}
	return min(1, float64(p.GlyphsDone.Load())/float64(total))
}

// Run processes one input file. It owns the input and all intermediate
// buffers until Release is called.
type Run struct {
	Progress Progress

	cfg   Config
	input []byte
	fonts [][]byte
}

// NewRun returns a run over input, which must not be modified until the
// run has been released.
func NewRun(cfg Config, input []byte) *Run {
	return &Run{cfg: cfg, input: input}
}

// Release drops the references to the input and intermediate buffers.
// Files returned by Execute stay valid.
func (r *Run) Release() {
	r.input = nil
	r.fonts = nil
}

// Execute runs the pipeline. The first failing font cancels the others
// and its error is returned; no partial output is produced.
func (r *Run) Execute(ctx context.Context) ([]File, error) {
	if r.input == nil {
		return nil, errors.New("pipeline: run already released")
	}

	collection := ot.IsCollection(r.input)
	var sources []*ot.Font
	if collection {
		fonts, err := ot.ParseCollection(r.input)
		if err != nil {
			return nil, err
		}
		sources = fonts
	} else {
		font, err := ot.ParseFont(r.input, 0)
		if err != nil {
			return nil, err
		}
		sources = []*ot.Font{font}
	}
	split := collection && r.cfg.Split
	if collection && !split && r.cfg.WOFF2 {
		return nil, ErrWOFF2Collection
	}

	r.Progress.FontsTotal.Store(int64(len(sources)))
	var glyphs int64
	for _, f := range sources {
		glyphs += int64(f.NumGlyphs())
	}
	r.Progress.GlyphsTotal.Store(glyphs)

	rw := r.cfg.Rewriter
	onGlyph := rw.OnGlyph
	rw.OnGlyph = func() {
		r.Progress.GlyphsDone.Add(1)
		if onGlyph != nil {
			onGlyph()
		}
	}

	workers := r.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	r.fonts = make([][]byte, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frw := rw
			if r.cfg.AnnotatorsFor != nil {
				annotators, err := r.cfg.AnnotatorsFor(i)
				if err != nil {
					return fmt.Errorf("font %d: %w", i, err)
				}
				frw.Annotators = annotators
			}
			out, err := frw.Rewrite(r.input, i)
			if err != nil {
				return fmt.Errorf("font %d: %w", i, err)
			}
			if r.cfg.Subset {
				if out, err = r.subset(out, frw.Annotators); err != nil {
					return fmt.Errorf("font %d: %w", i, err)
				}
			}
			if split && r.cfg.WOFF2 {
				if out, err = woff2.Encode(out); err != nil {
					return fmt.Errorf("font %d: %w", i, err)
				}
			}
			r.fonts[i] = out
			r.Progress.FontsDone.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files, err := r.assemble(collection, split)
	if err != nil {
		return nil, err
	}
	rubyfont.Logger().Info("pipeline: run done", "fonts", len(sources), "files", len(files))
	return files, nil
}

// assemble turns the per-font results into output files.
func (r *Run) assemble(collection, split bool) ([]File, error) {
	switch {
	case split:
		names := SplitNames(r.input, len(r.fonts))
		files := make([]File, len(r.fonts))
		for i, data := range r.fonts {
			name := names[i]
			if r.cfg.WOFF2 {
				name = strings.TrimSuffix(name, ".ttf") + ".woff2"
			}
			files[i] = File{Name: name, Data: data}
		}
		return files, nil

	case collection:
		fonts := make([]*ot.Font, len(r.fonts))
		for i, data := range r.fonts {
			f, err := ot.ParseFont(data, 0)
			if err != nil {
				return nil, fmt.Errorf("font %d: %w", i, err)
			}
			fonts[i] = f
		}
		data, err := ttc.Build(fonts)
		if err != nil {
			return nil, err
		}
		return []File{{Data: data}}, nil

	default:
		data := r.fonts[0]
		if r.cfg.WOFF2 {
			var err error
			if data, err = woff2.Encode(data); err != nil {
				return nil, err
			}
		}
		return []File{{Data: data}}, nil
	}
}

// subset keeps the glyphs of the annotators' ranges in a rewritten font.
func (r *Run) subset(data []byte, annotators []ruby.Annotator) ([]byte, error) {
	font, err := ot.ParseFont(data, 0)
	if err != nil {
		return nil, err
	}
	base, err := outline.Open(r.cfg.Rewriter.Engine, data, 0)
	if err != nil {
		return nil, err
	}

	input := subset.NewInput()
	for _, a := range annotators {
		for _, rg := range a.Ranges() {
			input.AddUnicodeRange(rg.Lo, rg.Hi)
		}
	}
	plan, err := subset.CreatePlan(font, base.NewFace(), input)
	if err != nil {
		return nil, err
	}
	return plan.Execute()
}

// SplitNames returns the file names of the n members of a collection:
// the PostScript name of the source font with a .ttf extension, or
// font-<index>.ttf when the name is missing, unusable as a file name, or
// already taken by an earlier member.
func SplitNames(collection []byte, n int) []string {
	names := make([]string, n)
	c, err := sfnt.ParseCollection(collection)
	if err != nil {
		rubyfont.Logger().Debug("pipeline: no PostScript names", "err", err)
	}
	seen := make(map[string]bool)
	for i := range names {
		names[i] = fmt.Sprintf("font-%d.ttf", i)
		if c == nil || i >= c.NumFonts() {
			continue
		}
		f, err := c.Font(i)
		if err != nil {
			continue
		}
		ps, err := f.Name(nil, sfnt.NameIDPostScript)
		if err != nil || ps == "" || ps == "." || ps == ".." || strings.ContainsAny(ps, "/\\:\x00") {
			continue
		}
		if name := ps + ".ttf"; !seen[name] {
			names[i] = name
			seen[name] = true
		}
	}
	return names
}
