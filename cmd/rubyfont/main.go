// Command rubyfont bakes pinyin or romaji annotations into the glyphs of
// CJK fonts.
//
// Usage:
//
//	rubyfont [flags] <input|glob>...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/boxesandglue/rubyfont"
	"github.com/boxesandglue/rubyfont/ot"
	"github.com/boxesandglue/rubyfont/outline"
	"github.com/boxesandglue/rubyfont/pipeline"
	"github.com/boxesandglue/rubyfont/rewrite"
	"github.com/boxesandglue/rubyfont/ruby"
)

// kinds collects repeated -kind flags.
type kinds []string

func (k *kinds) String() string { return strings.Join(*k, ",") }

func (k *kinds) Set(s string) error {
	*k = append(*k, s)
	return nil
}

type options struct {
	output         string
	annotationFont string
	kinds          kinds
	opts           ruby.Options
	position       string
	subset         bool
	split          bool
	woff2          bool
	name           string
	engine         string
	workers        int
	twoPass        bool
	fixChecksum    bool
	verbose        bool
}

func main() {
	initDisplay()

	var o options
	def := ruby.DefaultOptions()
	flag.StringVar(&o.output, "o", "", "output file, or directory for several inputs or -split")
	flag.StringVar(&o.annotationFont, "annotation-font", "", "font used to draw annotations (default: the input font)")
	flag.Var(&o.kinds, "kind", "annotation kind: pinyin or romaji (repeatable, default pinyin)")
	flag.StringVar(&o.position, "position", def.Position.String(), "top, bottom, left-down, left-up, right-down or right-up")
	flag.Float64Var(&o.opts.Scale, "scale", def.Scale, "annotation size as a fraction of the em")
	flag.Float64Var(&o.opts.Gutter, "gutter", 0, "gap between glyph and annotation, in em")
	flag.Float64Var(&o.opts.BaselineOffset, "baseline-offset", 0, "extra distance of the shared baseline, in em")
	flag.BoolVar(&o.opts.Tight, "tight", false, "place each annotation against its own glyph")
	flag.BoolVar(&o.twoPass, "two-pass", false, "measure all glyphs first so a font shares one baseline")
	flag.StringVar(&o.opts.Delimiter, "delimiter", "", "split annotation text into parts at this string")
	flag.Float64Var(&o.opts.Spacing, "spacing", 0, "gap between annotation parts, in em")
	flag.BoolVar(&o.subset, "subset", false, "keep only the glyphs of the annotated ranges")
	flag.BoolVar(&o.split, "split", false, "write collection members as separate files")
	flag.BoolVar(&o.woff2, "woff2", false, "write WOFF2 (collections require -split)")
	flag.StringVar(&o.name, "name", "", "replace the font name")
	flag.StringVar(&o.engine, "engine", outline.GoText.String(), "outline engine: gotext or ximage")
	flag.IntVar(&o.workers, "workers", 0, "fonts processed in parallel (default GOMAXPROCS)")
	flag.BoolVar(&o.fixChecksum, "fix-checksum", false, "store a valid head checksumAdjustment")
	flag.BoolVar(&o.verbose, "v", false, "debug logging to stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <input|glob>...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if o.verbose {
		rubyfont.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	if len(o.kinds) == 0 {
		o.kinds = kinds{"pinyin"}
	}

	if err := run(o, flag.Args()); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " !  ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

func run(o options, args []string) error {
	if o.output == "" {
		return errors.New("missing -o")
	}
	inputs, err := expand(args)
	if err != nil {
		return err
	}

	pos, err := ruby.ParsePosition(o.position)
	if err != nil {
		return err
	}
	o.opts.Position = pos
	engine, err := outline.ParseEngine(o.engine)
	if err != nil {
		return err
	}
	if _, err := annotators(o, nil); err != nil {
		return err
	}

	var annotationFont outline.Font
	if o.annotationFont != "" {
		data, err := os.ReadFile(o.annotationFont)
		if err != nil {
			return err
		}
		if annotationFont, err = outline.Open(engine, data, 0); err != nil {
			return fmt.Errorf("%s: %w", o.annotationFont, err)
		}
	}

	toDir := len(inputs) > 1 || o.split
	if toDir {
		if err := os.MkdirAll(o.output, 0o755); err != nil {
			return err
		}
	}

	// output path -> input that produced it
	written := make(map[string]string)
	for _, input := range inputs {
		data, err := os.ReadFile(input)
		if err != nil {
			return err
		}

		cfg := pipeline.Config{
			Rewriter: rewrite.Rewriter{
				Engine:      engine,
				Name:        o.name,
				TwoPass:     o.twoPass,
				FixChecksum: o.fixChecksum,
			},
			Subset:  o.subset,
			Split:   o.split,
			WOFF2:   o.woff2,
			Workers: o.workers,
		}
		if annotationFont != nil {
			if cfg.Rewriter.Annotators, err = annotators(o, annotationFont); err != nil {
				return err
			}
		} else {
			// each font of the input annotates itself
			cfg.AnnotatorsFor = func(index int) ([]ruby.Annotator, error) {
				ann, err := outline.Open(engine, data, index)
				if err != nil {
					return nil, err
				}
				return annotators(o, ann)
			}
		}

		files, err := process(input, cfg, data)
		if err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}

		dsts := make([]string, len(files))
		for i, f := range files {
			dsts[i] = o.output
			if toDir {
				dsts[i] = filepath.Join(o.output, outputName(input, f, o.woff2, ot.IsCollection(data)))
			}
			if prev, ok := written[dsts[i]]; ok {
				return fmt.Errorf("%s: output %s was already written for %s", input, dsts[i], prev)
			}
			written[dsts[i]] = input
		}
		for i, f := range files {
			if err := os.WriteFile(dsts[i], f.Data, 0o644); err != nil {
				return err
			}
			pterm.Success.Printfln("%s (%d bytes)", dsts[i], len(f.Data))
		}
	}
	return nil
}

// annotators returns one annotator per requested kind, drawing with font.
func annotators(o options, font outline.Font) ([]ruby.Annotator, error) {
	out := make([]ruby.Annotator, len(o.kinds))
	for i, kind := range o.kinds {
		a, err := ruby.New(kind, font, o.opts)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

// process runs the pipeline for one input and shows its progress.
func process(input string, cfg pipeline.Config, data []byte) ([]pipeline.File, error) {
	r := pipeline.NewRun(cfg, data)
	defer r.Release()

	bar, err := pterm.DefaultProgressbar.WithTotal(1000).WithTitle(filepath.Base(input)).Start()
	if err != nil {
		return nil, err
	}
	done, stopped := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(stopped)
		tick := time.NewTicker(100 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				if n := int(r.Progress.Fraction()*1000) - bar.Current; n > 0 {
					bar.Add(n)
				}
			}
		}
	}()

	files, err := r.Execute(context.Background())
	close(done)
	<-stopped
	if err == nil {
		bar.Add(bar.Total - bar.Current)
	}
	_, _ = bar.Stop()
	if err != nil {
		return nil, err
	}
	pterm.Info.Printfln("%s: %d fonts, %d glyphs",
		input, r.Progress.FontsDone.Load(), r.Progress.GlyphsDone.Load())
	return files, nil
}

// expand resolves glob patterns. A pattern without a match is an error.
func expand(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, errors.New("no input files")
	}
	var out []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no file matches %q", pattern)
		}
		out = append(out, matches...)
	}
	return out, nil
}

// outputName names a file written into the output directory.
func outputName(input string, f pipeline.File, woff2, collection bool) string {
	if f.Name != "" {
		return f.Name
	}
	base := filepath.Base(input)
	var ext string
	switch {
	case woff2:
		ext = ".woff2"
	case collection:
		ext = ".ttc"
	default:
		ext = ".ttf"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}
