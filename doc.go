// Package rubyfont rewrites fonts so that phonetic ruby annotations such as
// pinyin or romaji become part of the glyph outlines of Han and kana
// characters.
//
// The work is split over several packages:
//
//   - ot reads and writes sfnt binaries (table directories, glyf/loca, head, name)
//   - outline draws glyphs into paths through go-text or x/image
//   - ruby places annotation glyphs around a base glyph
//   - rewrite rebuilds the outline tables of one font
//   - ttc packs rewritten fonts into a collection with shared outline tables
//   - subset and woff2 reduce and compress the result
//   - pipeline drives a whole run, in parallel across collection members
//
// The root package only holds the shared logger.
package rubyfont
