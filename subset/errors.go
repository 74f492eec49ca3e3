package subset

import "errors"

var (
	// ErrMissingTable is returned when a required table is missing.
	ErrMissingTable = errors.New("subset: required table missing")

	// ErrInvalidGlyph is returned for invalid glyph references.
	ErrInvalidGlyph = errors.New("subset: invalid glyph reference")
)
