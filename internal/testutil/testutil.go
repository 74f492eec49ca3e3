// Package testutil provides utilities for testing.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// FindTestFont locates an optional test font by name, such as a CJK font
// dropped into testdata/fonts. It returns "" when the font is missing.
func FindTestFont(name string) string {
	// Get the directory of this source file
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}

	// Navigate from internal/testutil to the module root
	moduleRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")

	candidates := []string{
		filepath.Join(moduleRoot, "testdata", "fonts", name),
		filepath.Join(moduleRoot, "testdata", name),
	}
	if dir := os.Getenv("RUBYFONT_TEST_FONTS"); dir != "" {
		candidates = append([]string{filepath.Join(dir, name)}, candidates...)
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// GoRegular returns a fresh copy of the Go Regular TrueType font.
func GoRegular() []byte {
	return append([]byte(nil), goregular.TTF...)
}

// GoMono returns a fresh copy of the Go Mono TrueType font.
func GoMono() []byte {
	return append([]byte(nil), gomono.TTF...)
}
