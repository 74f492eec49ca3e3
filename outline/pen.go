// Package outline draws glyph outlines from a font engine into portable
// paths and provides the path geometry needed to place and re-encode them.
//
// Coordinates are font design units with the Y axis pointing up. Paths are
// seehuhn.de/go/geom path.Data values and may hold several subpaths.
package outline

import (
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// Pen receives the drawing operations of one glyph.
type Pen interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadTo(cx, cy, x, y float64)
	CubeTo(c1x, c1y, c2x, c2y, x, y float64)
	Close()
}

// PathPen records pen operations into a path, in call order and without
// validation.
type PathPen struct {
	Path *path.Data
}

// NewPathPen returns a pen drawing into a new empty path.
func NewPathPen() *PathPen {
	return &PathPen{Path: &path.Data{}}
}

// MoveTo starts a new subpath.
func (p *PathPen) MoveTo(x, y float64) {
	p.Path.MoveTo(vec.Vec2{X: x, Y: y})
}

// LineTo appends a straight segment.
func (p *PathPen) LineTo(x, y float64) {
	p.Path.LineTo(vec.Vec2{X: x, Y: y})
}

// QuadTo appends a quadratic Bézier segment.
func (p *PathPen) QuadTo(cx, cy, x, y float64) {
	p.Path.QuadTo(vec.Vec2{X: cx, Y: cy}, vec.Vec2{X: x, Y: y})
}

// CubeTo appends a cubic Bézier segment.
func (p *PathPen) CubeTo(c1x, c1y, c2x, c2y, x, y float64) {
	p.Path.CubeTo(vec.Vec2{X: c1x, Y: c1y}, vec.Vec2{X: c2x, Y: c2y}, vec.Vec2{X: x, Y: y})
}

// Close closes the current subpath.
func (p *PathPen) Close() {
	p.Path.Close()
}

// Reset empties the path, keeping its storage.
func (p *PathPen) Reset() {
	p.Path.Cmds = p.Path.Cmds[:0]
	p.Path.Coords = p.Path.Coords[:0]
}

// contourPen closes every contour of an engine that only reports
// MoveTo/LineTo/QuadTo/CubeTo: before the next MoveTo and at the end of the
// glyph.
type contourPen struct {
	Pen
	open bool
}

func (c *contourPen) MoveTo(x, y float64) {
	if c.open {
		c.Pen.Close()
	}
	c.Pen.MoveTo(x, y)
	c.open = true
}

func (c *contourPen) finish() {
	if c.open {
		c.Pen.Close()
		c.open = false
	}
}
