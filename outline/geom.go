package outline

import (
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"github.com/boxesandglue/rubyfont/ot"
)

// DefaultTolerance is the maximum distance, in font units, between a cubic
// segment and its quadratic approximation.
const DefaultTolerance = 0.5

// IsEmpty reports whether the path has no commands.
func IsEmpty(p *path.Data) bool {
	return p == nil || len(p.Cmds) == 0
}

// Bounds returns the exact bounding box of the path, taking curve extrema
// into account rather than control points. ok is false for an empty path.
func Bounds(p *path.Data) (r rect.Rect, ok bool) {
	if IsEmpty(p) {
		return rect.Rect{}, false
	}

	first := true
	add := func(v vec.Vec2) {
		if first {
			r = rect.Rect{LLx: v.X, LLy: v.Y, URx: v.X, URy: v.Y}
			first = false
			return
		}
		r.LLx, r.URx = min(r.LLx, v.X), max(r.URx, v.X)
		r.LLy, r.URy = min(r.LLy, v.Y), max(r.URy, v.Y)
	}

	var current, start vec.Vec2
	i := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			current = p.Coords[i]
			start = current
			add(current)
			i++
		case path.CmdLineTo:
			current = p.Coords[i]
			add(current)
			i++
		case path.CmdQuadTo:
			c, end := p.Coords[i], p.Coords[i+1]
			for _, t := range quadExtrema(current, c, end) {
				add(quadAt(current, c, end, t))
			}
			add(end)
			current = end
			i += 2
		case path.CmdCubeTo:
			c1, c2, end := p.Coords[i], p.Coords[i+1], p.Coords[i+2]
			for _, t := range cubicExtrema(current, c1, c2, end) {
				add(cubicAt(current, c1, c2, end, t))
			}
			add(end)
			current = end
			i += 3
		case path.CmdClose:
			current = start
		}
	}
	return r, !first
}

// YExtent returns the smallest and largest Y coordinate of all points of
// the path, control points included. ok is false when there are no points.
func YExtent(p *path.Data) (minY, maxY float64, ok bool) {
	if p == nil || len(p.Coords) == 0 {
		return 0, 0, false
	}
	minY, maxY = p.Coords[0].Y, p.Coords[0].Y
	for _, c := range p.Coords[1:] {
		minY, maxY = min(minY, c.Y), max(maxY, c.Y)
	}
	return minY, maxY, true
}

// AppendTransformed appends every command of src to dst with its
// coordinates mapped through m. Subpaths are preserved.
func AppendTransformed(dst, src *path.Data, m matrix.Matrix) {
	dst.Cmds = append(dst.Cmds, src.Cmds...)
	for _, c := range src.Coords {
		dst.Coords = append(dst.Coords, vec.Vec2{
			X: m[0]*c.X + m[2]*c.Y + m[4],
			Y: m[1]*c.X + m[3]*c.Y + m[5],
		})
	}
}

// Quadratic returns p with every cubic segment replaced by quadratic
// segments within tolerance. A path without cubics is returned unchanged.
func Quadratic(p *path.Data, tolerance float64) *path.Data {
	hasCubic := false
	for _, cmd := range p.Cmds {
		if cmd == path.CmdCubeTo {
			hasCubic = true
			break
		}
	}
	if !hasCubic {
		return p
	}

	out := &path.Data{
		Cmds:   make([]path.Command, 0, len(p.Cmds)),
		Coords: make([]vec.Vec2, 0, len(p.Coords)),
	}
	var current, start vec.Vec2
	i := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			current = p.Coords[i]
			start = current
			out.MoveTo(current)
			i++
		case path.CmdLineTo:
			current = p.Coords[i]
			out.LineTo(current)
			i++
		case path.CmdQuadTo:
			out.QuadTo(p.Coords[i], p.Coords[i+1])
			current = p.Coords[i+1]
			i += 2
		case path.CmdCubeTo:
			cubicToQuads(current, p.Coords[i], p.Coords[i+1], p.Coords[i+2], tolerance, func(c, end vec.Vec2) {
				out.QuadTo(c, end)
			})
			current = p.Coords[i+2]
			i += 3
		case path.CmdClose:
			out.Close()
			current = start
		}
	}
	return out
}

// Contours converts p to TrueType contours, rounding to whole font units.
// Cubic segments are approximated with DefaultTolerance. Every subpath is
// one contour; a closing point equal to the start point is dropped.
func Contours(p *path.Data) ([]ot.Contour, error) {
	if IsEmpty(p) {
		return nil, nil
	}
	p = Quadratic(p, DefaultTolerance)

	var (
		contours []ot.Contour
		cur      ot.Contour
		err      error
	)
	point := func(v vec.Vec2, on bool) {
		x, y := math.Round(v.X), math.Round(v.Y)
		if x < math.MinInt16 || x > math.MaxInt16 || y < math.MinInt16 || y > math.MaxInt16 {
			err = ErrCoordinateRange
			return
		}
		cur = append(cur, ot.Point{X: int16(x), Y: int16(y), OnCurve: on})
	}
	flush := func() {
		if n := len(cur); n > 1 && cur[n-1] == cur[0] && cur[0].OnCurve {
			cur = cur[:n-1]
		}
		if len(cur) > 0 {
			contours = append(contours, cur)
		}
		cur = nil
	}

	i := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			flush()
			point(p.Coords[i], true)
			i++
		case path.CmdLineTo:
			point(p.Coords[i], true)
			i++
		case path.CmdQuadTo:
			point(p.Coords[i], false)
			point(p.Coords[i+1], true)
			i += 2
		case path.CmdClose:
			flush()
		}
		if err != nil {
			return nil, err
		}
	}
	flush()
	return contours, nil
}

func quadAt(p0, c, p1 vec.Vec2, t float64) vec.Vec2 {
	u := 1 - t
	return vec.Vec2{
		X: u*u*p0.X + 2*u*t*c.X + t*t*p1.X,
		Y: u*u*p0.Y + 2*u*t*c.Y + t*t*p1.Y,
	}
}

func cubicAt(p0, c1, c2, p1 vec.Vec2, t float64) vec.Vec2 {
	u := 1 - t
	a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
	return vec.Vec2{
		X: a*p0.X + b*c1.X + c*c2.X + d*p1.X,
		Y: a*p0.Y + b*c1.Y + c*c2.Y + d*p1.Y,
	}
}

// quadExtrema returns the parameters in (0, 1) where the derivative of a
// quadratic segment vanishes in x or y.
func quadExtrema(p0, c, p1 vec.Vec2) []float64 {
	var ts []float64
	for _, axis := range [2][3]float64{{p0.X, c.X, p1.X}, {p0.Y, c.Y, p1.Y}} {
		den := axis[0] - 2*axis[1] + axis[2]
		if den == 0 {
			continue
		}
		if t := (axis[0] - axis[1]) / den; t > 0 && t < 1 {
			ts = append(ts, t)
		}
	}
	return ts
}

// cubicExtrema returns the parameters in (0, 1) where the derivative of a
// cubic segment vanishes in x or y.
func cubicExtrema(p0, c1, c2, p1 vec.Vec2) []float64 {
	var ts []float64
	for _, axis := range [2][4]float64{{p0.X, c1.X, c2.X, p1.X}, {p0.Y, c1.Y, c2.Y, p1.Y}} {
		// B'(t)/3 = a t² + b t + c
		a := -axis[0] + 3*axis[1] - 3*axis[2] + axis[3]
		b := 2 * (axis[0] - 2*axis[1] + axis[2])
		c := axis[1] - axis[0]
		for _, t := range solveQuadratic(a, b, c) {
			if t > 0 && t < 1 {
				ts = append(ts, t)
			}
		}
	}
	return ts
}

func solveQuadratic(a, b, c float64) []float64 {
	const eps = 1e-12
	if math.Abs(a) < eps {
		if math.Abs(b) < eps {
			return nil
		}
		return []float64{-c / b}
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	return []float64{(-b + sq) / (2 * a), (-b - sq) / (2 * a)}
}

// cubicToQuads approximates a cubic segment with n quadratic pieces, n
// chosen from the error bound of the midpoint approximation, which
// shrinks with n³.
func cubicToQuads(p0, c1, c2, p1 vec.Vec2, tolerance float64, emit func(c, end vec.Vec2)) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	dx := p1.X - 3*c2.X + 3*c1.X - p0.X
	dy := p1.Y - 3*c2.Y + 3*c1.Y - p0.Y
	errBound := math.Sqrt(3) / 36 * math.Hypot(dx, dy)
	n := int(math.Ceil(math.Cbrt(errBound / tolerance)))
	n = min(max(n, 1), 64)

	for i := 0; i < n; i++ {
		// split off the first 1/(n-i) of what is left
		t := 1 / float64(n-i)
		q0, q1, q2, q3 := p0, c1, c2, p1
		if i < n-1 {
			var rest [4]vec.Vec2
			q0, q1, q2, q3, rest = splitCubic(p0, c1, c2, p1, t)
			p0, c1, c2, p1 = rest[0], rest[1], rest[2], rest[3]
		}
		ctrl := vec.Vec2{
			X: (3*(q1.X+q2.X) - q0.X - q3.X) / 4,
			Y: (3*(q1.Y+q2.Y) - q0.Y - q3.Y) / 4,
		}
		emit(ctrl, q3)
	}
}

// splitCubic splits a cubic segment at t with de Casteljau's algorithm.
func splitCubic(p0, c1, c2, p1 vec.Vec2, t float64) (a0, a1, a2, a3 vec.Vec2, rest [4]vec.Vec2) {
	lerp := func(a, b vec.Vec2) vec.Vec2 {
		return vec.Vec2{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
	}
	m01, m12, m23 := lerp(p0, c1), lerp(c1, c2), lerp(c2, p1)
	m012, m123 := lerp(m01, m12), lerp(m12, m23)
	mid := lerp(m012, m123)
	return p0, m01, m012, mid, [4]vec.Vec2{mid, m123, m23, p1}
}
