package humanize

import (
	"math"
	"time"
)

// Point is a pointer coordinate in page space.
type Point struct {
	X float64
	Y float64
}

// Step is one intermediate pointer position plus the pause to apply before
// moving to the next one.
type Step struct {
	Pos   Point
	Pause time.Duration
}

// Path is a lazy, finite, one-shot sequence of pointer steps. Call Next
// until it reports done; a Path cannot be restarted.
type Path struct {
	from, to Point
	c1, c2   Point
	steps    int
	index    int
	minPause time.Duration
	maxPause time.Duration
}

const (
	// Pause bounds per step; the ease profile interpolates between them.
	pathMinPause = 4 * time.Millisecond
	pathMaxPause = 22 * time.Millisecond

	pathMinSteps = 12
	pathMaxSteps = 90
)

// PointerPath builds a pointer path from one coordinate to another along a
// cubic Bézier curve with two randomly perturbed control points. The step
// count scales with the path distance, and each step carries an
// ease-in/ease-out pause: slower near the endpoints, faster mid-path.
//
// The first step is exactly from and the last is exactly to.
func (e *Engine) PointerPath(from, to Point) *Path {
	dx := to.X - from.X
	dy := to.Y - from.Y
	dist := math.Hypot(dx, dy)

	steps := int(dist / 9)
	if steps < pathMinSteps {
		steps = pathMinSteps
	}
	if steps > pathMaxSteps {
		steps = pathMaxSteps
	}

	// Control points sit a third of the way along the straight line, each
	// displaced perpendicular to it by a random fraction of the distance.
	perturb := func(t float64) Point {
		mag := (e.float64n() - 0.5) * dist * 0.5
		return Point{
			X: from.X + dx*t - dy/math.Max(dist, 1)*mag,
			Y: from.Y + dy*t + dx/math.Max(dist, 1)*mag,
		}
	}

	return &Path{
		from:     from,
		to:       to,
		c1:       perturb(1.0 / 3.0),
		c2:       perturb(2.0 / 3.0),
		steps:    steps,
		minPause: pathMinPause,
		maxPause: pathMaxPause,
	}
}

// Next returns the next step of the path. ok is false once the path is
// exhausted.
func (p *Path) Next() (step Step, ok bool) {
	if p.index > p.steps {
		return Step{}, false
	}

	t := float64(p.index) / float64(p.steps)
	p.index++

	var pos Point
	switch {
	case t == 0:
		pos = p.from
	case t == 1:
		pos = p.to
	default:
		pos = cubicBezier(p.from, p.c1, p.c2, p.to, t)
	}

	// Ease profile: sin(pi*t) peaks mid-path, so the pause bottoms out
	// there and stretches toward both endpoints.
	ease := math.Sin(math.Pi * t)
	pause := p.maxPause - time.Duration(float64(p.maxPause-p.minPause)*ease)

	return Step{Pos: pos, Pause: pause}, true
}

// Len returns the total number of steps the path will emit.
func (p *Path) Len() int {
	return p.steps + 1
}

func cubicBezier(p0, p1, p2, p3 Point, t float64) Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}
