package geometry

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Coord is a named point in 2D space.
type Coord struct {
	X    float64
	Y    float64
	Name string
}

// GradientTo returns the gradient between c and other. ok is false for a
// vertical run.
func (c Coord) GradientTo(other Coord) (float64, bool) {
	run := other.X - c.X
	if run == 0 {
		return 0, false
	}
	return (other.Y - c.Y) / run, true
}

// Line is a line in the form y = Gradient*x + Intercept.
type Line struct {
	Gradient  float64
	Intercept float64
}

// FindYAtX evaluates the line at x.
func (l Line) FindYAtX(x float64) float64 {
	return l.Gradient*x + l.Intercept
}

// FindXAtY inverts the line. ok is false when the gradient is zero.
func (l Line) FindXAtY(y float64) (float64, bool) {
	if l.Gradient == 0 {
		return 0, false
	}
	return (y - l.Intercept) / l.Gradient, true
}

// FindInterceptOnLine returns the point where l crosses other. ok is false
// for parallel lines, identical lines included.
func (l Line) FindInterceptOnLine(other Line) (Coord, bool) {
	if l.Gradient == other.Gradient {
		return Coord{}, false
	}
	x := (l.Intercept - other.Intercept) / (other.Gradient - l.Gradient)
	return Coord{X: x, Y: l.FindYAtX(x)}, true
}

// Intercept is a crossing between the lines at indices I and J of a Lines
// collection.
type Intercept struct {
	I, J  int
	Point Coord
}

// Segment is a stretch of the x axis on which line Index is the lowest.
type Segment struct {
	Index    int
	From, To float64
}

// Lines is an ordered collection of lines.
type Lines []Line

// Intercepts returns every pairwise crossing, parallel pairs skipped.
func (ls Lines) Intercepts() []Intercept {
	var out []Intercept
	for i := range ls {
		for j := i + 1; j < len(ls); j++ {
			if p, ok := ls[i].FindInterceptOnLine(ls[j]); ok {
				out = append(out, Intercept{I: i, J: j, Point: p})
			}
		}
	}
	return out
}

// Cheapest returns the index of the lowest line at x. Ties resolve to the
// first line.
func (ls Lines) Cheapest(x float64) int {
	ys := make([]float64, len(ls))
	for i, l := range ls {
		ys[i] = l.FindYAtX(x)
	}
	return floats.MinIdx(ys)
}

// LowerEnvelope splits [lo, hi] into segments labelled with the lowest line.
// Adjacent segments always carry different indices.
func (ls Lines) LowerEnvelope(lo, hi float64) []Segment {
	if len(ls) == 0 || hi <= lo {
		return nil
	}
	breaks := []float64{lo, hi}
	for _, ic := range ls.Intercepts() {
		if ic.Point.X > lo && ic.Point.X < hi {
			breaks = append(breaks, ic.Point.X)
		}
	}
	sort.Float64s(breaks)

	var segs []Segment
	for k := 0; k+1 < len(breaks); k++ {
		from, to := breaks[k], breaks[k+1]
		if to == from {
			continue
		}
		idx := ls.Cheapest((from + to) / 2)
		if n := len(segs); n > 0 && segs[n-1].Index == idx {
			segs[n-1].To = to
			continue
		}
		segs = append(segs, Segment{Index: idx, From: from, To: to})
	}
	return segs
}
