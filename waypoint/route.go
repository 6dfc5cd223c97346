// Package waypoint holds the fixed polyline a base drives along.
package waypoint

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrNoMoreSegments is returned when a segment index runs past the end of the route.
var ErrNoMoreSegments = errors.New("no more segments")

// A Segment is the straight span between two consecutive waypoints.
type Segment struct {
	Start r2.Point
	End   r2.Point
}

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 {
	return s.Delta().Norm()
}

// Delta returns End - Start.
func (s Segment) Delta() r2.Point {
	return s.End.Sub(s.Start)
}

// Route is an ordered, read-only list of at least two waypoints. The scale factor has already
// been applied to every waypoint.
type Route struct {
	points []r2.Point
	scale  float64
}

// NewRoute scales each point by `scale` and returns the resulting route.
func NewRoute(points []r2.Point, scale float64) (*Route, error) {
	if len(points) < 2 {
		return nil, errors.Errorf("a route needs at least 2 waypoints, got %d", len(points))
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, errors.Errorf("scale must be a positive finite number, got %v", scale)
	}
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, errors.Errorf("waypoint %d is not finite: (%v, %v)", i, p.X, p.Y)
		}
	}

	return &Route{
		points: lo.Map(points, func(p r2.Point, _ int) r2.Point { return p.Mul(scale) }),
		scale:  scale,
	}, nil
}

// FromPairs builds a route from [x, y] pairs as they appear in config files.
func FromPairs(pairs [][2]float64, scale float64) (*Route, error) {
	return NewRoute(lo.Map(pairs, func(p [2]float64, _ int) r2.Point {
		return r2.Point{X: p[0], Y: p[1]}
	}), scale)
}

// Len returns the number of waypoints.
func (r *Route) Len() int {
	return len(r.points)
}

// NumSegments returns the number of segments, Len()-1.
func (r *Route) NumSegments() int {
	return len(r.points) - 1
}

// Scale returns the factor that was applied at construction.
func (r *Route) Scale() float64 {
	return r.scale
}

// Waypoints returns a copy of the scaled waypoints.
func (r *Route) Waypoints() []r2.Point {
	return append([]r2.Point(nil), r.points...)
}

// Segment returns the span from waypoint i to waypoint i+1.
func (r *Route) Segment(i int) (Segment, error) {
	if !r.HasSegment(i) {
		return Segment{}, errors.Wrapf(ErrNoMoreSegments, "segment %d of %d", i, r.NumSegments())
	}
	return Segment{Start: r.points[i], End: r.points[i+1]}, nil
}

// HasSegment reports whether waypoints i and i+1 both exist.
func (r *Route) HasSegment(i int) bool {
	return i >= 0 && i+1 < len(r.points)
}

// Advance returns the index following i. The index itself is owned by the caller.
func (r *Route) Advance(i int) int {
	return i + 1
}

// TotalLength returns the summed length of every segment.
func (r *Route) TotalLength() float64 {
	total := 0.
	for i := 0; i < r.NumSegments(); i++ {
		total += r.points[i+1].Sub(r.points[i]).Norm()
	}
	return total
}

func (r *Route) String() string {
	return fmt.Sprintf("route(%d waypoints, scale %v)", len(r.points), r.scale)
}

// Pairs returns the scaled waypoints as [x, y] pairs, the form config files use.
func (r *Route) Pairs() [][2]float64 {
	return lo.Map(r.points, func(p r2.Point, _ int) [2]float64 {
		return [2]float64{p.X, p.Y}
	})
}

// Thin drops points closer than minSpacing to the last point kept. The first and last points are
// always kept, so a recorded track shrinks to a route a robot can follow.
func Thin(points []r2.Point, minSpacing float64) []r2.Point {
	if len(points) <= 2 || minSpacing <= 0 {
		return append([]r2.Point(nil), points...)
	}
	kept := []r2.Point{points[0]}
	for _, p := range points[1 : len(points)-1] {
		if p.Sub(kept[len(kept)-1]).Norm() >= minSpacing {
			kept = append(kept, p)
		}
	}
	last := points[len(points)-1]
	if len(kept) > 1 && last.Sub(kept[len(kept)-1]).Norm() < minSpacing {
		kept[len(kept)-1] = last
	} else {
		kept = append(kept, last)
	}
	return kept
}
