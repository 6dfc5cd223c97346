package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// PlanarPose is the position and heading of a ground robot. Yaw is in radians in (-π, π].
type PlanarPose struct {
	Position r2.Point
	Yaw      float64
}

// NewPlanarPose projects a 3D position and orientation onto the ground plane. Only the yaw
// component of the orientation is kept.
func NewPlanarPose(position r3.Vector, orientation Orientation) PlanarPose {
	return PlanarPose{
		Position: r2.Point{X: position.X, Y: position.Y},
		Yaw:      orientation.EulerAngles().Yaw,
	}
}

// DistanceTo returns the straight-line distance from the pose's position to point.
func (p PlanarPose) DistanceTo(point r2.Point) float64 {
	return p.Position.Sub(point).Norm()
}

// FoldAngle brings an angle that overshoots [-π, π] back into range by adding or subtracting one
// full turn. Inputs more than one turn out of range remain out of range.
func FoldAngle(theta float64) float64 {
	switch {
	case theta > math.Pi:
		return theta - 2*math.Pi
	case theta < -math.Pi:
		return theta + 2*math.Pi
	default:
		return theta
	}
}

// WrapAngle maps any finite angle into [-π, π].
func WrapAngle(theta float64) float64 {
	return math.Remainder(theta, 2*math.Pi)
}
