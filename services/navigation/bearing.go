package navigation

import (
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/waypointdrive/spatialmath"
	"go.viam.com/waypointdrive/utils"
)

// Bearing returns the heading of a segment with the given delta, in radians. In legacy mode an
// axis-aligned delta is fed through acos or asin of its non-zero component, which is only
// defined for unit length; the argument is clamped to [-1, 1] and clamped reports whether that
// happened. A zero delta has a legacy bearing of π/2.
func Bearing(delta r2.Point, mode BearingMode) (bearing float64, clamped bool) {
	if mode == BearingAtan2 {
		return math.Atan2(delta.Y, delta.X), false
	}

	switch {
	case delta.Y == 0:
		arg := utils.Clamp(delta.X, -1, 1)
		return math.Acos(arg), arg != delta.X
	case delta.X == 0:
		arg := utils.Clamp(delta.Y, -1, 1)
		return math.Asin(arg), arg != delta.Y
	default:
		return math.Atan2(delta.Y, delta.X), false
	}
}

// GoalYaw turns a segment bearing into an absolute heading in the frame of the first observed
// pose. The sum is folded into [-π, π] by at most one full turn.
func GoalYaw(bearing, frameYaw float64) float64 {
	return spatialmath.FoldAngle(bearing + frameYaw)
}
