// Package movementsensor defines the interface of a sensor reporting where a base is and which way it faces.
package movementsensor

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/waypointdrive/spatialmath"
)

var (
	// ErrMethodUnimplementedPosition returns error if the Position method is unimplemented.
	ErrMethodUnimplementedPosition = errors.New("Position Unimplemented")
	// ErrMethodUnimplementedOrientation returns error if the Orientation method is unimplemented.
	ErrMethodUnimplementedOrientation = errors.New("Orientation Unimplemented")
	// ErrNoReading is returned by sensors that have not produced their first reading yet.
	ErrNoReading = errors.New("no reading yet")
)

// A MovementSensor reports the position and orientation of a base in its odometry frame.
type MovementSensor interface {
	// Position returns the location of the base in meters.
	Position(ctx context.Context, extra map[string]interface{}) (r3.Vector, error)
	// Orientation returns the attitude of the base.
	Orientation(ctx context.Context, extra map[string]interface{}) (spatialmath.Orientation, error)
}

// PlanarPose reads both the position and orientation from a sensor and projects them onto the
// ground plane.
func PlanarPose(ctx context.Context, ms MovementSensor, extra map[string]interface{}) (spatialmath.PlanarPose, error) {
	pos, err := ms.Position(ctx, extra)
	if err != nil {
		return spatialmath.PlanarPose{}, errors.Wrap(err, "reading position")
	}
	ori, err := ms.Orientation(ctx, extra)
	if err != nil {
		return spatialmath.PlanarPose{}, errors.Wrap(err, "reading orientation")
	}
	return spatialmath.NewPlanarPose(pos, ori), nil
}

// Readings is a helper for getting all readings from a MovementSensor.
func Readings(ctx context.Context, ms MovementSensor, extra map[string]interface{}) (map[string]interface{}, error) {
	readings := map[string]interface{}{}

	pos, err := ms.Position(ctx, extra)
	if err != nil {
		if !errors.Is(err, ErrMethodUnimplementedPosition) {
			return nil, err
		}
	} else {
		readings["position"] = pos
	}

	ori, err := ms.Orientation(ctx, extra)
	if err != nil {
		if !errors.Is(err, ErrMethodUnimplementedOrientation) {
			return nil, err
		}
	} else {
		readings["orientation"] = ori
	}

	return readings, nil
}
