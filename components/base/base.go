// Package base defines a mobile base that is driven by planar velocity commands.
package base

import (
	"context"
	"fmt"

	"github.com/golang/geo/r3"
)

// A Base represents a physical base of a robot.
type Base interface {
	// SetVelocity commands the base to move at the given velocities. Linear is in meters per
	// second along the body X axis, angular is in radians per second about the body Z axis.
	SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error

	// Stop stops the base. It is assumed the base stops immediately.
	Stop(ctx context.Context, extra map[string]interface{}) error

	// IsMoving reports whether the last command sent to the base was non-zero.
	IsMoving(ctx context.Context) (bool, error)

	Close(ctx context.Context) error
}

// VelocityCommand is a unicycle command: a forward speed and a yaw rate.
type VelocityCommand struct {
	Linear  float64 `json:"linear"`
	Angular float64 `json:"angular"`
}

// IsZero reports whether the command asks the base to hold still.
func (c VelocityCommand) IsZero() bool {
	return c.Linear == 0 && c.Angular == 0
}

// Vectors returns the command in body-frame vectors, as accepted by SetVelocity.
func (c VelocityCommand) Vectors() (linear, angular r3.Vector) {
	return r3.Vector{X: c.Linear}, r3.Vector{Z: c.Angular}
}

func (c VelocityCommand) String() string {
	return fmt.Sprintf("linear=%.4f m/s angular=%.4f rad/s", c.Linear, c.Angular)
}

// CommandFromVectors is the inverse of VelocityCommand.Vectors. Components other than X of
// linear and Z of angular are ignored.
func CommandFromVectors(linear, angular r3.Vector) VelocityCommand {
	return VelocityCommand{Linear: linear.X, Angular: angular.Z}
}

// Send hands a command to the base.
func Send(ctx context.Context, b Base, cmd VelocityCommand, extra map[string]interface{}) error {
	linear, angular := cmd.Vectors()
	return b.SetVelocity(ctx, linear, angular, extra)
}
