// Package fake implements a simulated base that integrates the velocities it is given.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/waypointdrive/components/base"
	"go.viam.com/waypointdrive/components/movementsensor"
	"go.viam.com/waypointdrive/logging"
	"go.viam.com/waypointdrive/spatialmath"
)

// ErrClosed is returned by every method of a closed base.
var ErrClosed = errors.New("fake base is closed")

var (
	_ base.Base                     = (*Base)(nil)
	_ movementsensor.MovementSensor = (*Base)(nil)
)

// Base is a unicycle that moves exactly as commanded. It doubles as the movement sensor
// reporting its own pose.
type Base struct {
	clk    clock.Clock
	logger logging.Logger

	mu         sync.Mutex
	pose       spatialmath.PlanarPose
	current    base.VelocityCommand
	lastUpdate time.Time
	traveled   float64
	commands   []base.VelocityCommand
	stopCount  int
	closed     bool

	// CloseCount is incremented on every Close call.
	CloseCount int
}

// NewBase returns a simulated base at rest at the given pose.
func NewBase(clk clock.Clock, start spatialmath.PlanarPose, logger logging.Logger) *Base {
	if clk == nil {
		clk = clock.New()
	}
	return &Base{
		clk:        clk,
		logger:     logger,
		pose:       start,
		lastUpdate: clk.Now(),
	}
}

// integrate advances the pose to now under the current command. Must hold mu.
func (b *Base) integrate() {
	now := b.clk.Now()
	dt := now.Sub(b.lastUpdate).Seconds()
	b.lastUpdate = now
	if dt <= 0 {
		return
	}

	v, w := b.current.Linear, b.current.Angular
	theta := b.pose.Yaw
	var delta r2.Point
	if w == 0 {
		delta = r2.Point{X: v * dt * math.Cos(theta), Y: v * dt * math.Sin(theta)}
	} else {
		radius := v / w
		next := theta + w*dt
		delta = r2.Point{
			X: radius * (math.Sin(next) - math.Sin(theta)),
			Y: -radius * (math.Cos(next) - math.Cos(theta)),
		}
		b.pose.Yaw = spatialmath.WrapAngle(next)
	}
	b.pose.Position = b.pose.Position.Add(delta)
	b.traveled += math.Abs(v) * dt
}

// SetVelocity integrates the pose up to now, then applies the new command.
func (b *Base) SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	b.integrate()
	b.current = base.CommandFromVectors(linear, angular)
	b.commands = append(b.commands, b.current)
	if b.logger != nil {
		b.logger.CDebugw(ctx, "fake base velocity", "linear", b.current.Linear, "angular", b.current.Angular)
	}
	return nil
}

// Stop halts the base in place.
func (b *Base) Stop(ctx context.Context, extra map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	b.integrate()
	b.current = base.VelocityCommand{}
	b.stopCount++
	return nil
}

// IsMoving reports whether the active command is non-zero.
func (b *Base) IsMoving(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.current.IsZero(), nil
}

// Close stops the base. Later calls to SetVelocity and Stop fail.
func (b *Base) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.integrate()
	b.current = base.VelocityCommand{}
	b.closed = true
	b.CloseCount++
	return nil
}

// Position returns the simulated position, with Z always 0.
func (b *Base) Position(ctx context.Context, extra map[string]interface{}) (r3.Vector, error) {
	pose := b.Pose()
	return r3.Vector{X: pose.Position.X, Y: pose.Position.Y}, nil
}

// Orientation returns the simulated heading as a rotation about Z.
func (b *Base) Orientation(ctx context.Context, extra map[string]interface{}) (spatialmath.Orientation, error) {
	return spatialmath.NewYawOrientation(b.Pose().Yaw), nil
}

// Pose returns the pose as of now.
func (b *Base) Pose() spatialmath.PlanarPose {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.integrate()
	return b.pose
}

// Traveled returns the total forward distance covered, in meters.
func (b *Base) Traveled() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.integrate()
	return b.traveled
}

// Commands returns every command passed to SetVelocity, oldest first.
func (b *Base) Commands() []base.VelocityCommand {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]base.VelocityCommand(nil), b.commands...)
}

// StopCount returns how many times Stop was called.
func (b *Base) StopCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopCount
}
