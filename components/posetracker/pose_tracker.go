// Package posetracker caches the most recent pose of the base. Feeds write into it from their own
// goroutines; the control loop reads the latest value once per tick.
package posetracker

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"go.uber.org/atomic"

	"go.viam.com/waypointdrive/spatialmath"
)

// A Sample is a raw pose as reported by a feed.
type Sample struct {
	Position    r3.Vector
	Orientation spatialmath.Orientation
}

// Pose projects the sample onto the ground plane. Only the yaw of the orientation is kept; a NaN
// orientation yields a NaN yaw.
func (s Sample) Pose() spatialmath.PlanarPose {
	orientation := s.Orientation
	if orientation == nil {
		orientation = spatialmath.NewZeroOrientation()
	}
	return spatialmath.NewPlanarPose(s.Position, orientation)
}

// A PoseSource returns the latest known pose, if any.
type PoseSource interface {
	Latest() (spatialmath.PlanarPose, bool)
	// LastSampleTime returns when the latest pose arrived, or the zero time if none has.
	LastSampleTime() time.Time
}

// Tracker holds the latest pose. The last write wins. Arrivals are stamped with the tracker's
// clock rather than the feed's, so their age can be compared against the control loop's clock.
type Tracker struct {
	clk      clock.Clock
	latest   atomic.Pointer[spatialmath.PlanarPose]
	received atomic.Uint64
	arrived  atomic.Time
}

var _ PoseSource = (*Tracker)(nil)

// NewTracker returns a tracker that has not seen a pose yet. A nil clock means the wall clock.
func NewTracker(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{clk: clk}
}

// Update replaces the cached pose with the given sample.
func (t *Tracker) Update(sample Sample) {
	pose := sample.Pose()
	t.latest.Store(&pose)
	t.received.Inc()
	t.arrived.Store(t.clk.Now())
}

// Latest returns the most recent pose, or false if no sample has arrived yet.
func (t *Tracker) Latest() (spatialmath.PlanarPose, bool) {
	pose := t.latest.Load()
	if pose == nil {
		return spatialmath.PlanarPose{}, false
	}
	return *pose, true
}

// Samples returns how many samples have been received.
func (t *Tracker) Samples() uint64 {
	return t.received.Load()
}

// LastSampleTime returns when the most recent sample arrived, by the tracker's clock.
func (t *Tracker) LastSampleTime() time.Time {
	return t.arrived.Load()
}
