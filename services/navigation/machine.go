package navigation

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/waypointdrive/components/base"
	"go.viam.com/waypointdrive/logging"
	"go.viam.com/waypointdrive/spatialmath"
	"go.viam.com/waypointdrive/waypoint"
)

// Machine is the motion state machine. It holds only immutable inputs, so Step is a function of
// its arguments.
type Machine struct {
	route  *waypoint.Route
	conf   Config
	logger logging.Logger
}

// NewMachine validates conf and returns a machine for route. Segments whose legacy bearing
// needs clamping are reported once here.
func NewMachine(route *waypoint.Route, conf Config, logger logging.Logger) (*Machine, error) {
	if route == nil {
		return nil, errors.New("a route is required")
	}
	if err := conf.Validate("navigation"); err != nil {
		return nil, err
	}
	m := &Machine{route: route, conf: conf.withDefaults(), logger: logger}

	if m.conf.BearingMode == BearingLegacy {
		// Segment 0 is never rotated onto; the robot starts facing it.
		for i := 1; i < route.NumSegments(); i++ {
			seg, err := route.Segment(i)
			if err != nil {
				return nil, err
			}
			if _, clamped := Bearing(seg.Delta(), BearingLegacy); clamped {
				logger.Warnw("segment bearing argument is outside [-1, 1] and will be clamped",
					"segment", i, "dx", seg.Delta().X, "dy", seg.Delta().Y)
			}
		}
	}
	return m, nil
}

// Route returns the route the machine follows.
func (m *Machine) Route() *waypoint.Route {
	return m.route
}

// Config returns the machine's tuning with defaults applied.
func (m *Machine) Config() Config {
	return m.conf
}

// Step advances the machine by one tick. pose is nil while no feedback has arrived. The returned
// command is nil when nothing should be sent to the base.
func (m *Machine) Step(cs ControllerState, pose *spatialmath.PlanarPose) (ControllerState, *base.VelocityCommand) {
	if pose != nil && cs.FrameYaw == nil && !math.IsNaN(pose.Yaw) {
		frameYaw := pose.Yaw
		cs.FrameYaw = &frameYaw
	}

	switch cs.State {
	case StateTranslate:
		return m.translate(cs, pose)
	case StateRotate:
		return m.rotate(cs, pose)
	default:
		return cs, nil
	}
}

// translate drives straight along the current segment. Finishing a segment always moves to Rotate,
// even after the last one; Rotate then finds no segment and halts on the next tick.
func (m *Machine) translate(cs ControllerState, pose *spatialmath.PlanarPose) (ControllerState, *base.VelocityCommand) {
	seg, err := m.route.Segment(cs.Index)
	if err != nil {
		cs.State = StateHalt
		cs.InitialPosition = nil
		return cs, nil
	}
	if pose == nil {
		return cs, &base.VelocityCommand{}
	}

	if cs.InitialPosition == nil {
		start := pose.Position
		cs.InitialPosition = &start
	}
	target := seg.Length()
	traveled := pose.Position.Sub(*cs.InitialPosition).Norm()

	switch {
	case math.IsNaN(traveled):
		// A pose with NaN coordinates tells us nothing about progress.
		return cs, &base.VelocityCommand{}
	case traveled < target:
		return cs, &base.VelocityCommand{Linear: m.conf.LinearSpeed}
	default:
		cs.InitialPosition = nil
		cs.Index = m.route.Advance(cs.Index)
		cs.State = StateRotate
		return cs, &base.VelocityCommand{}
	}
}

func (m *Machine) rotate(cs ControllerState, pose *spatialmath.PlanarPose) (ControllerState, *base.VelocityCommand) {
	seg, err := m.route.Segment(cs.Index)
	if err != nil {
		cs.State = StateHalt
		cs.InitialYaw = nil
		return cs, nil
	}
	if pose == nil || cs.FrameYaw == nil {
		return cs, nil
	}

	if cs.InitialYaw == nil {
		initialYaw := pose.Yaw
		cs.InitialYaw = &initialYaw
	}

	bearing, clamped := Bearing(seg.Delta(), m.conf.BearingMode)
	if clamped {
		m.logger.Debugw("clamped bearing argument", "segment", cs.Index, "bearing", bearing)
	}
	headingErr := HeadingError(GoalYaw(bearing, *cs.FrameYaw), pose.Yaw, m.conf.WrapHeadingError)

	switch {
	case math.IsNaN(headingErr):
		return cs, nil
	case math.Abs(headingErr) < m.conf.YawTolerance:
		cs.InitialYaw = nil
		cs.State = StateTranslate
		return cs, &base.VelocityCommand{}
	default:
		return cs, &base.VelocityCommand{Angular: m.conf.AngularGain * headingErr}
	}
}

// HeadingError returns goal - yaw, optionally wrapped into [-π, π].
func HeadingError(goal, yaw float64, wrap bool) float64 {
	diff := goal - yaw
	if wrap {
		return spatialmath.WrapAngle(diff)
	}
	return diff
}

// Remaining returns how far the current Translate phase still has to go, or 0 outside Translate.
func (m *Machine) Remaining(cs ControllerState, pose spatialmath.PlanarPose) float64 {
	if cs.State != StateTranslate || cs.InitialPosition == nil {
		return 0
	}
	seg, err := m.route.Segment(cs.Index)
	if err != nil {
		return 0
	}
	return math.Max(0, seg.Length()-pose.Position.Sub(*cs.InitialPosition).Norm())
}

// Target returns the waypoint the current phase is heading to, if any.
func (m *Machine) Target(cs ControllerState) (r2.Point, bool) {
	seg, err := m.route.Segment(cs.Index)
	if err != nil {
		return r2.Point{}, false
	}
	return seg.End, true
}
