package navigation

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/waypointdrive/components/base"
	"go.viam.com/waypointdrive/components/posetracker"
	"go.viam.com/waypointdrive/logging"
	"go.viam.com/waypointdrive/spatialmath"
	"go.viam.com/waypointdrive/utils"
)

const (
	// DefaultRateHz is how often the loop ticks when no rate is configured.
	DefaultRateHz = 2.
	// defaultStalePeriods is how many periods old the latest pose may get before the loop warns.
	defaultStalePeriods = 5
)

// ErrFeedbackTimeout is returned by Run when no pose arrived within the configured timeout.
var ErrFeedbackTimeout = errors.New("no pose feedback received")

// LoopConfig describes how the control loop runs.
type LoopConfig struct {
	RateHz float64
	// FeedbackTimeout bounds how long the loop waits for the first pose. Zero waits forever.
	FeedbackTimeout time.Duration
	// StaleAfter is how old the latest pose may get before the loop warns that it is steering on
	// stale feedback. Defaults to five periods.
	StaleAfter time.Duration
	// Clock paces the loop. It must be the clock the pose source stamps arrivals with. Defaults
	// to the wall clock.
	Clock clock.Clock
	// OnHalt is called once when the route is complete.
	OnHalt func()
}

// Loop ticks a Machine at a fixed rate, feeding it the latest pose and sending its commands to a
// base.
type Loop struct {
	machine         *Machine
	poses           posetracker.PoseSource
	base            base.Base
	clk             clock.Clock
	period          time.Duration
	feedbackTimeout time.Duration
	staleAfter      time.Duration
	onHalt          func()
	logger          logging.Logger

	state atomic.Pointer[ControllerState]
	ticks atomic.Uint64
}

// NewLoop returns a loop that has not started yet.
func NewLoop(
	machine *Machine,
	poses posetracker.PoseSource,
	b base.Base,
	conf LoopConfig,
	logger logging.Logger,
) (*Loop, error) {
	if machine == nil || poses == nil || b == nil {
		return nil, errors.New("a machine, a pose source and a base are all required")
	}
	rate := conf.RateHz
	if rate == 0 {
		rate = DefaultRateHz
	}
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, errors.Errorf("loop rate must be a positive finite number, got %v", conf.RateHz)
	}
	if conf.FeedbackTimeout < 0 {
		return nil, errors.Errorf("feedback timeout must not be negative, got %v", conf.FeedbackTimeout)
	}
	if conf.StaleAfter < 0 {
		return nil, errors.Errorf("stale pose threshold must not be negative, got %v", conf.StaleAfter)
	}
	clk := conf.Clock
	if clk == nil {
		clk = clock.New()
	}

	period := utils.HzToPeriod(rate)
	staleAfter := conf.StaleAfter
	if staleAfter == 0 {
		staleAfter = defaultStalePeriods * period
	}

	l := &Loop{
		machine:         machine,
		poses:           poses,
		base:            b,
		clk:             clk,
		period:          period,
		feedbackTimeout: conf.FeedbackTimeout,
		staleAfter:      staleAfter,
		onHalt:          conf.OnHalt,
		logger:          logger,
	}
	initial := NewControllerState()
	l.state.Store(&initial)
	return l, nil
}

// State returns the controller state as of the last completed tick.
func (l *Loop) State() ControllerState {
	return *l.state.Load()
}

// Ticks returns how many ticks have completed.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

// Period returns the interval between ticks.
func (l *Loop) Period() time.Duration {
	return l.period
}

// Run ticks until the route is complete, ctx is done, or feedback times out. The base is stopped
// before Run returns. Completing the route returns nil.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clk.Ticker(l.period)
	defer ticker.Stop()

	start := l.clk.Now()
	var stopWaiting func()
	var stale bool
	defer func() {
		if stopWaiting != nil {
			stopWaiting()
		}
	}()

	route := l.machine.Route()
	l.logger.CInfow(ctx, "starting control loop",
		"route", route.String(), "total_length", route.TotalLength(), "period", l.period.String())
	for {
		select {
		case <-ctx.Done():
			l.stopBase(ctx)
			return ctx.Err()
		case <-ticker.C:
		}

		pose, ok := l.poses.Latest()
		if !ok && l.feedbackTimeout > 0 && l.clk.Since(start) >= l.feedbackTimeout {
			l.stopBase(ctx)
			return errors.Wrapf(ErrFeedbackTimeout, "waited %v", l.feedbackTimeout)
		}

		switch {
		case !ok && stopWaiting == nil:
			msg := "waiting for position"
			if l.State().State == StateRotate {
				msg = "waiting for yaw"
			}
			stopWaiting = utils.SlowLogger(ctx, l.clk, msg, "index", l.State().Index, l.logger)
		case ok && stopWaiting != nil:
			stopWaiting()
			stopWaiting = nil
		}
		if ok {
			stale = l.checkStale(ctx, stale)
		}

		var posePtr *spatialmath.PlanarPose
		if ok {
			posePtr = &pose
		}
		if l.tick(ctx, posePtr) {
			l.stopBase(ctx)
			l.logger.CInfow(ctx, "route complete", "ticks", l.Ticks())
			if l.onHalt != nil {
				l.onHalt()
			}
			return nil
		}
	}
}

// tick runs one Step and sends its command. It reports whether the machine halted.
func (l *Loop) tick(ctx context.Context, pose *spatialmath.PlanarPose) bool {
	prev := l.State()
	next, cmd := l.machine.Step(prev, pose)
	l.state.Store(&next)
	l.ticks.Inc()

	if next.State != prev.State || next.Index != prev.Index {
		l.logger.CInfow(ctx, "state transition",
			"from", prev.State.String(), "to", next.State.String(), "index", next.Index)
	}
	if pose != nil {
		fields := []interface{}{
			"state", next.State.String(), "index", next.Index,
			"x", pose.Position.X, "y", pose.Position.Y, "yaw", pose.Yaw,
		}
		if target, ok := l.machine.Target(next); ok {
			fields = append(fields,
				"target_x", target.X, "target_y", target.Y,
				"distance", pose.DistanceTo(target),
				"remaining", l.machine.Remaining(next, *pose))
		}
		l.logger.CDebugw(ctx, "tick", fields...)
	}

	if cmd != nil {
		if err := base.Send(ctx, l.base, *cmd, nil); err != nil {
			l.logger.CWarnw(ctx, "dropping velocity command", "command", cmd.String(), "error", err)
		}
	}
	return next.State == StateHalt
}

// checkStale warns once when the latest pose grows older than staleAfter and notes when fresh poses
// resume. It returns whether the feed is now stale.
func (l *Loop) checkStale(ctx context.Context, wasStale bool) bool {
	age := l.clk.Since(l.poses.LastSampleTime())
	stale := age >= l.staleAfter
	switch {
	case stale && !wasStale:
		l.logger.CWarnw(ctx, "pose feed is stale, steering on the last known pose",
			"age", age.String(), "index", l.State().Index)
	case !stale && wasStale:
		l.logger.CInfow(ctx, "pose feed resumed", "index", l.State().Index)
	}
	return stale
}

func (l *Loop) stopBase(ctx context.Context) {
	if err := l.base.Stop(context.WithoutCancel(ctx), nil); err != nil {
		l.logger.CErrorw(ctx, "failed to stop base", "error", err)
	}
}
