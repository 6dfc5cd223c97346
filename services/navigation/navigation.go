// Package navigation drives a base along a waypoint route. A Machine decides on every tick which
// velocity to command, and a Loop ticks it at a fixed rate against live pose feedback.
package navigation

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// State describes what the machine is currently doing.
type State uint8

// The set of known states.
const (
	StateTranslate = State(iota)
	StateRotate
	StateHalt
)

func (s State) String() string {
	switch s {
	case StateTranslate:
		return "Translate"
	case StateRotate:
		return "Rotate"
	case StateHalt:
		return "Halt"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// ControllerState is everything the machine remembers between ticks. It is passed into and
// returned from Step; nothing else mutates it.
type ControllerState struct {
	State State
	// Index is the waypoint the current segment starts from. It only ever grows, by one for every
	// completed Translate phase.
	Index int
	// InitialPosition is where the current Translate phase started. Unset outside Translate.
	InitialPosition *r2.Point
	// InitialYaw is a snapshot of the heading the current Rotate phase started from, kept for
	// inspection only. The goal heading is computed from FrameYaw, never from this. Unset outside
	// Rotate.
	InitialYaw *float64
	// FrameYaw is the heading of the first pose ever observed. Bearings are measured from it.
	FrameYaw *float64
}

// NewControllerState returns the state the machine starts in.
func NewControllerState() ControllerState {
	return ControllerState{State: StateTranslate}
}

// BearingMode selects how segment bearings are computed.
type BearingMode string

// The set of known bearing modes.
const (
	// BearingLegacy picks acos/asin for axis-aligned segments and atan2 otherwise.
	BearingLegacy = BearingMode("legacy")
	// BearingAtan2 always uses atan2.
	BearingAtan2 = BearingMode("atan2")
)

// Defaults used when a Config field is left at zero.
const (
	DefaultLinearSpeed  = 0.1
	DefaultAngularGain  = 1.
	DefaultYawTolerance = 0.005
)

// Config tunes the machine.
type Config struct {
	// LinearSpeed is the forward speed while translating, in meters per second.
	LinearSpeed float64 `json:"linear_speed"`
	// AngularGain scales the heading error into a yaw rate while rotating.
	AngularGain float64 `json:"angular_gain"`
	// YawTolerance is the heading error, in radians, below which a rotation is complete.
	YawTolerance float64     `json:"yaw_tolerance_rad"`
	BearingMode  BearingMode `json:"bearing_mode"`
	// WrapHeadingError takes the short way around instead of the raw goal minus yaw difference.
	WrapHeadingError bool `json:"wrap_heading_error"`
}

// DefaultConfig returns the tuning the machine runs with when nothing is configured.
func DefaultConfig() Config {
	return Config{
		LinearSpeed:  DefaultLinearSpeed,
		AngularGain:  DefaultAngularGain,
		YawTolerance: DefaultYawTolerance,
		BearingMode:  BearingLegacy,
	}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	for _, field := range []struct {
		name  string
		value float64
	}{
		{"linear_speed", conf.LinearSpeed},
		{"angular_gain", conf.AngularGain},
		{"yaw_tolerance_rad", conf.YawTolerance},
	} {
		if field.value < 0 || math.IsNaN(field.value) || math.IsInf(field.value, 0) {
			return utils.NewConfigValidationError(path,
				errors.Errorf("%q must be a non-negative finite number, got %v", field.name, field.value))
		}
	}
	switch conf.BearingMode {
	case "", BearingLegacy, BearingAtan2:
	default:
		return utils.NewConfigValidationError(path,
			errors.Errorf("unknown bearing_mode %q, expected %q or %q", conf.BearingMode, BearingLegacy, BearingAtan2))
	}
	return nil
}

// withDefaults fills zero fields with their defaults.
func (conf Config) withDefaults() Config {
	if conf.LinearSpeed == 0 {
		conf.LinearSpeed = DefaultLinearSpeed
	}
	if conf.AngularGain == 0 {
		conf.AngularGain = DefaultAngularGain
	}
	if conf.YawTolerance == 0 {
		conf.YawTolerance = DefaultYawTolerance
	}
	if conf.BearingMode == "" {
		conf.BearingMode = BearingLegacy
	}
	return conf
}
