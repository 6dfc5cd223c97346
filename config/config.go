// Package config defines the structures to configure a waypoint drive.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/waypointdrive/logging"
	"go.viam.com/waypointdrive/ros"
	"go.viam.com/waypointdrive/services/navigation"
	"go.viam.com/waypointdrive/waypoint"
)

// FeedType names where poses come from and where velocity commands go.
type FeedType string

// The known feeds.
const (
	// FeedSim drives a simulated base that also reports its own pose.
	FeedSim = FeedType("sim")
	// FeedRosbridge subscribes to odometry and publishes Twists over a rosbridge websocket.
	FeedRosbridge = FeedType("rosbridge")
	// FeedRosbag replays recorded odometry and sends commands to a simulated base.
	FeedRosbag = FeedType("rosbag")
)

// DefaultPollRateHz is how often the simulated base is sampled when no rate is configured.
const DefaultPollRateHz = 10.

// FeedConfig describes the pose feed and velocity sink.
type FeedConfig struct {
	Type        FeedType `json:"type,omitempty"`
	URL         string   `json:"url,omitempty"`
	OdomTopic   string   `json:"odom_topic,omitempty"`
	CmdVelTopic string   `json:"cmd_vel_topic,omitempty"`
	BagPath     string   `json:"bag_path,omitempty"`
	PollRateHz  float64  `json:"poll_rate_hz,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (fc *FeedConfig) Validate(path string) error {
	switch fc.Type {
	case "", FeedSim:
	case FeedRosbridge:
		if fc.URL == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "url")
		}
	case FeedRosbag:
		if fc.BagPath == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "bag_path")
		}
	default:
		return utils.NewConfigValidationError(path,
			errors.Errorf("unknown feed type %q, expected one of %v", fc.Type, []FeedType{FeedSim, FeedRosbridge, FeedRosbag}))
	}
	if fc.PollRateHz < 0 || math.IsNaN(fc.PollRateHz) || math.IsInf(fc.PollRateHz, 0) {
		return utils.NewConfigValidationError(path, errors.Errorf("\"poll_rate_hz\" must be a non-negative finite number, got %v", fc.PollRateHz))
	}
	return nil
}

func (fc *FeedConfig) applyDefaults() {
	if fc.Type == "" {
		fc.Type = FeedSim
	}
	if fc.OdomTopic == "" {
		fc.OdomTopic = ros.DefaultOdomTopic
	}
	if fc.CmdVelTopic == "" {
		fc.CmdVelTopic = ros.DefaultCmdVelTopic
	}
	if fc.PollRateHz == 0 {
		fc.PollRateHz = DefaultPollRateHz
	}
}

// Config describes how to configure a waypoint drive. The machine tuning fields sit at the top
// level next to the route.
type Config struct {
	ConfigFilePath string `json:"-"`

	Waypoints [][2]float64 `json:"waypoints,omitempty"`
	Preset    string       `json:"preset,omitempty"`
	Scale     float64      `json:"scale,omitempty"`
	RateHz    float64      `json:"rate_hz,omitempty"`

	navigation.Config

	// FeedbackTimeout is a duration string such as "30s". Empty disables the timeout.
	FeedbackTimeout string                        `json:"feedback_timeout,omitempty"`
	// StaleAfter is a duration string. The loop warns when the latest pose is older than this.
	// Empty means five loop periods.
	StaleAfter      string                        `json:"stale_after,omitempty"`
	LogLevel        string                        `json:"log_level,omitempty"`
	LogConfig       []logging.LoggerPatternConfig `json:"log,omitempty"`

	Feed FeedConfig `json:"feed"`

	feedbackTimeout time.Duration
	staleAfter      time.Duration
}

// Ensure validates the config and fills in defaults. It must be called before the config is used.
func (c *Config) Ensure() error {
	switch {
	case len(c.Waypoints) == 0 && c.Preset == "":
		return utils.NewConfigValidationFieldRequiredError("", "waypoints")
	case len(c.Waypoints) != 0 && c.Preset != "":
		return utils.NewConfigValidationError("", errors.New(`only one of "waypoints" or "preset" may be set`))
	case c.Preset != "":
		if _, err := waypoint.Preset(c.Preset); err != nil {
			return utils.NewConfigValidationError("preset", err)
		}
	case len(c.Waypoints) < 2:
		return utils.NewConfigValidationError("waypoints",
			errors.Errorf("a route needs at least 2 waypoints, got %d", len(c.Waypoints)))
	}
	for idx, p := range c.Waypoints {
		if !finite(p[0]) || !finite(p[1]) {
			return utils.NewConfigValidationError(fmt.Sprintf("%s.%d", "waypoints", idx),
				errors.Errorf("waypoint must be finite, got %v", p))
		}
	}

	for _, field := range []struct {
		name  string
		value float64
	}{
		{"scale", c.Scale},
		{"rate_hz", c.RateHz},
	} {
		if field.value < 0 || !finite(field.value) {
			return utils.NewConfigValidationError(field.name,
				errors.Errorf("must be a non-negative finite number, got %v", field.value))
		}
	}

	if err := c.Config.Validate(""); err != nil {
		return err
	}

	for _, field := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"feedback_timeout", c.FeedbackTimeout, &c.feedbackTimeout},
		{"stale_after", c.StaleAfter, &c.staleAfter},
	} {
		if field.value == "" {
			continue
		}
		d, err := time.ParseDuration(field.value)
		if err != nil {
			return utils.NewConfigValidationError(field.name, err)
		}
		if d < 0 {
			return utils.NewConfigValidationError(field.name, errors.Errorf("must not be negative, got %v", d))
		}
		*field.dst = d
	}

	if c.LogLevel != "" {
		if _, err := logging.LevelFromString(c.LogLevel); err != nil {
			return utils.NewConfigValidationError("log_level", err)
		}
	}
	for idx, lpc := range c.LogConfig {
		path := fmt.Sprintf("%s.%d", "log", idx)
		if !logging.ValidatePattern(lpc.Pattern) {
			return utils.NewConfigValidationError(path, errors.Errorf("invalid logger pattern %q", lpc.Pattern))
		}
		if _, err := logging.LevelFromString(lpc.Level); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}

	if err := c.Feed.Validate("feed"); err != nil {
		return err
	}

	if c.Scale == 0 {
		c.Scale = 1
	}
	if c.RateHz == 0 {
		c.RateHz = navigation.DefaultRateHz
	}
	c.Feed.applyDefaults()
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Route builds the scaled waypoint route the config names.
func (c *Config) Route() (*waypoint.Route, error) {
	if c.Preset != "" {
		points, err := waypoint.Preset(c.Preset)
		if err != nil {
			return nil, err
		}
		return waypoint.NewRoute(points, c.scale())
	}
	return waypoint.FromPairs(c.Waypoints, c.scale())
}

func (c *Config) scale() float64 {
	if c.Scale == 0 {
		return 1
	}
	return c.Scale
}

// Level returns the default log level. Info when none is configured.
func (c *Config) Level() logging.Level {
	level, err := logging.LevelFromString(c.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// Loop returns the control loop settings. The clock and halt hook are left for the caller.
func (c *Config) Loop() navigation.LoopConfig {
	return navigation.LoopConfig{
		RateHz:          c.RateHz,
		FeedbackTimeout: c.feedbackTimeout,
		StaleAfter:      c.staleAfter,
	}
}
