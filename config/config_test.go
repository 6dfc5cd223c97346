package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/waypointdrive/logging"
	"go.viam.com/waypointdrive/ros"
	"go.viam.com/waypointdrive/services/navigation"
)

func TestFromReaderValidate(t *testing.T) {
	_, err := FromReader("somepath", strings.NewReader(""))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")

	_, err = FromReader("somepath", strings.NewReader(`{"waypoints": 1}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unmarshal")

	_, err = FromReader("somepath", strings.NewReader(`{}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"waypoints" is required`)

	for _, tc := range []struct {
		name   string
		config string
		errs   []string
	}{
		{"one waypoint", `{"waypoints": [[0, 0]]}`, []string{"waypoints", "at least 2"}},
		{"both route sources", `{"waypoints": [[0, 0], [1, 0]], "preset": "square"}`, []string{"only one of"}},
		{"unknown preset", `{"preset": "circle"}`, []string{"preset", "circle"}},
		{"negative scale", `{"preset": "square", "scale": -1}`, []string{"scale"}},
		{"negative rate", `{"preset": "square", "rate_hz": -2}`, []string{"rate_hz"}},
		{"negative speed", `{"preset": "square", "linear_speed": -0.1}`, []string{"linear_speed"}},
		{"bad bearing mode", `{"preset": "square", "bearing_mode": "compass"}`, []string{"bearing_mode", "compass"}},
		{"bad timeout", `{"preset": "square", "feedback_timeout": "soon"}`, []string{"feedback_timeout"}},
		{"negative timeout", `{"preset": "square", "feedback_timeout": "-1s"}`, []string{"feedback_timeout"}},
		{"bad stale threshold", `{"preset": "square", "stale_after": "later"}`, []string{"stale_after"}},
		{"bad log level", `{"preset": "square", "log_level": "loud"}`, []string{"log_level"}},
		{"bad log pattern", `{"preset": "square", "log": [{"pattern": "a..b", "level": "debug"}]}`, []string{"log.0"}},
		{"bad pattern level", `{"preset": "square", "log": [{"pattern": "drive", "level": "loud"}]}`, []string{"log.0"}},
		{"unknown feed", `{"preset": "square", "feed": {"type": "serial"}}`, []string{"feed", "serial"}},
		{"rosbridge without url", `{"preset": "square", "feed": {"type": "rosbridge"}}`, []string{"feed", `"url" is required`}},
		{"rosbag without path", `{"preset": "square", "feed": {"type": "rosbag"}}`, []string{"feed", `"bag_path" is required`}},
		{"negative poll rate", `{"preset": "square", "feed": {"poll_rate_hz": -1}}`, []string{"poll_rate_hz"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromReader("somepath", strings.NewReader(tc.config))
			test.That(t, err, test.ShouldNotBeNil)
			for _, want := range tc.errs {
				test.That(t, err.Error(), test.ShouldContainSubstring, want)
			}
		})
	}
}

func TestFromReaderDefaults(t *testing.T) {
	conf, err := FromReader("somepath", strings.NewReader(`{"waypoints": [[0, 0], [1, 0]]}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &Config{
		ConfigFilePath: "somepath",
		Waypoints:      [][2]float64{{0, 0}, {1, 0}},
		Scale:          1,
		RateHz:         navigation.DefaultRateHz,
		Feed: FeedConfig{
			Type:        FeedSim,
			OdomTopic:   ros.DefaultOdomTopic,
			CmdVelTopic: ros.DefaultCmdVelTopic,
			PollRateHz:  DefaultPollRateHz,
		},
	})
	test.That(t, conf.Level(), test.ShouldEqual, logging.INFO)
	test.That(t, conf.Loop(), test.ShouldResemble, navigation.LoopConfig{RateHz: navigation.DefaultRateHz})

	route, err := conf.Route()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, route.Waypoints(), test.ShouldResemble, []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}})
}

func TestFromReaderFull(t *testing.T) {
	conf, err := FromReader("somepath", strings.NewReader(`{
		"preset": "triangle",
		"scale": 2,
		"rate_hz": 5,
		"linear_speed": 0.2,
		"angular_gain": 0.5,
		"yaw_tolerance_rad": 0.01,
		"bearing_mode": "atan2",
		"wrap_heading_error": true,
		"feedback_timeout": "30s",
		"stale_after": "2s",
		"log_level": "debug",
		"log": [{"pattern": "drive.rosbridge", "level": "warn"}],
		"feed": {"type": "rosbridge", "url": "ws://robot:9090", "odom_topic": "/wheel_odom"}
	}`))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, conf.Config, test.ShouldResemble, navigation.Config{
		LinearSpeed:      0.2,
		AngularGain:      0.5,
		YawTolerance:     0.01,
		BearingMode:      navigation.BearingAtan2,
		WrapHeadingError: true,
	})
	test.That(t, conf.Level(), test.ShouldEqual, logging.DEBUG)
	test.That(t, conf.LogConfig, test.ShouldResemble, []logging.LoggerPatternConfig{{Pattern: "drive.rosbridge", Level: "warn"}})
	test.That(t, conf.Loop(), test.ShouldResemble, navigation.LoopConfig{
		RateHz:          5,
		FeedbackTimeout: 30 * time.Second,
		StaleAfter:      2 * time.Second,
	})
	test.That(t, conf.Feed, test.ShouldResemble, FeedConfig{
		Type:        FeedRosbridge,
		URL:         "ws://robot:9090",
		OdomTopic:   "/wheel_odom",
		CmdVelTopic: ros.DefaultCmdVelTopic,
		PollRateHz:  DefaultPollRateHz,
	})

	route, err := conf.Route()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, route.Scale(), test.ShouldEqual, 2)
	test.That(t, route.Waypoints(), test.ShouldResemble, []r2.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}})
}

func TestReadSubstitutesEnvironment(t *testing.T) {
	t.Setenv("WAYPOINTDRIVE_TEST_URL", "ws://10.0.0.7:9090")
	path := filepath.Join(t.TempDir(), "drive.json")
	test.That(t, os.WriteFile(path, []byte(`{
		"preset": "square",
		"feed": {"type": "rosbridge", "url": "${WAYPOINTDRIVE_TEST_URL}"}
	}`), 0o600), test.ShouldBeNil)

	conf, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, conf.Feed.URL, test.ShouldEqual, "ws://10.0.0.7:9090")

	_, err = Read(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
