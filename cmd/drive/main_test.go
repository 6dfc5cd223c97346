package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/waypointdrive/config"
	"go.viam.com/waypointdrive/logging"
)

func TestMainWithArgs(t *testing.T) {
	logger := logging.NewTestLogger(t)

	err := mainWithArgs(context.Background(), []string{"drive"}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	err = mainWithArgs(context.Background(), []string{"drive", filepath.Join(t.TempDir(), "missing.json")}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "drive.json")
	test.That(t, os.WriteFile(path, []byte(`{"waypoints": [[0, 0]]}`), 0o600), test.ShouldBeNil)
	err = mainWithArgs(context.Background(), []string{"drive", path}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least 2")
}

func readConfig(t *testing.T, s string) *config.Config {
	t.Helper()
	cfg, err := config.FromReader("test", strings.NewReader(s))
	test.That(t, err, test.ShouldBeNil)
	return cfg
}

func TestDriveSimulatedRoute(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	cfg := readConfig(t, `{"waypoints": [[0, 0], [0.1, 0]], "feed": {"type": "sim", "poll_rate_hz": 10}}`)
	clk := clock.NewMock()

	done := make(chan error, 1)
	go func() {
		done <- drive(context.Background(), cfg, logging.DEBUG, clk, logger)
	}()

	var finished bool
	var err error
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		select {
		case err = <-done:
			finished = true
		default:
			clk.Add(100 * time.Millisecond)
		}
		test.That(tb, finished, test.ShouldBeTrue)
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logs.FilterMessage("starting drive").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("route complete").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("all waypoints reached, shutting down").Len(), test.ShouldEqual, 1)
}

func TestDriveLogPatterns(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	cfg := readConfig(t, `{
		"waypoints": [[0, 0], [0.1, 0]],
		"feed": {"type": "sim"},
		"log": [{"pattern": "drive.navigation", "level": "error"}]
	}`)
	clk := clock.NewMock()

	done := make(chan error, 1)
	go func() {
		done <- drive(context.Background(), cfg, logging.INFO, clk, logger)
	}()

	var finished bool
	var err error
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		select {
		case err = <-done:
			finished = true
		default:
			clk.Add(100 * time.Millisecond)
		}
		test.That(tb, finished, test.ShouldBeTrue)
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logs.FilterMessage("starting drive").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("all waypoints reached, shutting down").Len(), test.ShouldEqual, 1)
	// The loop logs on drive.navigation, which the pattern raised to error.
	test.That(t, logs.FilterMessage("starting control loop").Len(), test.ShouldEqual, 0)
	test.That(t, logs.FilterMessage("route complete").Len(), test.ShouldEqual, 0)
	test.That(t, logs.FilterLoggerName("navigation").Len(), test.ShouldEqual, 0)
}

func TestDriveCanceled(t *testing.T) {
	cfg := readConfig(t, `{"preset": "square"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	test.That(t, drive(ctx, cfg, logging.INFO, clock.NewMock(), logging.NewTestLogger(t)), test.ShouldBeNil)
}

func TestDriveFeedErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	cfg := readConfig(t, `{"preset": "square", "feed": {"type": "rosbag", "bag_path": "/nonexistent/drive.bag"}}`)
	err := drive(context.Background(), cfg, logging.INFO, clock.NewMock(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unable to open input file")

	cfg = readConfig(t, `{"preset": "square", "feed": {"type": "rosbridge", "url": "ws://127.0.0.1:1"}}`)
	err = drive(context.Background(), cfg, logging.INFO, clock.NewMock(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to connect")
}
