package main

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/waypointdrive/components/base"
	"go.viam.com/waypointdrive/components/base/fake"
	"go.viam.com/waypointdrive/components/posetracker"
	"go.viam.com/waypointdrive/config"
	"go.viam.com/waypointdrive/logging"
	"go.viam.com/waypointdrive/ros"
	"go.viam.com/waypointdrive/rosbridge"
	"go.viam.com/waypointdrive/services/navigation"
	"go.viam.com/waypointdrive/spatialmath"
	"go.viam.com/waypointdrive/utils"
)

// drive runs the configured route to completion. It returns nil once the route is complete or ctx
// is canceled.
func drive(ctx context.Context, cfg *config.Config, level logging.Level, clk clock.Clock, logger logging.Logger) (err error) {
	registry := logging.NewRegistry("drive", logger)
	navLogger := registry.Sublogger("navigation")
	feedLogger := registry.Sublogger("feed")
	if err := registry.Update(cfg.LogConfig, level); err != nil {
		return err
	}

	route, err := cfg.Route()
	if err != nil {
		return err
	}
	machine, err := navigation.NewMachine(route, cfg.Config, navLogger)
	if err != nil {
		return err
	}

	tracker := posetracker.NewTracker(clk)
	b, feed, err := openFeed(ctx, cfg.Feed, clk, tracker, feedLogger)
	if err != nil {
		return err
	}
	workers := utils.NewStoppableWorkersWithContext(ctx, feed)
	defer func() {
		workers.Stop()
		err = multierr.Combine(err, b.Close(context.Background()))
	}()

	loopConf := cfg.Loop()
	loopConf.Clock = clk
	loopConf.OnHalt = func() {
		logger.Infow("all waypoints reached, shutting down", "samples", tracker.Samples())
	}
	loop, err := navigation.NewLoop(machine, tracker, b, loopConf, navLogger)
	if err != nil {
		return err
	}

	logger.CInfow(ctx, "starting drive", "route", route.String(), "feed", cfg.Feed.Type, "rate_hz", cfg.RateHz)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openFeed connects the configured pose feed. It returns the base to command and a worker that
// keeps the tracker fed until its context is done.
func openFeed(
	ctx context.Context,
	conf config.FeedConfig,
	clk clock.Clock,
	tracker *posetracker.Tracker,
	logger logging.Logger,
) (base.Base, func(context.Context), error) {
	switch conf.Type {
	case config.FeedRosbridge:
		client, err := rosbridge.Dial(ctx, rosbridge.Config{
			URL:         conf.URL,
			OdomTopic:   conf.OdomTopic,
			CmdVelTopic: conf.CmdVelTopic,
			Clock:       clk,
		}, tracker, logger)
		if err != nil {
			return nil, nil, err
		}
		// The client feeds the tracker from its own reader.
		return client, func(context.Context) {}, nil
	case config.FeedRosbag:
		rb, err := ros.ReadBag(conf.BagPath)
		if err != nil {
			return nil, nil, err
		}
		msgs, err := ros.OdometryFromBag(rb, conf.OdomTopic)
		if err != nil {
			return nil, nil, err
		}
		if len(msgs) == 0 {
			return nil, nil, errors.Errorf("no odometry on %s in %s", conf.OdomTopic, conf.BagPath)
		}
		b := fake.NewBase(clk, msgs[0].Data.Sample().Pose(), logger)
		return b, func(ctx context.Context) {
			if err := ros.Replay(ctx, clk, msgs, tracker, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.CWarnw(ctx, "rosbag replay stopped", "error", err)
			}
		}, nil
	case config.FeedSim, "":
		b := fake.NewBase(clk, spatialmath.PlanarPose{}, logger)
		return b, func(ctx context.Context) {
			err := posetracker.Follow(ctx, clk, b, tracker, utils.HzToPeriod(conf.PollRateHz), logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.CWarnw(ctx, "simulated feed stopped", "error", err)
			}
		}, nil
	default:
		return nil, nil, errors.Errorf("unknown feed type %q", conf.Type)
	}
}
