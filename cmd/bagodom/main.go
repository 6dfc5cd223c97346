// Package main turns the odometry recorded in a rosbag into a waypoint route config, so a driven
// path can be replayed by the drive command.
package main

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"go.viam.com/waypointdrive/logging"
	"go.viam.com/waypointdrive/ros"
	"go.viam.com/waypointdrive/waypoint"
)

var logger = logging.NewLogger("bagodom")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	BagFile string `flag:"0,required,usage=rosbag to read"`
	Topic   string `flag:"topic,default=/odom,usage=odometry topic"`
	Spacing string `flag:"spacing,default=0.25,usage=minimum distance between waypoints in meters"`
	Output  string `flag:"output,usage=file to write the route config to (default stdout)"`
}

type routeConfig struct {
	Waypoints [][2]float64 `json:"waypoints"`
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Topic == "" {
		argsParsed.Topic = ros.DefaultOdomTopic
	}
	spacing, err := strconv.ParseFloat(argsParsed.Spacing, 64)
	if err != nil || spacing < 0 {
		return errors.Errorf("spacing must be a non-negative number of meters, got %q", argsParsed.Spacing)
	}

	rb, err := ros.ReadBag(argsParsed.BagFile)
	if err != nil {
		return err
	}
	msgs, err := ros.OdometryFromBag(rb, argsParsed.Topic)
	if err != nil {
		return err
	}

	data, err := trackToRoute(msgs, spacing)
	if err != nil {
		return err
	}
	logger.CInfow(ctx, "extracted route", "bag", argsParsed.BagFile, "topic", argsParsed.Topic, "messages", len(msgs))

	if argsParsed.Output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(argsParsed.Output, data, 0o600)
}

// trackToRoute thins the recorded positions into a route config.
func trackToRoute(msgs []ros.OdometryMessage, spacing float64) ([]byte, error) {
	track := lo.Map(msgs, func(msg ros.OdometryMessage, _ int) r2.Point {
		return msg.Data.Sample().Pose().Position
	})
	points := waypoint.Thin(track, spacing)

	route, err := waypoint.NewRoute(points, 1)
	if err != nil {
		return nil, errors.Wrap(err, "recorded track is too short")
	}
	data, err := json.MarshalIndent(routeConfig{Waypoints: route.Pairs()}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
