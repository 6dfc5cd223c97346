// Package main drives a robot along a configured route of waypoints and exits once the last one
// is reached.
package main

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.viam.com/utils"

	"go.viam.com/waypointdrive/config"
	"go.viam.com/waypointdrive/logging"
)

var logger = logging.NewLogger("drive")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,required,usage=drive config file"`
	Debug      bool   `flag:"debug,usage=log at debug level regardless of the config"`
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg, err := config.Read(argsParsed.ConfigFile)
	if err != nil {
		return err
	}
	level := cfg.Level()
	if argsParsed.Debug {
		level = logging.DEBUG
	}
	return drive(ctx, cfg, level, clock.New(), logger)
}
