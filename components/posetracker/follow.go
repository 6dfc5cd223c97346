package posetracker

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/waypointdrive/components/movementsensor"
	"go.viam.com/waypointdrive/logging"
)

const (
	followErrorWindow    = 10
	followErrorThreshold = 3
)

// Follow polls a movement sensor every interval and writes what it reads into the tracker. It
// returns when ctx is done. Failed reads are dropped; repeated failures are logged.
func Follow(
	ctx context.Context,
	clk clock.Clock,
	sensor movementsensor.MovementSensor,
	tracker *Tracker,
	interval time.Duration,
	logger logging.Logger,
) error {
	if interval <= 0 {
		return errors.Errorf("follow interval must be positive, got %v", interval)
	}
	if clk == nil {
		clk = clock.New()
	}

	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	lastErr := movementsensor.NewLastError(followErrorWindow, followErrorThreshold)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		sample, err := Read(ctx, sensor)
		lastErr.Set(err)
		if err != nil {
			if err := lastErr.Get(); err != nil {
				logger.CWarnw(ctx, "movement sensor keeps failing, dropping samples", "error", err)
			}
			continue
		}
		tracker.Update(sample)
	}
}

// Read takes one sample from a movement sensor.
func Read(ctx context.Context, sensor movementsensor.MovementSensor) (Sample, error) {
	pos, err := sensor.Position(ctx, nil)
	if err != nil {
		return Sample{}, errors.Wrap(err, "reading position")
	}
	ori, err := sensor.Orientation(ctx, nil)
	if err != nil {
		return Sample{}, errors.Wrap(err, "reading orientation")
	}
	return Sample{Position: pos, Orientation: ori}, nil
}
