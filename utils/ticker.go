package utils

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/waypointdrive/logging"
)

// SlowLogger starts a goroutine that logs every few seconds until the returned function is called
// or ctx is done. The first message is logged after 2 seconds, then after 3, then every 5.
func SlowLogger(
	ctx context.Context,
	clk clock.Clock,
	msg, fieldName string, fieldVal interface{},
	logger logging.Logger,
) func() {
	if clk == nil {
		clk = clock.New()
	}
	slowTimer := clk.Timer(2 * time.Second)
	firstTick := true

	ctxWithCancel, cancel := context.WithCancel(ctx)
	startTime := clk.Now()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-slowTimer.C:
				elapsed := clk.Since(startTime).Round(time.Second).String()
				logger.CInfow(ctx, msg, fieldName, fieldVal, "time_elapsed", elapsed)
				if firstTick {
					slowTimer.Reset(3 * time.Second)
					firstTick = false
				} else {
					slowTimer.Reset(5 * time.Second)
				}
			case <-ctxWithCancel.Done():
				return
			}
		}
	}()
	return func() {
		slowTimer.Stop()
		cancel()
		<-done
	}
}
