package utils

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/waypointdrive/logging"
)

func TestMath(t *testing.T) {
	test.That(t, Clamp(2, -1, 1), test.ShouldEqual, 1)
	test.That(t, Clamp(-2, -1, 1), test.ShouldEqual, -1)
	test.That(t, Clamp(0.5, -1, 1), test.ShouldEqual, 0.5)
	test.That(t, math.IsNaN(Clamp(math.NaN(), -1, 1)), test.ShouldBeTrue)

	test.That(t, HzToPeriod(2), test.ShouldEqual, 500*time.Millisecond)
	test.That(t, HzToPeriod(10), test.ShouldEqual, 100*time.Millisecond)
}

func TestStoppableWorkers(t *testing.T) {
	var count atomic.Int32
	worker := func(ctx context.Context) {
		count.Inc()
		<-ctx.Done()
	}

	sw := NewStoppableWorkers(worker, worker)
	sw.AddWorkers(worker)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, count.Load(), test.ShouldEqual, 3)
	})

	sw.Stop()
	test.That(t, sw.Context().Err(), test.ShouldNotBeNil)

	// Workers added after Stop never start.
	sw.AddWorkers(worker)
	test.That(t, count.Load(), test.ShouldEqual, 3)
}

func TestStoppableWorkersParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	sw := NewStoppableWorkersWithContext(parent, func(ctx context.Context) {
		<-ctx.Done()
		close(exited)
	})
	cancel()
	<-exited
	sw.Stop()
}

func TestSlowLogger(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	clk := clock.NewMock()

	stop := SlowLogger(context.Background(), clk, "waiting for position", "topic", "/odom", logger)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		clk.Add(time.Second)
		test.That(tb, logs.FilterMessage("waiting for position").Len(), test.ShouldBeGreaterThanOrEqualTo, 2)
	})
	stop()

	count := logs.FilterMessage("waiting for position").Len()
	clk.Add(time.Minute)
	test.That(t, logs.FilterMessage("waiting for position").Len(), test.ShouldEqual, count)
	test.That(t, logs.FilterMessage("waiting for position").All()[0].ContextMap()["topic"], test.ShouldEqual, "/odom")
}
