package ros

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/waypointdrive/components/base"
	"go.viam.com/waypointdrive/components/posetracker"
	"go.viam.com/waypointdrive/logging"
)

// A nav_msgs/Odometry as a bag records it, facing 90 degrees left.
const bagOdometry = `{
	"meta": {"secs": 1700000000, "nsecs": 500000000},
	"data": {
		"header": {"seq": 7, "stamp": {"secs": 1700000000, "nsecs": 400000000}, "frame_id": "odom"},
		"child_frame_id": "base_link",
		"pose": {
			"pose": {
				"position": {"x": 1.5, "y": -2, "z": 0},
				"orientation": {"x": 0, "y": 0, "z": 0.7071067811865476, "w": 0.7071067811865476}
			},
			"covariance": [0, 0, 0, 0, 0, 0]
		},
		"twist": {"twist": {"linear": {"x": 0.1, "y": 0, "z": 0}, "angular": {"x": 0, "y": 0, "z": 0}}}
	}
}`

func rawMessage(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	msg := map[string]interface{}{}
	test.That(t, json.Unmarshal([]byte(s), &msg), test.ShouldBeNil)
	return msg
}

func TestDecodeOdometry(t *testing.T) {
	msgs, err := DecodeOdometryMessages([]map[string]interface{}{rawMessage(t, bagOdometry)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(msgs), test.ShouldEqual, 1)

	msg := msgs[0]
	test.That(t, msg.Meta.Time(), test.ShouldEqual, time.Unix(1700000000, 500000000))
	test.That(t, msg.Data.Header.Seq, test.ShouldEqual, uint32(7))
	test.That(t, msg.Data.Header.FrameID, test.ShouldEqual, "odom")
	test.That(t, msg.Data.ChildFrameID, test.ShouldEqual, "base_link")
	test.That(t, msg.Data.Pose.Pose.Position, test.ShouldResemble, Vector3{X: 1.5, Y: -2})
	test.That(t, msg.Data.Twist.Twist.Command(), test.ShouldResemble, base.VelocityCommand{Linear: 0.1})

	test.That(t, msg.Data.Header.Stamp.Time(), test.ShouldEqual, time.Unix(1700000000, 400000000))
	pose := msg.Data.Sample().Pose()
	test.That(t, pose.Position, test.ShouldResemble, r2.Point{X: 1.5, Y: -2})
	test.That(t, pose.Yaw, test.ShouldAlmostEqual, math.Pi/2)
}

func TestDecodeRejectsBadMessage(t *testing.T) {
	bad := rawMessage(t, `{"data": {"pose": {"pose": {"position": {"x": "far"}}}}}`)
	_, err := DecodeOdometryMessages([]map[string]interface{}{rawMessage(t, bagOdometry), bad})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "message 1")
}

func TestStamp(t *testing.T) {
	test.That(t, Stamp{Secs: 3, Nsecs: 4}.Time(), test.ShouldEqual, time.Unix(3, 4))
	test.That(t, Stamp{Sec: 5, Nanosec: 6}.Time(), test.ShouldEqual, time.Unix(5, 6))

	// ROS 2 bridges send sec/nanosec.
	var header Header
	test.That(t, Decode(rawMessage(t, `{"stamp": {"sec": 10, "nanosec": 20}, "frame_id": "odom"}`), &header), test.ShouldBeNil)
	test.That(t, header.Stamp.Time(), test.ShouldEqual, time.Unix(10, 20))
}

func TestTwist(t *testing.T) {
	twist := TwistFromCommand(base.VelocityCommand{Linear: 0.1, Angular: -0.3})
	test.That(t, twist, test.ShouldResemble, Twist{Linear: Vector3{X: 0.1}, Angular: Vector3{Z: -0.3}})
	test.That(t, twist.Command(), test.ShouldResemble, base.VelocityCommand{Linear: 0.1, Angular: -0.3})

	data, err := json.Marshal(twist)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual,
		`{"linear":{"x":0.1,"y":0,"z":0},"angular":{"x":0,"y":0,"z":-0.3}}`)
}

func TestReadBagMissingFile(t *testing.T) {
	_, err := ReadBag(filepath.Join(t.TempDir(), "missing.bag"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unable to open input file")
}

func odometryAt(t *testing.T, offset time.Duration, x float64) OdometryMessage {
	t.Helper()
	stamp := time.Unix(100, 0).Add(offset)
	return OdometryMessage{
		Meta: Stamp{Secs: stamp.Unix(), Nsecs: int64(stamp.Nanosecond())},
		Data: Odometry{Pose: PoseWithCovariance{Pose: Pose{
			Position:    Vector3{X: x},
			Orientation: Quaternion{W: 1},
		}}},
	}
}

func TestReplay(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	clk := clock.NewMock()
	tracker := posetracker.NewTracker(clk)
	msgs := []OdometryMessage{
		odometryAt(t, 0, 0),
		odometryAt(t, time.Second, 1),
		odometryAt(t, 3*time.Second, 2),
	}

	done := make(chan error, 1)
	go func() {
		done <- Replay(context.Background(), clk, msgs, tracker, logger)
	}()

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, tracker.Samples(), test.ShouldEqual, 1)
	})
	pose, ok := tracker.Latest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pose.Position.X, test.ShouldEqual, 0)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		clk.Add(250 * time.Millisecond)
		test.That(tb, tracker.Samples(), test.ShouldEqual, 3)
	})
	test.That(t, <-done, test.ShouldBeNil)
	pose, _ = tracker.Latest()
	test.That(t, pose.Position.X, test.ShouldEqual, 2)
	test.That(t, logs.FilterMessage("rosbag replay finished").Len(), test.ShouldEqual, 1)
}

func TestReplayCanceled(t *testing.T) {
	clk := clock.NewMock()
	tracker := posetracker.NewTracker(clk)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Replay(ctx, clk, []OdometryMessage{odometryAt(t, 0, 0), odometryAt(t, time.Hour, 1)}, tracker, logging.NewTestLogger(t))
	}()
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, tracker.Samples(), test.ShouldEqual, 1)
	})
	cancel()
	test.That(t, <-done, test.ShouldEqual, context.Canceled)
	test.That(t, tracker.Samples(), test.ShouldEqual, 1)
}
