package ros

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"go.viam.com/waypointdrive/components/base"
	"go.viam.com/waypointdrive/components/posetracker"
	"go.viam.com/waypointdrive/spatialmath"
)

// Message types used on the wire.
const (
	OdometryType = "nav_msgs/Odometry"
	TwistType    = "geometry_msgs/Twist"
)

// Default topic names.
const (
	DefaultOdomTopic   = "/odom"
	DefaultCmdVelTopic = "/cmd_vel"
)

// Stamp is a ROS time. ROS 1 bridges and bags use secs/nsecs, ROS 2 uses sec/nanosec.
type Stamp struct {
	Secs    int64 `json:"secs,omitempty"`
	Nsecs   int64 `json:"nsecs,omitempty"`
	Sec     int64 `json:"sec,omitempty"`
	Nanosec int64 `json:"nanosec,omitempty"`
}

// Time converts the stamp to a time.Time, whichever convention it was written in.
func (s Stamp) Time() time.Time {
	if s.Sec != 0 || s.Nanosec != 0 {
		return time.Unix(s.Sec, s.Nanosec)
	}
	return time.Unix(s.Secs, s.Nsecs)
}

// Header is std_msgs/Header.
type Header struct {
	Seq     uint32 `json:"seq,omitempty"`
	Stamp   Stamp  `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// Vector3 is geometry_msgs/Vector3, also used for geometry_msgs/Point.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is geometry_msgs/Quaternion.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Pose is geometry_msgs/Pose.
type Pose struct {
	Position    Vector3    `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// PoseWithCovariance is geometry_msgs/PoseWithCovariance.
type PoseWithCovariance struct {
	Pose       Pose      `json:"pose"`
	Covariance []float64 `json:"covariance,omitempty"`
}

// Twist is geometry_msgs/Twist.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// TwistWithCovariance is geometry_msgs/TwistWithCovariance.
type TwistWithCovariance struct {
	Twist      Twist     `json:"twist"`
	Covariance []float64 `json:"covariance,omitempty"`
}

// Odometry is nav_msgs/Odometry.
type Odometry struct {
	Header       Header              `json:"header"`
	ChildFrameID string              `json:"child_frame_id"`
	Pose         PoseWithCovariance  `json:"pose"`
	Twist        TwistWithCovariance `json:"twist"`
}

// Sample converts the odometry pose into a tracker sample.
func (o Odometry) Sample() posetracker.Sample {
	p := o.Pose.Pose
	return posetracker.Sample{
		Position:    r3.Vector{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z},
		Orientation: spatialmath.NewQuaternion(p.Orientation.X, p.Orientation.Y, p.Orientation.Z, p.Orientation.W),
	}
}

// OdometryMessage is an odometry message as it comes out of a rosbag, with the time it was
// recorded.
type OdometryMessage struct {
	Meta Stamp    `json:"meta"`
	Data Odometry `json:"data"`
}

// TwistFromCommand builds the Twist that asks a base for cmd.
func TwistFromCommand(cmd base.VelocityCommand) Twist {
	return Twist{Linear: Vector3{X: cmd.Linear}, Angular: Vector3{Z: cmd.Angular}}
}

// Command is the inverse of TwistFromCommand.
func (t Twist) Command() base.VelocityCommand {
	return base.VelocityCommand{Linear: t.Linear.X, Angular: t.Angular.Z}
}

// Decode converts a generic decoded JSON message into one of the types above.
func Decode(input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           output,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "creating message decoder")
	}
	if err := decoder.Decode(input); err != nil {
		return errors.Wrapf(err, "decoding %T", output)
	}
	return nil
}
