// Package ros speaks the ROS message shapes used for odometry and velocity commands, and reads
// recorded odometry out of rosbags.
package ros

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/waypointdrive/components/posetracker"
	"go.viam.com/waypointdrive/logging"
)

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()

	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to create ros bag, error")
	}

	return rb, nil
}

// AllMessagesForTopic returns all messages for a specific topic in the ros bag.
func AllMessagesForTopic(rb *rosbag.RosBag, topic string) ([]map[string]interface{}, error) {
	if err := rb.ParseTopicsToJSON(
		"",
		func(int64) bool { return true },
		func(t string) bool { return t == topic },
		false,
	); err != nil {
		return nil, errors.Wrapf(err, "error while parsing bag to JSON")
	}

	msgs := rb.TopicsAsJSON[topic]
	if msgs == nil {
		return nil, errors.Errorf("no messages for topic %s", topic)
	}

	all := []map[string]interface{}{}

	for {
		data, err := msgs.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		message := map[string]interface{}{}
		err = json.Unmarshal(data, &message)
		if err != nil {
			return nil, err
		}

		all = append(all, message)
	}

	return all, nil
}

// DecodeOdometryMessages decodes raw bag messages into odometry messages.
func DecodeOdometryMessages(raw []map[string]interface{}) ([]OdometryMessage, error) {
	out := make([]OdometryMessage, 0, len(raw))
	for i, msg := range raw {
		var odom OdometryMessage
		if err := Decode(msg, &odom); err != nil {
			return nil, errors.Wrapf(err, "message %d", i)
		}
		out = append(out, odom)
	}
	return out, nil
}

// OdometryFromBag returns every odometry message recorded on topic, in recording order.
func OdometryFromBag(rb *rosbag.RosBag, topic string) ([]OdometryMessage, error) {
	raw, err := AllMessagesForTopic(rb, topic)
	if err != nil {
		return nil, err
	}
	return DecodeOdometryMessages(raw)
}

// Replay feeds recorded odometry into the tracker, waiting between messages as long as the
// recording did. It returns once every message has been replayed or ctx is done.
func Replay(
	ctx context.Context,
	clk clock.Clock,
	msgs []OdometryMessage,
	tracker *posetracker.Tracker,
	logger logging.Logger,
) error {
	if clk == nil {
		clk = clock.New()
	}
	for i, msg := range msgs {
		if i > 0 {
			wait := msg.Meta.Time().Sub(msgs[i-1].Meta.Time())
			if wait > 0 {
				timer := clk.Timer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		tracker.Update(msg.Data.Sample())
	}
	logger.CInfow(ctx, "rosbag replay finished", "messages", len(msgs))
	return nil
}
