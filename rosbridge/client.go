// Package rosbridge talks to a robot through a rosbridge v2 websocket. It subscribes to odometry to
// feed a pose tracker, and publishes velocity commands, which makes the client usable as a base.
package rosbridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/waypointdrive/components/base"
	"go.viam.com/waypointdrive/components/posetracker"
	"go.viam.com/waypointdrive/logging"
	"go.viam.com/waypointdrive/ros"
	"go.viam.com/waypointdrive/utils"
)

const (
	// writeWait is how long to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds a single incoming message. Odometry with covariance is a few KB.
	maxMessageSize = 512 * 1024

	handshakeTimeout = 10 * time.Second
)

// ErrClosed is returned when publishing through a closed client.
var ErrClosed = errors.New("rosbridge client is closed")

// Config describes where the bridge is and which topics to use.
type Config struct {
	URL         string
	OdomTopic   string
	CmdVelTopic string
	// Clock paces keepalive pings. Socket deadlines always use the wall clock. Defaults to the wall
	// clock.
	Clock clock.Clock
}

func (conf Config) withDefaults() Config {
	if conf.Clock == nil {
		conf.Clock = clock.New()
	}
	if conf.OdomTopic == "" {
		conf.OdomTopic = ros.DefaultOdomTopic
	}
	if conf.CmdVelTopic == "" {
		conf.CmdVelTopic = ros.DefaultCmdVelTopic
	}
	return conf
}

// Op is a rosbridge v2 protocol operation.
type Op struct {
	Op    string      `json:"op"`
	ID    string      `json:"id,omitempty"`
	Topic string      `json:"topic,omitempty"`
	Type  string      `json:"type,omitempty"`
	Msg   interface{} `json:"msg,omitempty"`
}

// incoming is an operation received from the bridge. The message body is decoded once the topic
// is known.
type incoming struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic"`
	Msg   json.RawMessage `json:"msg"`
	Level string          `json:"level"`
}

// Client is a connection to a rosbridge server.
type Client struct {
	conf    Config
	conn    *websocket.Conn
	tracker *posetracker.Tracker
	logger  logging.Logger

	writeMu sync.Mutex
	workers utils.StoppableWorkers

	moving   atomic.Bool
	closed   atomic.Bool
	received atomic.Uint64
	dropped  atomic.Uint64
}

var _ base.Base = (*Client)(nil)

// Dial connects to the bridge, subscribes to odometry, and advertises the velocity topic. Every
// odometry message received is written into tracker.
func Dial(ctx context.Context, conf Config, tracker *posetracker.Tracker, logger logging.Logger) (*Client, error) {
	if conf.URL == "" {
		return nil, errors.New("rosbridge url is required")
	}
	if tracker == nil {
		return nil, errors.New("a pose tracker is required")
	}
	conf = conf.withDefaults()

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	//nolint:bodyclose
	conn, _, err := dialer.DialContext(ctx, conf.URL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to rosbridge at %s", conf.URL)
	}

	c := &Client{
		conf:    conf,
		conn:    conn,
		tracker: tracker,
		logger:  logger,
	}

	if err := multierr.Combine(
		c.writeJSON(Op{Op: "subscribe", ID: "subscribe:" + conf.OdomTopic, Topic: conf.OdomTopic, Type: ros.OdometryType}),
		c.writeJSON(Op{Op: "advertise", ID: "advertise:" + conf.CmdVelTopic, Topic: conf.CmdVelTopic, Type: ros.TwistType}),
	); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "setting up rosbridge topics"), conn.Close())
	}

	conn.SetReadLimit(maxMessageSize)
	goutils.UncheckedError(conn.SetReadDeadline(time.Now().Add(pongWait)))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.workers = utils.NewStoppableWorkers(c.readPump, c.keepAlive)
	logger.CInfow(ctx, "connected to rosbridge", "url", conf.URL, "odom", conf.OdomTopic, "cmd_vel", conf.CmdVelTopic)
	return c, nil
}

// Received returns how many odometry messages were written into the tracker.
func (c *Client) Received() uint64 {
	return c.received.Load()
}

// Dropped returns how many incoming messages could not be used.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

// readPump reads operations until the connection closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !c.closed.Load() {
				c.logger.CWarnw(ctx, "rosbridge connection lost", "error", err)
			}
			return
		}
		// Any traffic proves the peer is alive.
		goutils.UncheckedError(c.conn.SetReadDeadline(time.Now().Add(pongWait)))

		if err := c.handle(ctx, data); err != nil {
			c.dropped.Inc()
			c.logger.CDebugw(ctx, "dropping rosbridge message", "error", err)
		}
	}
}

func (c *Client) handle(ctx context.Context, data []byte) error {
	var op incoming
	if err := json.Unmarshal(data, &op); err != nil {
		return errors.Wrap(err, "malformed rosbridge operation")
	}

	switch op.Op {
	case "publish":
		if op.Topic != c.conf.OdomTopic {
			return errors.Errorf("unexpected topic %q", op.Topic)
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(op.Msg, &raw); err != nil {
			return errors.Wrap(err, "malformed odometry")
		}
		var odom ros.Odometry
		if err := ros.Decode(raw, &odom); err != nil {
			return err
		}
		c.tracker.Update(odom.Sample())
		c.received.Inc()
		return nil
	case "status":
		var text string
		if err := json.Unmarshal(op.Msg, &text); err != nil {
			return errors.Wrap(err, "malformed status")
		}
		c.logger.CInfow(ctx, "rosbridge status", "level", op.Level, "msg", text)
		return nil
	default:
		return errors.Errorf("unsupported op %q", op.Op)
	}
}

// keepAlive pings the bridge so a dead connection is noticed by the read deadline.
func (c *Client) keepAlive(ctx context.Context) {
	ticker := c.conf.Clock.Ticker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		c.writeMu.Lock()
		err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		c.writeMu.Unlock()
		if err != nil {
			if !c.closed.Load() {
				c.logger.CDebugw(ctx, "rosbridge ping failed", "error", err)
			}
			return
		}
	}
}

func (c *Client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *Client) publishTwist(twist ros.Twist) error {
	return c.writeJSON(Op{Op: "publish", Topic: c.conf.CmdVelTopic, Msg: twist})
}

// SetVelocity publishes a Twist on the velocity topic.
func (c *Client) SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error {
	if c.closed.Load() {
		return ErrClosed
	}
	cmd := base.CommandFromVectors(linear, angular)
	if err := c.publishTwist(ros.TwistFromCommand(cmd)); err != nil {
		return errors.Wrap(err, "publishing velocity")
	}
	c.moving.Store(!cmd.IsZero())
	return nil
}

// Stop publishes a zero Twist.
func (c *Client) Stop(ctx context.Context, extra map[string]interface{}) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.publishTwist(ros.Twist{}); err != nil {
		return errors.Wrap(err, "publishing stop")
	}
	c.moving.Store(false)
	return nil
}

// IsMoving reports whether the last published Twist was non-zero.
func (c *Client) IsMoving(ctx context.Context) (bool, error) {
	return c.moving.Load(), nil
}

// Close stops the robot, tears down the topics, and closes the connection. It logs how many
// messages the client used and dropped over its lifetime.
func (c *Client) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := multierr.Combine(
		c.publishTwist(ros.Twist{}),
		c.writeJSON(Op{Op: "unadvertise", ID: "advertise:" + c.conf.CmdVelTopic, Topic: c.conf.CmdVelTopic}),
		c.writeJSON(Op{Op: "unsubscribe", ID: "subscribe:" + c.conf.OdomTopic, Topic: c.conf.OdomTopic}),
	)

	c.writeMu.Lock()
	err = multierr.Combine(err, c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	))
	c.writeMu.Unlock()

	err = multierr.Combine(err, c.conn.Close())
	c.workers.Stop()
	c.moving.Store(false)
	c.logger.CInfow(ctx, "rosbridge client closed", "received", c.Received(), "dropped", c.Dropped())
	return err
}
