package viewer

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/edgevision/edgevisiond/pkg/log"
	"github.com/edgevision/edgevisiond/pkg/videoframe"
	"github.com/gorilla/websocket"
	"github.com/tauraamui/xerror"
)

const (
	KindParseFailure      = xerror.Kind("PARSE_FAILURE")
	KindConnectionFailure = xerror.Kind("CONNECTION_FAILURE")
)

const (
	// DefaultRetryBudget caps consecutive reconnection attempts.
	DefaultRetryBudget = 5
	// DefaultBackoff is the first reconnection delay; it doubles on
	// every consecutive failed attempt.
	DefaultBackoff = time.Second

	fpsHistoryWeight = 0.9
)

type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "disconnected"
	}
}

// Display is the local surface a decoded frame is handed to; pixels
// arrive as tightly packed RGBA.
type Display interface {
	Render(width, height int, pixels []byte) error
}

// Conn is the read side of the viewer's websocket transport, kept
// narrow so tests can stand in fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

var dialWebsocket = func(addr string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Client is the remote viewer's connection state machine. Transport
// loss outside a manual disconnect schedules reconnection attempts
// with exponential backoff until the retry budget runs out; a
// successful open resets the budget.
type Client struct {
	display  Display
	rotation videoframe.Rotation
	onStatus func(Status)

	retryBudget int
	baseBackoff time.Duration

	mu          sync.Mutex
	status      Status
	conn        Conn
	host        string
	port        int
	manual      bool
	attempts    int
	reconnect   *time.Timer
	fps         float64
	lastArrival time.Time
}

type Option func(*Client)

// WithRotation sets an explicit orientation adjustment applied to
// every decoded frame before display.
func WithRotation(r videoframe.Rotation) Option {
	return func(c *Client) { c.rotation = r }
}

// WithStatusListener registers a callback invoked on every state
// transition. The callback must not call back into the client.
func WithStatusListener(f func(Status)) Option {
	return func(c *Client) { c.onStatus = f }
}

// WithRetryPolicy overrides the reconnection budget and initial
// backoff delay.
func WithRetryPolicy(budget int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retryBudget = budget
		c.baseBackoff = backoff
	}
}

func New(display Display, opts ...Option) *Client {
	c := &Client{
		display:     display,
		retryBudget: DefaultRetryBudget,
		baseBackoff: DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the stream transport. Calling while already connected
// is a no-op. A failed open reports the error, surfaces the Error
// state and schedules a reconnection within the retry budget.
func (c *Client) Connect(host string, port int) error {
	c.mu.Lock()
	if c.status == StatusConnected {
		c.mu.Unlock()
		return nil
	}
	c.host, c.port = host, port
	c.manual = false
	c.setStatusLocked(StatusConnecting)
	c.mu.Unlock()

	conn, err := dialWebsocket(fmt.Sprintf("ws://%s:%d", host, port))
	if err != nil {
		connErr := xerror.Errorf(
			"unable to open stream connection to %s:%d: %w", host, port, err,
		).AsKind(KindConnectionFailure)
		log.Error(connErr.Error()) //nolint

		c.mu.Lock()
		c.setStatusLocked(StatusError)
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return connErr
	}

	c.mu.Lock()
	c.conn = conn
	c.attempts = 0
	c.setStatusLocked(StatusConnected)
	c.mu.Unlock()

	log.Info("connected to stream at %s:%d", host, port) //nolint
	go c.readLoop(conn)
	return nil
}

// Disconnect cancels any pending reconnection, suppresses automatic
// reconnects and closes the transport.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.manual = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	conn := c.conn
	c.conn = nil
	c.setStatusLocked(StatusDisconnected)
	c.mu.Unlock()

	if conn != nil {
		conn.Close() //nolint
	}
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// FPS reports the smoothed client-side frame arrival rate.
func (c *Client) FPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *Client) readLoop(conn Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.transportClosed(err)
			return
		}
		c.handleMessage(payload)
	}
}

func (c *Client) transportClosed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil && c.manual {
		// close observed after a manual disconnect
		return
	}

	log.Warn("stream connection lost: %v", err) //nolint
	c.conn = nil
	c.setStatusLocked(StatusDisconnected)
	if !c.manual {
		c.scheduleReconnectLocked()
	}
}

func (c *Client) scheduleReconnectLocked() {
	if c.attempts >= c.retryBudget {
		log.Warn("reconnection budget of %d attempts exhausted, giving up", c.retryBudget) //nolint
		return
	}

	delay := c.backoffDelay(c.attempts)
	c.attempts++
	host, port := c.host, c.port
	log.Info("reconnecting to %s:%d in %s (attempt %d of %d)", host, port, delay, c.attempts, c.retryBudget) //nolint

	c.reconnect = time.AfterFunc(delay, func() {
		c.Connect(host, port) //nolint
	})
}

// backoffDelay doubles the base delay for each consecutive attempt:
// 1000, 2000, 4000, 8000, 16000 ms under the defaults.
func (c *Client) backoffDelay(attempt int) time.Duration {
	return c.baseBackoff << attempt
}

func (c *Client) setStatusLocked(s Status) {
	if c.status == s {
		return
	}
	c.status = s
	if c.onStatus != nil {
		c.onStatus(s)
	}
}

var echoPrefix = []byte("Echo:")

func (c *Client) handleMessage(payload []byte) {
	if bytes.HasPrefix(payload, echoPrefix) {
		log.Debug("ignoring diagnostic echo payload") //nolint
		return
	}

	msg, err := parseFrameMessage(payload)
	if err != nil {
		log.Error(err.Error()) //nolint
		return
	}

	plane, err := msg.DecodePlane()
	if err != nil {
		log.Error(xerror.Errorf("unable to decode frame payload: %w", err).AsKind(KindParseFailure).Error()) //nolint
		return
	}
	if len(plane) != msg.FrameSize || len(plane) != msg.Width*msg.Height {
		log.Error(xerror.NewWithKind(
			KindParseFailure, "frame payload length disagrees with declared size",
		).WithParam("decoded", len(plane)).WithParam("declared", msg.FrameSize).Error()) //nolint
		return
	}

	plane, width, height := c.rotation.Apply(plane, msg.Width, msg.Height)
	c.noteFrameArrival()

	if err := c.display.Render(width, height, ExpandGrayToRGBA(plane)); err != nil {
		log.Error("unable to render frame: %v", err) //nolint
	}
}

func (c *Client) noteFrameArrival() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastArrival.IsZero() {
		if dt := now.Sub(c.lastArrival).Seconds(); dt > 0 {
			instantaneous := 1 / dt
			if c.fps == 0 {
				c.fps = instantaneous
			} else {
				c.fps = c.fps*fpsHistoryWeight + instantaneous*(1-fpsHistoryWeight)
			}
		}
	}
	c.lastArrival = now
}
