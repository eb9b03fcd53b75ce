package viewer

import (
	"time"

	"github.com/edgevision/edgevisiond/pkg/broadcast"
)

// OverrideDialer swaps the websocket dialer for tests, returning a
// restore func.
func OverrideDialer(f func(addr string) (Conn, error)) func() {
	original := dialWebsocket
	dialWebsocket = f
	return func() { dialWebsocket = original }
}

func (c *Client) BackoffDelay(attempt int) time.Duration {
	return c.backoffDelay(attempt)
}

func (c *Client) HandleMessage(payload []byte) {
	c.handleMessage(payload)
}

func ParseFrameMessage(payload []byte) (broadcast.FrameMessage, error) {
	return parseFrameMessage(payload)
}
