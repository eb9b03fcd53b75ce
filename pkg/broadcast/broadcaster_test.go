package broadcast_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edgevision/edgevisiond/pkg/broadcast"
	"github.com/edgevision/edgevisiond/pkg/videoframe"
	"github.com/gorilla/websocket"
	"github.com/matryer/is"
)

type sentMessage struct {
	messageType int
	payload     []byte
}

type fakeConn struct {
	mu       sync.Mutex
	written  []sentMessage
	writeErr error
	closed   bool
	incoming chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	payload, ok := <-f.incoming
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return websocket.TextMessage, payload, nil
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, sentMessage{messageType, append([]byte(nil), data...)})
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.incoming)
	}
	return nil
}

func (f *fakeConn) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.written...)
}

func edgeFrame(width, height int) *videoframe.Processed {
	pixels := make([]byte, width*height)
	for i := range pixels {
		if i%7 == 0 {
			pixels[i] = 255
		}
	}
	return &videoframe.Processed{
		Width: width, Height: height,
		Mode:       videoframe.ModeEdgeMap,
		Pixels:     pixels,
		ProducedAt: time.Now(),
	}
}

func TestMaybeSendIsNoOpWithNoConsumers(t *testing.T) {
	is := is.New(t)
	b := broadcast.New()

	is.True(!b.MaybeSend(edgeFrame(4, 4), 10))
}

func TestSecondSendWithinThrottleIntervalIsNoOp(t *testing.T) {
	is := is.New(t)
	b := broadcast.New()
	conn := newFakeConn()
	b.Accept(conn)
	defer b.Close()

	is.True(b.MaybeSend(edgeFrame(4, 4), 10))
	is.True(!b.MaybeSend(edgeFrame(4, 4), 10))
	is.Equal(len(conn.sent()), 1)
}

func TestFrameMessageCarriesFrameVerbatim(t *testing.T) {
	is := is.New(t)
	b := broadcast.New()
	conn := newFakeConn()
	b.Accept(conn)
	defer b.Close()

	frame := edgeFrame(8, 6)
	is.True(b.MaybeSend(frame, 24.5))

	sent := conn.sent()
	is.Equal(len(sent), 1)
	is.Equal(sent[0].messageType, websocket.TextMessage)

	var msg broadcast.FrameMessage
	is.NoErr(json.Unmarshal(sent[0].payload, &msg))
	is.Equal(msg.Width, 8)
	is.Equal(msg.Height, 6)
	is.Equal(msg.Format, "Grayscale")
	is.Equal(msg.ProcessingMode, "Canny Edge Detection")
	is.Equal(msg.FPS, 24.5)
	is.Equal(msg.FrameSize, 48)

	_, err := time.Parse("2006-01-02T15:04:05.000Z", msg.Timestamp)
	is.NoErr(err)

	plane, err := msg.DecodePlane()
	is.NoErr(err)
	is.Equal(plane, frame.Pixels)
}

func TestFailingConsumerPrunedAfterSingleAttempt(t *testing.T) {
	is := is.New(t)
	b := broadcast.NewWithThrottle(0)
	healthy := newFakeConn()
	failing := newFakeConn()
	failing.writeErr = errors.New("broken pipe")

	b.Accept(healthy)
	b.Accept(failing)
	defer b.Close()
	is.Equal(b.Connected(), 2)

	is.True(b.MaybeSend(edgeFrame(4, 4), 10))
	is.Equal(b.Connected(), 1)
	is.Equal(len(healthy.sent()), 1)

	// pruned consumer sees no further attempts
	is.True(b.MaybeSend(edgeFrame(4, 4), 10))
	is.Equal(len(healthy.sent()), 2)
}

func TestInboundTextPayloadIsEchoedBack(t *testing.T) {
	is := is.New(t)
	b := broadcast.New()
	conn := newFakeConn()
	b.Accept(conn)
	defer b.Close()

	conn.incoming <- []byte("ping")

	deadline := time.Now().Add(time.Second)
	for len(conn.sent()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond * 5)
	}

	sent := conn.sent()
	is.Equal(len(sent), 1)
	is.Equal(string(sent[0].payload), "Echo: ping")
}

func TestCloseSendsNormalClosureAndEmptiesSet(t *testing.T) {
	is := is.New(t)
	b := broadcast.New()
	conn := newFakeConn()
	b.Accept(conn)

	b.Close()
	is.Equal(b.Connected(), 0)

	sent := conn.sent()
	is.Equal(len(sent), 1)
	is.Equal(sent[0].messageType, websocket.CloseMessage)
}
