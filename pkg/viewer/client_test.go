package viewer_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edgevision/edgevisiond/pkg/broadcast"
	"github.com/edgevision/edgevisiond/pkg/videoframe"
	"github.com/edgevision/edgevisiond/pkg/viewer"
	"github.com/matryer/is"
)

type renderedFrame struct {
	width, height int
	pixels        []byte
}

type fakeDisplay struct {
	mu     sync.Mutex
	frames []renderedFrame
}

func (d *fakeDisplay) Render(width, height int, pixels []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, renderedFrame{width, height, append([]byte(nil), pixels...)})
	return nil
}

func (d *fakeDisplay) rendered() []renderedFrame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]renderedFrame(nil), d.frames...)
}

type stubConn struct {
	incoming  chan []byte
	closeOnce sync.Once
}

func newStubConn() *stubConn {
	return &stubConn{incoming: make(chan []byte)}
}

func (s *stubConn) ReadMessage() (int, []byte, error) {
	payload, ok := <-s.incoming
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return 1, payload, nil
}

func (s *stubConn) Close() error {
	s.closeOnce.Do(func() { close(s.incoming) })
	return nil
}

type countingDialer struct {
	mu    sync.Mutex
	calls int
	err   error
	conns []*stubConn
}

func (d *countingDialer) dial(string) (viewer.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	conn := newStubConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *countingDialer) dialed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func framePayload(t *testing.T, width, height int, pixels []byte) []byte {
	t.Helper()
	msg := broadcast.NewFrameMessage(&videoframe.Processed{
		Width: width, Height: height,
		Mode:       videoframe.ModeEdgeMap,
		Pixels:     pixels,
		ProducedAt: time.Now(),
	}, 15)
	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	return payload
}

func TestBackoffDelayDoublesPerAttempt(t *testing.T) {
	is := is.New(t)
	c := viewer.New(&fakeDisplay{})

	expected := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for attempt, want := range expected {
		is.Equal(c.BackoffDelay(attempt), want)
	}
}

func TestFailedDialRetriesUntilBudgetExhausted(t *testing.T) {
	is := is.New(t)
	dialer := &countingDialer{err: errors.New("connection refused")}
	restore := viewer.OverrideDialer(dialer.dial)
	defer restore()

	c := viewer.New(&fakeDisplay{}, viewer.WithRetryPolicy(3, time.Millisecond*2))
	is.True(c.Connect("testhost", 8888) != nil)

	// initial attempt plus the full retry budget
	deadline := time.Now().Add(time.Second)
	for dialer.dialed() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond * 2)
	}
	is.Equal(dialer.dialed(), 4)

	time.Sleep(time.Millisecond * 50)
	is.Equal(dialer.dialed(), 4)
	is.Equal(c.Status(), viewer.StatusError)
}

func TestManualDisconnectSuppressesReconnect(t *testing.T) {
	is := is.New(t)
	dialer := &countingDialer{}
	restore := viewer.OverrideDialer(dialer.dial)
	defer restore()

	c := viewer.New(&fakeDisplay{}, viewer.WithRetryPolicy(5, time.Millisecond))
	is.NoErr(c.Connect("testhost", 8888))
	is.Equal(c.Status(), viewer.StatusConnected)

	c.Disconnect()
	is.Equal(c.Status(), viewer.StatusDisconnected)

	time.Sleep(time.Millisecond * 50)
	is.Equal(dialer.dialed(), 1)
}

func TestTransportLossSchedulesReconnect(t *testing.T) {
	is := is.New(t)
	dialer := &countingDialer{}
	restore := viewer.OverrideDialer(dialer.dial)
	defer restore()

	c := viewer.New(&fakeDisplay{}, viewer.WithRetryPolicy(5, time.Millisecond))
	is.NoErr(c.Connect("testhost", 8888))

	// dropping the transport from the far side triggers a redial
	dialer.conns[0].Close()

	deadline := time.Now().Add(time.Second)
	for dialer.dialed() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond * 2)
	}
	is.True(dialer.dialed() >= 2)
	c.Disconnect()
}

func TestStatusListenerSeesTransitions(t *testing.T) {
	is := is.New(t)
	dialer := &countingDialer{}
	restore := viewer.OverrideDialer(dialer.dial)
	defer restore()

	var mu sync.Mutex
	var transitions []viewer.Status
	c := viewer.New(&fakeDisplay{}, viewer.WithStatusListener(func(s viewer.Status) {
		mu.Lock()
		transitions = append(transitions, s)
		mu.Unlock()
	}))

	is.NoErr(c.Connect("testhost", 8888))
	c.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	is.Equal(transitions, []viewer.Status{
		viewer.StatusConnecting,
		viewer.StatusConnected,
		viewer.StatusDisconnected,
	})
}

func TestEchoPayloadIsIgnored(t *testing.T) {
	is := is.New(t)
	display := &fakeDisplay{}
	c := viewer.New(display)

	c.HandleMessage([]byte("Echo: diagnostics ping"))
	is.Equal(len(display.rendered()), 0)
}

func TestMalformedPayloadIsDiscardedWithoutRender(t *testing.T) {
	is := is.New(t)
	display := &fakeDisplay{}
	c := viewer.New(display)

	c.HandleMessage([]byte("{not json"))
	c.HandleMessage([]byte(`{"timestamp":"2026-01-01T00:00:00.000Z","width":4}`))
	c.HandleMessage([]byte(`{"timestamp":"x","width":"four","height":4,"format":"Grayscale","processingMode":"Grayscale","fps":1,"frameData":"","frameSize":0}`))
	is.Equal(len(display.rendered()), 0)
}

func TestDeclaredSizeMismatchIsDiscarded(t *testing.T) {
	is := is.New(t)
	display := &fakeDisplay{}
	c := viewer.New(display)

	payload := framePayload(t, 4, 4, make([]byte, 16))
	var raw map[string]interface{}
	is.NoErr(json.Unmarshal(payload, &raw))
	raw["frameSize"] = 99
	payload, err := json.Marshal(raw)
	is.NoErr(err)

	c.HandleMessage(payload)
	is.Equal(len(display.rendered()), 0)
}

func TestValidFrameIsExpandedToOpaquePixels(t *testing.T) {
	is := is.New(t)
	display := &fakeDisplay{}
	c := viewer.New(display)

	plane := []byte{0, 64, 128, 255, 10, 20, 30, 40}
	c.HandleMessage(framePayload(t, 4, 2, plane))

	frames := display.rendered()
	is.Equal(len(frames), 1)
	is.Equal(frames[0].width, 4)
	is.Equal(frames[0].height, 2)
	is.Equal(len(frames[0].pixels), len(plane)*4)
	for i, v := range plane {
		is.Equal(frames[0].pixels[i*4], v)
		is.Equal(frames[0].pixels[i*4+1], v)
		is.Equal(frames[0].pixels[i*4+2], v)
		is.Equal(frames[0].pixels[i*4+3], byte(255))
	}
}

func TestRotationAppliedBeforeDisplay(t *testing.T) {
	is := is.New(t)
	display := &fakeDisplay{}
	c := viewer.New(display, viewer.WithRotation(videoframe.Rotate90))

	c.HandleMessage(framePayload(t, 4, 2, make([]byte, 8)))

	frames := display.rendered()
	is.Equal(len(frames), 1)
	is.Equal(frames[0].width, 2)
	is.Equal(frames[0].height, 4)
}

func TestFrameArrivalsDriveSmoothedFPS(t *testing.T) {
	is := is.New(t)
	display := &fakeDisplay{}
	c := viewer.New(display)
	payload := framePayload(t, 4, 2, make([]byte, 8))

	c.HandleMessage(payload)
	is.Equal(c.FPS(), float64(0))

	time.Sleep(time.Millisecond * 10)
	c.HandleMessage(payload)
	is.True(c.FPS() > 0)
}

func TestParseRejectsEachMissingField(t *testing.T) {
	is := is.New(t)
	full := framePayload(t, 4, 2, make([]byte, 8))

	var raw map[string]interface{}
	is.NoErr(json.Unmarshal(full, &raw))

	for field := range raw {
		partial := map[string]interface{}{}
		for k, v := range raw {
			if k != field {
				partial[k] = v
			}
		}
		payload, err := json.Marshal(partial)
		is.NoErr(err)

		_, err = viewer.ParseFrameMessage(payload)
		is.True(err != nil)
	}

	msg, err := viewer.ParseFrameMessage(full)
	is.NoErr(err)
	is.Equal(msg.Width, 4)
	is.Equal(msg.ProcessingMode, "Canny Edge Detection")
}
