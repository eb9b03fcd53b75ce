package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/edgevision/edgevisiond/pkg/log"
	"github.com/edgevision/edgevisiond/pkg/videoframe"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultThrottle caps outbound sends at 10 Hz regardless of how
	// fast frames are processed.
	DefaultThrottle = time.Millisecond * 100

	// EchoPrefix marks diagnostic echo payloads; viewers must not
	// treat them as frames.
	EchoPrefix = "Echo: "

	defaultWriteTimeout = time.Second * 2
)

// Conn is the subset of a websocket connection the broadcaster needs,
// kept narrow so tests can stand in fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// ConnectionRecord tracks one live remote consumer. Membership in the
// broadcaster's consumer set is its only state.
type ConnectionRecord struct {
	uuid    string
	conn    Conn
	writeMu sync.Mutex
}

func (r *ConnectionRecord) UUID() string {
	return r.uuid
}

func (r *ConnectionRecord) write(messageType int, payload []byte, timeout time.Duration) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.conn.SetWriteDeadline(time.Now().Add(timeout)) //nolint
	return r.conn.WriteMessage(messageType, payload)
}

// Broadcaster fans rate-limited frame messages out to every connected
// remote consumer. A consumer whose send fails once is pruned, not
// retried; sends are best-effort and bounded by a write deadline so a
// slow consumer can never stall the dispatch loop.
type Broadcaster struct {
	mu           sync.Mutex
	consumers    map[string]*ConnectionRecord
	throttle     time.Duration
	writeTimeout time.Duration
	lastSent     time.Time
}

func New() *Broadcaster {
	return NewWithThrottle(DefaultThrottle)
}

func NewWithThrottle(throttle time.Duration) *Broadcaster {
	return &Broadcaster{
		consumers:    map[string]*ConnectionRecord{},
		throttle:     throttle,
		writeTimeout: defaultWriteTimeout,
	}
}

// Accept adds a consumer to the set and starts its read loop, which
// answers inbound text payloads with diagnostic echoes until the
// connection dies.
func (b *Broadcaster) Accept(conn Conn) *ConnectionRecord {
	rec := &ConnectionRecord{uuid: uuid.NewString(), conn: conn}

	b.mu.Lock()
	b.consumers[rec.uuid] = rec
	count := len(b.consumers)
	b.mu.Unlock()

	log.Info("viewer [%s] connected, %d viewer(s) now streaming", rec.uuid, count) //nolint

	go b.readLoop(rec)
	return rec
}

func (b *Broadcaster) readLoop(rec *ConnectionRecord) {
	for {
		messageType, payload, err := rec.conn.ReadMessage()
		if err != nil {
			b.Remove(rec)
			return
		}
		if messageType == websocket.TextMessage && len(payload) > 0 {
			if err := rec.write(websocket.TextMessage, append([]byte(EchoPrefix), payload...), b.writeTimeout); err != nil {
				b.Remove(rec)
				return
			}
		}
	}
}

// Remove drops a consumer from the set and closes its transport.
// Idempotent; safe to call from any goroutine.
func (b *Broadcaster) Remove(rec *ConnectionRecord) {
	b.mu.Lock()
	_, present := b.consumers[rec.uuid]
	delete(b.consumers, rec.uuid)
	count := len(b.consumers)
	b.mu.Unlock()

	if !present {
		return
	}

	rec.conn.Close() //nolint
	log.Info("viewer [%s] disconnected, %d viewer(s) still streaming", rec.uuid, count) //nolint
}

// Connected reports the current consumer set size.
func (b *Broadcaster) Connected() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.consumers)
}

// MaybeSend serializes the frame and fans it out to every consumer,
// unless the consumer set is empty or the previous send was within
// the throttle interval, in which case it is a no-op returning false.
// It returns true once the attempt is made; individual consumer
// failures prune that consumer and never fail the send as a whole.
func (b *Broadcaster) MaybeSend(frame *videoframe.Processed, fps float64) bool {
	b.mu.Lock()
	if len(b.consumers) == 0 || time.Since(b.lastSent) < b.throttle {
		b.mu.Unlock()
		return false
	}
	b.lastSent = time.Now()

	// snapshot under lock so pruning mid-send never tears the set
	snapshot := make([]*ConnectionRecord, 0, len(b.consumers))
	for _, rec := range b.consumers {
		snapshot = append(snapshot, rec)
	}
	b.mu.Unlock()

	payload, err := json.Marshal(NewFrameMessage(frame, fps))
	if err != nil {
		log.Error("unable to serialise frame message: %v", err) //nolint
		return false
	}

	for _, rec := range snapshot {
		if err := rec.write(websocket.TextMessage, payload, b.writeTimeout); err != nil {
			log.Warn("dropping viewer [%s] after failed send: %v", rec.uuid, err) //nolint
			b.Remove(rec)
		}
	}
	return true
}

// Close prunes every consumer, closing each transport with a normal
// closure code. New consumers may still be accepted afterwards; the
// owning server stops the listener first during shutdown.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	snapshot := make([]*ConnectionRecord, 0, len(b.consumers))
	for _, rec := range b.consumers {
		snapshot = append(snapshot, rec)
	}
	b.consumers = map[string]*ConnectionRecord{}
	b.mu.Unlock()

	closure := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream shutting down")
	for _, rec := range snapshot {
		rec.write(websocket.CloseMessage, closure, b.writeTimeout) //nolint
		rec.conn.Close()                                           //nolint
	}
}
