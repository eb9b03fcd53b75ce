package framequeue

import (
	"sync"
	"time"

	"github.com/edgevision/edgevisiond/pkg/videoframe"
)

// DefaultCapacity bounds worst case end-to-end latency to roughly
// three capture intervals.
const DefaultCapacity = 3

// Queue decouples the fixed-rate capture producer from the variable
// latency conversion consumer. It holds at most its capacity of raw
// frames; admitting a frame into a full queue evicts the oldest entry
// first, since the newest frame is the most relevant one for a live
// display.
//
// Once stopped the queue is terminal: enqueues are rejected and any
// blocked dequeue returns not-available.
type Queue struct {
	mu      sync.Mutex
	frames  chan *videoframe.Raw
	stop    chan struct{}
	stopped bool
	dropped uint64
}

func New() *Queue {
	return WithCapacity(DefaultCapacity)
}

func WithCapacity(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		frames: make(chan *videoframe.Raw, capacity),
		stop:   make(chan struct{}),
	}
}

// Enqueue admits a frame, evicting the oldest queued entry if the
// queue is full. It reports whether the frame was admitted; a stopped
// queue always rejects.
func (q *Queue) Enqueue(frame *videoframe.Raw) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}

	for {
		select {
		case q.frames <- frame:
			return true
		default:
		}

		select {
		case <-q.frames:
			q.dropped++
		default:
		}
	}
}

// Dequeue blocks up to timeout for the oldest queued frame. The
// second return value reports availability; it is false on timeout
// and always false once the queue has stopped.
func (q *Queue) Dequeue(timeout time.Duration) (*videoframe.Raw, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-q.stop:
		return nil, false
	case frame := <-q.frames:
		return frame, true
	case <-timer.C:
		return nil, false
	}
}

// Stop transitions the queue to its terminal state, evicts everything
// still queued and unblocks any waiting dequeue. Idempotent.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return
	}
	q.stopped = true
	close(q.stop)

	for {
		select {
		case <-q.frames:
		default:
			return
		}
	}
}

// Dropped reports how many frames have been evicted to make room for
// newer ones.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Len reports how many frames are currently queued.
func (q *Queue) Len() int {
	return len(q.frames)
}
