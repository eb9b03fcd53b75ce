package render

import (
	"sync"

	"github.com/edgevision/edgevisiond/pkg/videoframe"
)

// Handoff is the single-slot mailbox between the dispatch loop and
// the display loop. Publishing overwrites the slot unless a draw is
// in flight, in which case the incoming frame is dropped and counted.
// The renderer always shows the most recent available frame, it never
// queues.
type Handoff struct {
	mu      sync.Mutex
	frame   *videoframe.Processed
	drawing bool
	dropped uint64
}

func NewHandoff() *Handoff {
	return &Handoff{}
}

// Publish offers a frame to the display loop. It reports whether the
// frame was stored; publishes during an in-flight draw are dropped.
func (h *Handoff) Publish(frame *videoframe.Processed) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.drawing {
		h.dropped++
		return false
	}
	h.frame = frame
	return true
}

// Receive satisfies the pipeline sink contract; the processing FPS
// estimate is of no interest to the local display.
func (h *Handoff) Receive(frame *videoframe.Processed, _ float64) {
	h.Publish(frame)
}

// Take removes and returns the slot's current frame, or nil when the
// slot is empty.
func (h *Handoff) Take() *videoframe.Processed {
	h.mu.Lock()
	defer h.mu.Unlock()

	frame := h.frame
	h.frame = nil
	return frame
}

// BeginDraw marks a draw as in flight; publishes are dropped until
// EndDraw.
func (h *Handoff) BeginDraw() {
	h.mu.Lock()
	h.drawing = true
	h.mu.Unlock()
}

func (h *Handoff) EndDraw() {
	h.mu.Lock()
	h.drawing = false
	h.mu.Unlock()
}

// Dropped reports how many publishes were rejected mid-draw.
func (h *Handoff) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
