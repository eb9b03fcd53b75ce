package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edgevision/edgevisiond/pkg/framequeue"
	"github.com/edgevision/edgevisiond/pkg/log"
	"github.com/edgevision/edgevisiond/pkg/videoframe"
)

const dequeueWait = 250 * time.Millisecond

const fpsHistoryWeight = 0.9

// Converter turns a raw frame into a single processed plane. The
// returned slice may be scratch-backed and only valid until the next
// call.
type Converter interface {
	Process(frame *videoframe.Raw, mode videoframe.Mode) ([]byte, error)
}

// FrameSink receives every processed frame along with the pipeline's
// smoothed conversion rate. Implementations must not block.
type FrameSink interface {
	Receive(frame *videoframe.Processed, fps float64)
}

// dispatchProcess drains the frame queue, runs the conversion and
// fans the result out to every sink. A conversion failure costs only
// the frame it happened on.
type dispatchProcess struct {
	ctx      context.Context
	cancel   context.CancelFunc
	stopping chan interface{}
	queue    *framequeue.Queue
	convert  Converter
	sinks    []FrameSink

	mode int32

	mu           sync.Mutex
	fps          float64
	lastDispatch time.Time
}

func NewDispatchProcess(queue *framequeue.Queue, convert Converter, mode videoframe.Mode, sinks ...FrameSink) Process {
	ctx, cancel := context.WithCancel(context.Background())
	proc := dispatchProcess{
		ctx: ctx, cancel: cancel,
		stopping: make(chan interface{}),
		queue:    queue,
		convert:  convert,
		sinks:    sinks,
	}
	atomic.StoreInt32(&proc.mode, int32(mode))
	return &proc
}

func (proc *dispatchProcess) Setup() {}

func (proc *dispatchProcess) Start() {
	go proc.run()
}

// SetMode switches the conversion applied to subsequent frames. Safe
// to call while the pipeline is running.
func (proc *dispatchProcess) SetMode(mode videoframe.Mode) {
	atomic.StoreInt32(&proc.mode, int32(mode))
}

func (proc *dispatchProcess) Mode() videoframe.Mode {
	return videoframe.Mode(atomic.LoadInt32(&proc.mode))
}

// FPS reports the smoothed frame conversion rate.
func (proc *dispatchProcess) FPS() float64 {
	proc.mu.Lock()
	defer proc.mu.Unlock()
	return proc.fps
}

func (proc *dispatchProcess) run() {
	for {
		select {
		case <-proc.ctx.Done():
			close(proc.stopping)
			return
		default:
			proc.dispatch()
		}
	}
}

func (proc *dispatchProcess) dispatch() {
	frame, ok := proc.queue.Dequeue(dequeueWait)
	if !ok {
		return
	}

	mode := proc.Mode()
	plane, err := proc.convert.Process(frame, mode)
	if err != nil {
		log.Error("Unable to convert frame: %v", err) //nolint
		return
	}

	// conversion output is scratch-backed, copy before handing out
	pixels := make([]byte, len(plane))
	copy(pixels, plane)

	processed := videoframe.Processed{
		Width:      frame.Width,
		Height:     frame.Height,
		Mode:       mode,
		Pixels:     pixels,
		ProducedAt: time.Now(),
	}

	fps := proc.noteDispatch(processed.ProducedAt)
	for _, sink := range proc.sinks {
		sink.Receive(&processed, fps)
	}
}

func (proc *dispatchProcess) noteDispatch(now time.Time) float64 {
	proc.mu.Lock()
	defer proc.mu.Unlock()

	if !proc.lastDispatch.IsZero() {
		if dt := now.Sub(proc.lastDispatch).Seconds(); dt > 0 {
			instantaneous := 1 / dt
			if proc.fps == 0 {
				proc.fps = instantaneous
			} else {
				proc.fps = proc.fps*fpsHistoryWeight + instantaneous*(1-fpsHistoryWeight)
			}
		}
	}
	proc.lastDispatch = now
	return proc.fps
}

func (proc *dispatchProcess) Stop() {
	proc.cancel()
}

func (proc *dispatchProcess) Wait() {
	<-proc.stopping
}
