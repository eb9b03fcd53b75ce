package pipeline

import (
	"context"
	"time"

	"github.com/edgevision/edgevisiond/pkg/camera"
	"github.com/edgevision/edgevisiond/pkg/framequeue"
	"github.com/edgevision/edgevisiond/pkg/log"
)

// captureProcess pulls raw frames off the camera at a fixed cadence
// and admits them into the bounded frame queue. Read failures are
// logged and skipped, the ticker keeps the cadence.
type captureProcess struct {
	ctx      context.Context
	cancel   context.CancelFunc
	stopping chan interface{}
	cam      camera.Connection
	queue    *framequeue.Queue
	interval time.Duration
}

func NewCaptureProcess(cam camera.Connection, queue *framequeue.Queue, fps int) Process {
	if fps < 1 {
		fps = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &captureProcess{
		ctx: ctx, cancel: cancel,
		stopping: make(chan interface{}),
		cam:      cam,
		queue:    queue,
		interval: time.Second / time.Duration(fps),
	}
}

func (proc *captureProcess) Setup() {}

func (proc *captureProcess) Start() {
	go proc.run()
}

func (proc *captureProcess) run() {
	ticker := time.NewTicker(proc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-proc.ctx.Done():
			close(proc.stopping)
			return
		case <-ticker.C:
			proc.capture()
		}
	}
}

func (proc *captureProcess) capture() {
	if !proc.cam.IsOpen() || proc.cam.IsClosing() {
		return
	}

	log.Debug("Reading frame from camera [%s]", proc.cam.Title()) //nolint
	frame, err := proc.cam.Read()
	if err != nil {
		log.Error("Unable to retrieve frame from camera [%s]: %v", proc.cam.Title(), err) //nolint
		return
	}

	if !proc.queue.Enqueue(frame) {
		log.Debug("Frame queue stopped, discarding frame") //nolint
	}
}

func (proc *captureProcess) Stop() {
	proc.cancel()
}

func (proc *captureProcess) Wait() {
	<-proc.stopping
}
