package pipeline

import (
	"sync"

	"github.com/edgevision/edgevisiond/pkg/camera"
	"github.com/edgevision/edgevisiond/pkg/framequeue"
	"github.com/edgevision/edgevisiond/pkg/videoframe"
)

// CoreProcess wires a capture loop and a dispatch loop around the
// shared frame queue. Stopping the core also stops the queue so both
// loops unblock promptly.
type CoreProcess struct {
	cam      camera.Connection
	queue    *framequeue.Queue
	capture  Process
	dispatch *dispatchProcess
}

func NewCoreProcess(cam camera.Connection, queue *framequeue.Queue, convert Converter, mode videoframe.Mode, fps int, sinks ...FrameSink) *CoreProcess {
	return &CoreProcess{
		cam:      cam,
		queue:    queue,
		capture:  NewCaptureProcess(cam, queue, fps),
		dispatch: NewDispatchProcess(queue, convert, mode, sinks...).(*dispatchProcess),
	}
}

func (proc *CoreProcess) Setup() {
	proc.capture.Setup()
	proc.dispatch.Setup()
}

func (proc *CoreProcess) Start() {
	proc.dispatch.Start()
	proc.capture.Start()
}

// SetMode switches the conversion applied to frames from now on.
func (proc *CoreProcess) SetMode(mode videoframe.Mode) {
	proc.dispatch.SetMode(mode)
}

func (proc *CoreProcess) Mode() videoframe.Mode {
	return proc.dispatch.Mode()
}

// FPS reports the smoothed conversion rate of the dispatch loop.
func (proc *CoreProcess) FPS() float64 {
	return proc.dispatch.FPS()
}

func (proc *CoreProcess) Stop() {
	proc.capture.Stop()
	proc.dispatch.Stop()
	proc.queue.Stop()
}

func (proc *CoreProcess) Wait() {
	wg := sync.WaitGroup{}
	wg.Add(2)
	go func(wg *sync.WaitGroup) {
		proc.capture.Wait()
		wg.Done()
	}(&wg)
	go func(wg *sync.WaitGroup) {
		proc.dispatch.Wait()
		wg.Done()
	}(&wg)
	wg.Wait()
}
