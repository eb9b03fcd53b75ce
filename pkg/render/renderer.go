package render

import (
	"context"
	"time"

	"github.com/edgevision/edgevisiond/pkg/log"
)

// Surface is the GPU collaborator the display loop uploads frames
// to. Shader compilation and draw submission live behind it; the
// display loop only ever hands over single-channel pixel planes.
type Surface interface {
	UploadTexture(textureID uint32, width, height int, pixels []byte) error
	Release()
}

const DefaultRefreshRate = 60

// Renderer drains the hand-off slot on its own display-refresh
// cadence and uploads whatever frame is current. Missing a tick or
// finding the slot empty is normal operation, not an error.
type Renderer struct {
	handoff   *Handoff
	surface   Surface
	textureID uint32
	interval  time.Duration
	cancel    context.CancelFunc
	stopping  chan struct{}
}

func New(handoff *Handoff, surface Surface, refreshRate int) *Renderer {
	if refreshRate < 1 {
		refreshRate = DefaultRefreshRate
	}
	return &Renderer{
		handoff:  handoff,
		surface:  surface,
		interval: time.Second / time.Duration(refreshRate),
		stopping: make(chan struct{}),
	}
}

func (r *Renderer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.run(ctx)
}

func (r *Renderer) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(r.stopping)
			return
		case <-ticker.C:
			r.drawCurrentFrame()
		}
	}
}

func (r *Renderer) drawCurrentFrame() {
	frame := r.handoff.Take()
	if frame == nil {
		return
	}

	r.handoff.BeginDraw()
	defer r.handoff.EndDraw()

	if err := r.surface.UploadTexture(r.textureID, frame.Width, frame.Height, frame.Pixels); err != nil {
		log.Error("unable to upload frame to render surface: %v", err) //nolint
	}
}

// Stop halts the display loop and releases the surface's GPU
// resources once the in-flight draw (if any) has finished.
func (r *Renderer) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Renderer) Wait() {
	<-r.stopping
	r.surface.Release()
}

// NoopSurface satisfies Surface for deployments with no local display
// attached; frames are consumed and discarded.
type NoopSurface struct{}

func (NoopSurface) UploadTexture(uint32, int, int, []byte) error { return nil }
func (NoopSurface) Release()                                     {}
