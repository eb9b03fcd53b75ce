package edgevision

import (
	"context"
	"time"

	"github.com/edgevision/edgevisiond/pkg/broadcast"
	"github.com/edgevision/edgevisiond/pkg/camera"
	"github.com/edgevision/edgevisiond/pkg/configdef"
	"github.com/edgevision/edgevisiond/pkg/framequeue"
	"github.com/edgevision/edgevisiond/pkg/log"
	"github.com/edgevision/edgevisiond/pkg/pipeline"
	"github.com/edgevision/edgevisiond/pkg/render"
	"github.com/edgevision/edgevisiond/pkg/videoframe"
	"github.com/edgevision/edgevisiond/pkg/vision"
)

const shutdownGrace = 5 * time.Second

// ConfigResolver supplies the server's validated configuration.
type ConfigResolver interface {
	Load() (configdef.Values, error)
}

// Server assembles the full frame pipeline: camera capture into the
// bounded queue, conversion and fan-out to the local display hand-off
// and the websocket broadcast.
type Server struct {
	config       configdef.Values
	backend      camera.Backend
	cam          camera.Connection
	engine       *vision.Engine
	queue        *framequeue.Queue
	handoff      *render.Handoff
	renderer     *render.Renderer
	broadcaster  *broadcast.Broadcaster
	streamServer *broadcast.Server
	core         *pipeline.CoreProcess
	shutdownDone chan interface{}
}

func NewServer(resolver ConfigResolver, backend camera.Backend) (*Server, error) {
	cfg, err := resolver.Load()
	if err != nil {
		return nil, err
	}

	s := Server{
		config:       cfg,
		backend:      backend,
		engine:       vision.NewEngineWithThresholds(cfg.Processing.LowThreshold, cfg.Processing.HighThreshold),
		queue:        framequeue.New(),
		handoff:      render.NewHandoff(),
		broadcaster:  broadcast.NewWithThrottle(time.Duration(cfg.Broadcast.ThrottleMillis) * time.Millisecond),
		shutdownDone: make(chan interface{}),
	}
	s.renderer = render.New(s.handoff, render.NoopSurface{}, cfg.Render.RefreshFPS)
	s.streamServer = broadcast.NewServer(s.broadcaster, cfg.Broadcast.Port)
	return &s, nil
}

func (s *Server) Connect() error {
	return s.ConnectWithCancel(context.Background())
}

func (s *Server) ConnectWithCancel(cancel context.Context) error {
	cam := s.config.Camera
	log.Info("Connecting to camera: [%s]...", cam.Title) //nolint

	backend := s.backend
	if cam.Mock {
		backend = camera.Mock()
	}

	conn, err := camera.ConnectWithCancel(cancel, cam.Title, cam.Address, camera.Settings{
		Width:  cam.Width,
		Height: cam.Height,
		FPS:    cam.FPS,
	}, backend)
	if err != nil {
		return err
	}

	log.Info("Connected successfully to camera: [%s]", cam.Title) //nolint
	s.cam = conn
	s.core = pipeline.NewCoreProcess(
		conn, s.queue, s.engine,
		videoframe.ParseMode(s.config.Processing.Mode),
		cam.FPS,
		s.handoff, broadcastSink{s.broadcaster},
	)
	return nil
}

func (s *Server) SetupProcesses() {
	s.core.Setup()
}

func (s *Server) RunProcesses() {
	s.renderer.Start()
	s.streamServer.Start()
	s.core.Start()
}

// SetMode switches the conversion applied to frames from now on.
func (s *Server) SetMode(mode videoframe.Mode) {
	s.core.SetMode(mode)
}

// FPS reports the pipeline's smoothed conversion rate.
func (s *Server) FPS() float64 {
	return s.core.FPS()
}

func (s *Server) shutdown() {
	if s.core != nil {
		s.core.Stop()
		s.core.Wait()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.streamServer.Shutdown(ctx); err != nil {
		log.Error("unable to shut down broadcast server cleanly: %v", err) //nolint
	}

	s.renderer.Stop()
	s.renderer.Wait()

	if s.cam != nil {
		log.Warn("Closing camera connection: [%s]...", s.cam.Title()) //nolint
		s.cam.Close()                                                 //nolint
	}

	s.engine.Close()
	close(s.shutdownDone)
}

func (s *Server) Shutdown() chan interface{} {
	s.shutdown()
	return s.shutdownDone
}

// broadcastSink adapts the broadcaster to the pipeline sink contract;
// throttling decisions stay inside the broadcaster.
type broadcastSink struct {
	b *broadcast.Broadcaster
}

func (s broadcastSink) Receive(frame *videoframe.Processed, fps float64) {
	s.b.MaybeSend(frame, fps)
}
