package broadcast

import (
	"context"
	"fmt"
	"net/http"

	"github.com/edgevision/edgevisiond/pkg/log"
	"github.com/gorilla/websocket"
)

// DefaultPort is the well-known stream port remote viewers dial.
const DefaultPort = 8888

// Server owns the listening side of the broadcast layer: it upgrades
// inbound HTTP connections to websockets and hands them to the
// broadcaster's consumer set.
type Server struct {
	broadcaster *Broadcaster
	srv         *http.Server
	upgrader    websocket.Upgrader
}

func NewServer(broadcaster *Broadcaster, port int) *Server {
	if port < 1 {
		port = DefaultPort
	}

	s := &Server{
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleViewer)
	s.srv = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	return s
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("unable to upgrade viewer connection: %v", err) //nolint
		return
	}
	s.broadcaster.Accept(conn)
}

func (s *Server) Start() {
	go func() {
		log.Info("broadcasting processed frames on %s", s.srv.Addr) //nolint
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("broadcast server failed: %v", err) //nolint
		}
	}()
}

// Shutdown stops accepting new consumers and closes existing ones
// with a normal closure code.
func (s *Server) Shutdown(ctx context.Context) error {
	s.broadcaster.Close()
	return s.srv.Shutdown(ctx)
}
