package camera

import (
	"context"

	"github.com/edgevision/edgevisiond/pkg/videoframe"
)

// Source is a single open capture device producing raw YUV 4:2:0
// frames.
type Source interface {
	UUID() string
	Read() (*videoframe.Raw, error)
	IsOpen() bool
	Close() error
}

type Backend interface {
	Connect(cancel context.Context, addr string, dims videoframe.Dimensions) (Source, error)
}

func Default() Backend {
	return OpenCV()
}

func OpenCV() Backend {
	return &openCVBackend{}
}

// Mock returns a backend producing a synthetic test pattern without
// touching any capture hardware.
func Mock() Backend {
	return &mockBackend{}
}

func Resolve(t string) Backend {
	switch t {
	case "mock":
		return Mock()
	default:
		return Default()
	}
}
