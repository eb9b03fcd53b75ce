package camera

import (
	"context"
	"sync"

	"github.com/edgevision/edgevisiond/pkg/videoframe"
	"github.com/google/uuid"
	"github.com/tauraamui/xerror"
)

const KindConnectionFailure = xerror.Kind("CONNECTION_FAILURE")

type Connection interface {
	UUID() string
	Title() string
	Read() (*videoframe.Raw, error)
	IsOpen() bool
	IsClosing() bool
	Close() error
}

type connection struct {
	uuid      string
	title     string
	sett      Settings
	mu        sync.Mutex
	isClosing bool
	source    Source
}

func (c *connection) UUID() string {
	return c.uuid
}

func (c *connection) Title() string {
	return c.title
}

func (c *connection) Read() (*videoframe.Raw, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source.Read()
}

func (c *connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source.IsOpen()
}

func (c *connection) IsClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClosing
}

func (c *connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isClosing = true
	return c.source.Close()
}

func connect(ctx context.Context, title, addr string, settings Settings, backend Backend) (Connection, error) {
	source, err := backend.Connect(ctx, addr, videoframe.Dimensions{
		W: settings.Width, H: settings.Height,
	})
	if err != nil {
		return nil, xerror.Errorf(
			"unable to connect to camera [%s]: %w", title, err,
		).AsKind(KindConnectionFailure)
	}
	return &connection{
		uuid:   uuid.NewString(),
		title:  title,
		sett:   settings,
		source: source,
	}, nil
}

func Connect(title, addr string, settings Settings, backend Backend) (Connection, error) {
	return connect(context.Background(), title, addr, settings, backend)
}

func ConnectWithCancel(cancel context.Context, title, addr string, settings Settings, backend Backend) (Connection, error) {
	return connect(cancel, title, addr, settings, backend)
}
