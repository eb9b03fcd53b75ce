package camera

import (
	"context"
	"sync"
	"time"

	"github.com/edgevision/edgevisiond/pkg/videoframe"
	"github.com/google/uuid"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

type openCVBackend struct{}

func (b *openCVBackend) Connect(cancel context.Context, addr string, dims videoframe.Dimensions) (Source, error) {
	conn := openCVSource{dims: dims}
	if err := conn.connect(cancel, addr); err != nil {
		return nil, err
	}
	return &conn, nil
}

type openCVSource struct {
	uuid   string
	dims   videoframe.Dimensions
	mu     sync.Mutex
	isOpen bool
	vc     *gocv.VideoCapture
	bgr    gocv.Mat
	yuv    gocv.Mat
}

func (c *openCVSource) connect(cancel context.Context, addr string) error {
	connAndError := make(chan openVideoStreamResult)
	go openVideoStream(addr, connAndError)
	select {
	case r := <-connAndError:
		if r.err != nil {
			return r.err
		}
		c.vc = r.vc
		if c.dims.W > 0 {
			c.vc.Set(gocv.VideoCaptureFrameWidth, float64(c.dims.W))
		}
		if c.dims.H > 0 {
			c.vc.Set(gocv.VideoCaptureFrameHeight, float64(c.dims.H))
		}
		c.bgr = gocv.NewMat()
		c.yuv = gocv.NewMat()
		c.isOpen = true
		return nil
	case <-cancel.Done():
		return xerror.New("connection cancelled").AsKind(KindConnectionFailure)
	}
}

type openVideoStreamResult struct {
	vc  *gocv.VideoCapture
	err error
}

func openVideoStream(addr string, d chan openVideoStreamResult) {
	vc, err := openVideoCapture(addr)
	d <- openVideoStreamResult{vc: vc, err: err}
}

var openVideoCapture = func(addr string) (*gocv.VideoCapture, error) {
	return gocv.OpenVideoCapture(addr)
}

var readFromVideoConnection = func(vc *gocv.VideoCapture, mat *gocv.Mat) bool {
	if vc.IsOpened() {
		return vc.Read(mat)
	}
	return false
}

func (c *openCVSource) UUID() string {
	if len(c.uuid) == 0 {
		c.uuid = uuid.NewString()
	}
	return c.uuid
}

// Read grabs the next device frame and repacks it as planar
// YUV 4:2:0, the layout the processing engine expects.
func (c *openCVSource) Read() (*videoframe.Raw, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !readFromVideoConnection(c.vc, &c.bgr) {
		return nil, xerror.New("unable to read from video connection").AsKind(KindConnectionFailure)
	}

	width, height := c.bgr.Cols(), c.bgr.Rows()
	gocv.CvtColor(c.bgr, &c.yuv, gocv.ColorBGRToYUVI420)

	return &videoframe.Raw{
		Width:      width,
		Height:     height,
		Pixels:     c.yuv.ToBytes(),
		CapturedAt: time.Now(),
	}, nil
}

func (c *openCVSource) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isOpen {
		return c.vc.IsOpened()
	}
	return false
}

func (c *openCVSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return nil
	}
	c.isOpen = false
	c.bgr.Close()
	c.yuv.Close()
	return c.vc.Close()
}
