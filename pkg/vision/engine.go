package vision

import (
	"image"

	"github.com/edgevision/edgevisiond/pkg/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

const (
	DefaultLowThreshold  float32 = 50
	DefaultHighThreshold float32 = 150

	blurKernelSize = 5
	blurSigma      = 1.5
)

const (
	KindInvalidDimensions = xerror.Kind("INVALID_DIMENSIONS")
	KindProcessingFailure = xerror.Kind("PROCESSING_FAILURE")
	KindAllocationFailure = xerror.Kind("ALLOCATION_FAILURE")
)

// Engine converts raw planar YUV 4:2:0 frames into grayscale or edge
// map planes. It keeps three scratch planes (gray, blurred, edges)
// sized to the last seen dimensions and reuses them across calls, so
// returned slices are only valid until the next conversion call and
// callers must copy out anything they intend to keep.
//
// An Engine is not safe for concurrent use. The dispatch loop owns
// the only reference in the running pipeline.
type Engine struct {
	lowThreshold  float32
	highThreshold float32

	gray    gocv.Mat
	blurred gocv.Mat
	edges   gocv.Mat
}

func NewEngine() *Engine {
	return NewEngineWithThresholds(DefaultLowThreshold, DefaultHighThreshold)
}

func NewEngineWithThresholds(low, high float32) *Engine {
	return &Engine{
		lowThreshold:  low,
		highThreshold: high,
		gray:          gocv.NewMat(),
		blurred:       gocv.NewMat(),
		edges:         gocv.NewMat(),
	}
}

// SetThresholds changes the dual gradient thresholds applied by all
// subsequent ToEdgeMap calls.
func (e *Engine) SetThresholds(low, high float32) {
	e.lowThreshold = low
	e.highThreshold = high
}

func (e *Engine) Thresholds() (low, high float32) {
	return e.lowThreshold, e.highThreshold
}

// Process runs the conversion selected by mode. Panics raised inside
// the underlying vision library are caught and surfaced as errors so
// a single bad frame never takes the pipeline down with it.
func (e *Engine) Process(frame *videoframe.Raw, mode videoframe.Mode) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = xerror.NewWithKind(KindProcessingFailure, "conversion panicked").WithParam("cause", r)
		}
	}()

	if mode == videoframe.ModeEdgeMap {
		return e.ToEdgeMap(frame)
	}
	return e.ToGrayscale(frame)
}

// ToGrayscale extracts the luma plane of the frame verbatim into the
// reused gray scratch plane. No colorspace math is involved, the Y
// plane of YUV 4:2:0 already is the grayscale image.
func (e *Engine) ToGrayscale(frame *videoframe.Raw) ([]byte, error) {
	if err := checkDimensions(frame.Width, frame.Height); err != nil {
		return nil, err
	}

	lumaSize := frame.LumaSize()
	if len(frame.Pixels) < lumaSize {
		return nil, xerror.NewWithKind(
			KindProcessingFailure, "frame pixel data shorter than luma plane",
		).WithParam("have", len(frame.Pixels)).WithParam("want", lumaSize)
	}

	ensureScratch(&e.gray, frame.Width, frame.Height)
	data, err := e.gray.DataPtrUint8()
	if err != nil {
		return nil, xerror.Errorf("unable to obtain gray plane buffer: %w", err).AsKind(KindAllocationFailure)
	}

	copy(data, frame.Pixels[:lumaSize])
	return data, nil
}

// ToEdgeMap produces a binary (0 or 255) edge mask of the frame:
// grayscale extraction, then a 5x5 Gaussian smoothing pass to knock
// out sensor noise, then Canny edge detection with the configured
// dual thresholds and a 3 pixel aperture.
func (e *Engine) ToEdgeMap(frame *videoframe.Raw) ([]byte, error) {
	if _, err := e.ToGrayscale(frame); err != nil {
		return nil, err
	}

	ensureScratch(&e.blurred, frame.Width, frame.Height)
	ensureScratch(&e.edges, frame.Width, frame.Height)

	gocv.GaussianBlur(
		e.gray, &e.blurred,
		image.Pt(blurKernelSize, blurKernelSize),
		blurSigma, blurSigma, gocv.BorderDefault,
	)
	gocv.Canny(e.blurred, &e.edges, e.lowThreshold, e.highThreshold)

	data, err := e.edges.DataPtrUint8()
	if err != nil {
		return nil, xerror.Errorf("unable to obtain edge plane buffer: %w", err).AsKind(KindAllocationFailure)
	}
	return data, nil
}

// Close releases the scratch planes. The engine must not be used
// afterwards.
func (e *Engine) Close() {
	e.gray.Close()
	e.blurred.Close()
	e.edges.Close()
}

// ensureScratch reallocates a scratch plane only when its dimensions
// no longer match, keeping allocation churn off the hot path for a
// fixed-resolution capture stream.
func ensureScratch(m *gocv.Mat, width, height int) {
	if m.Cols() == width && m.Rows() == height {
		return
	}
	m.Close()
	*m = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
}

func checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return xerror.NewWithKind(
			KindInvalidDimensions, "frame dimensions must be positive",
		).WithParam("width", width).WithParam("height", height)
	}
	return nil
}
