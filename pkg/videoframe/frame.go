package videoframe

import "time"

// Mode selects the transform applied to raw camera frames.
type Mode int

const (
	ModeGrayscale Mode = iota
	ModeEdgeMap
)

// Label returns the mode name used on the wire.
func (m Mode) Label() string {
	if m == ModeEdgeMap {
		return "Canny Edge Detection"
	}
	return "Grayscale"
}

// ParseMode maps a configuration value onto a Mode; anything other
// than "edges" resolves to grayscale.
func ParseMode(v string) Mode {
	if v == "edges" {
		return ModeEdgeMap
	}
	return ModeGrayscale
}

type Dimensions struct {
	W, H int
}

// Raw is a single captured sensor frame in planar YUV 4:2:0 layout:
// a full-resolution luma plane followed by two quarter-resolution
// chroma planes, W*H*3/2 bytes in total.
type Raw struct {
	Width, Height int
	Pixels        []byte
	CapturedAt    time.Time
}

func (f *Raw) Dimensions() Dimensions {
	return Dimensions{W: f.Width, H: f.Height}
}

// LumaSize reports the byte length of the luma plane.
func (f *Raw) LumaSize() int {
	return f.Width * f.Height
}

// Processed is a single-channel byte plane derived from a Raw frame.
// The pixel slice is owned by whichever consumer received it.
type Processed struct {
	Width, Height int
	Mode          Mode
	Pixels        []byte
	ProducedAt    time.Time
}

func (f *Processed) Dimensions() Dimensions {
	return Dimensions{W: f.Width, H: f.Height}
}
