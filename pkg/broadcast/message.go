package broadcast

import (
	"encoding/base64"
	"time"

	"github.com/edgevision/edgevisiond/pkg/videoframe"
)

// FormatGrayscale is the only pixel format carried on the wire; edge
// maps are binary grayscale planes.
const FormatGrayscale = "Grayscale"

const timestampLayout = "2006-01-02T15:04:05.000Z"

// FrameMessage is the self-describing wire entity sent to every
// remote viewer, one JSON object per frame. FrameSize always equals
// the decoded byte length of FrameData.
type FrameMessage struct {
	Timestamp      string  `json:"timestamp"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Format         string  `json:"format"`
	ProcessingMode string  `json:"processingMode"`
	FPS            float64 `json:"fps"`
	FrameData      string  `json:"frameData"`
	FrameSize      int     `json:"frameSize"`
}

func NewFrameMessage(frame *videoframe.Processed, fps float64) FrameMessage {
	return FrameMessage{
		Timestamp:      time.Now().UTC().Format(timestampLayout),
		Width:          frame.Width,
		Height:         frame.Height,
		Format:         FormatGrayscale,
		ProcessingMode: frame.Mode.Label(),
		FPS:            fps,
		FrameData:      base64.StdEncoding.EncodeToString(frame.Pixels),
		FrameSize:      len(frame.Pixels),
	}
}

// DecodePlane restores the processed byte plane from the message's
// base64 payload.
func (m FrameMessage) DecodePlane() ([]byte, error) {
	return base64.StdEncoding.DecodeString(m.FrameData)
}
