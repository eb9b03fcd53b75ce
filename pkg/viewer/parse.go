package viewer

import (
	"encoding/json"

	"github.com/edgevision/edgevisiond/pkg/broadcast"
	"github.com/tauraamui/xerror"
)

// frameMessageShape mirrors the wire entity with pointer fields so a
// missing key is distinguishable from a zero value. A payload failing
// shape validation is discarded without touching the connection.
type frameMessageShape struct {
	Timestamp      *string  `json:"timestamp"`
	Width          *int     `json:"width"`
	Height         *int     `json:"height"`
	Format         *string  `json:"format"`
	ProcessingMode *string  `json:"processingMode"`
	FPS            *float64 `json:"fps"`
	FrameData      *string  `json:"frameData"`
	FrameSize      *int     `json:"frameSize"`
}

func parseFrameMessage(payload []byte) (broadcast.FrameMessage, error) {
	var shape frameMessageShape
	if err := json.Unmarshal(payload, &shape); err != nil {
		return broadcast.FrameMessage{}, xerror.Errorf(
			"unable to parse inbound frame message: %w", err,
		).AsKind(KindParseFailure)
	}

	missing := ""
	switch {
	case shape.Timestamp == nil:
		missing = "timestamp"
	case shape.Width == nil:
		missing = "width"
	case shape.Height == nil:
		missing = "height"
	case shape.Format == nil:
		missing = "format"
	case shape.ProcessingMode == nil:
		missing = "processingMode"
	case shape.FPS == nil:
		missing = "fps"
	case shape.FrameData == nil:
		missing = "frameData"
	case shape.FrameSize == nil:
		missing = "frameSize"
	}
	if missing != "" {
		return broadcast.FrameMessage{}, xerror.NewWithKind(
			KindParseFailure, "inbound frame message missing required field",
		).WithParam("field", missing)
	}

	return broadcast.FrameMessage{
		Timestamp:      *shape.Timestamp,
		Width:          *shape.Width,
		Height:         *shape.Height,
		Format:         *shape.Format,
		ProcessingMode: *shape.ProcessingMode,
		FPS:            *shape.FPS,
		FrameData:      *shape.FrameData,
		FrameSize:      *shape.FrameSize,
	}, nil
}
