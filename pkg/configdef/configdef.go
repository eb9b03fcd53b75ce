package configdef

import (
	"errors"
	"fmt"

	"gopkg.in/dealancer/validate.v2"
)

type Camera struct {
	Title   string `json:"title" validate:"empty=false"`
	Address string `json:"address"`
	Width   int    `json:"width" validate:"gte=1"`
	Height  int    `json:"height" validate:"gte=1"`
	FPS     int    `json:"fps" validate:"gte=1 & lte=60"`
	Mock    bool   `json:"mock"`
}

type Processing struct {
	Mode          string  `json:"mode" validate:"one_of=grayscale,edges"`
	LowThreshold  float32 `json:"low_threshold" validate:"gte=0 & lte=255"`
	HighThreshold float32 `json:"high_threshold" validate:"gte=0 & lte=255"`
}

type Broadcast struct {
	Port           int `json:"port" validate:"gte=1 & lte=65535"`
	ThrottleMillis int `json:"throttle_millis" validate:"gte=0"`
}

type Render struct {
	RefreshFPS int    `json:"refresh_fps" validate:"gte=1 & lte=240"`
	Rotation   string `json:"rotation" validate:"one_of=none,90,180,270"`
}

type Values struct {
	Debug      bool       `json:"debug"`
	Camera     Camera     `json:"camera"`
	Processing Processing `json:"processing"`
	Broadcast  Broadcast  `json:"broadcast"`
	Render     Render     `json:"render"`
}

func (v Values) RunValidate() error {
	if err := validate.Validate(&v); err != nil {
		return err
	}
	return v.Validate()
}

// Validate covers the cross-field rules the tag validators cannot
// express.
func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	if v.Processing.LowThreshold >= v.Processing.HighThreshold {
		return fmt.Errorf(validationErrorHeader, errors.New("low threshold must be below high threshold"))
	}
	return nil
}
